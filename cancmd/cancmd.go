package cancmd

import (
	"context"
	"encoding/binary"
	"github.com/brutella/can"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	frameDrive  uint32 = 0x200
	framePulses        = 0x201

	DefaultInterface = "can0"
)

type DriveFn func(speed, steeringAngle float64)

type Callbacks struct {
	Drive DriveFn
}

type Config struct {
	Interface string `toml:"interface" env:"SKIDSTEER_CAN_INTERFACE"`
}

type CANBus interface {
	SubscribeFunc(can.HandlerFunc)
	ConnectAndPublish() error
	Disconnect() error
	Publish(can.Frame) error
}

type Connection struct {
	bus CANBus
	cb  *Callbacks
}

// to allow testing
var newBus = func(name string) (CANBus, error) {
	return can.NewBusForInterfaceWithName(name)
}

func Connect(cfg Config) (*Connection, error) {
	name := cfg.Interface
	if name == "" {
		name = DefaultInterface
	}
	bus, err := newBus(name)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open can interface %s", name)
	}

	c := &Connection{
		bus: bus,
	}
	return c, nil
}

func (c *Connection) Start(ctx context.Context, cb Callbacks) error {
	c.cb = &cb
	c.bus.SubscribeFunc(c.handleFrame)
	log.Info("CAN bus opened and subscribed")

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
			return
		}
		log.Infof("stopping can bus: %v", ctx.Err())
		if err := c.bus.Disconnect(); err != nil {
			log.WithField("err", err).Warn("unable to disconnect canbus after context")
		}
	}()

	return c.bus.ConnectAndPublish()
}

func (c *Connection) Close() error {
	if c.bus == nil {
		return errors.New("can bus not connected")
	}
	return c.bus.Disconnect()
}

// SendPulses publishes the enable duty applied to each side.
func (c *Connection) SendPulses(left, right int) error {
	if c.bus == nil {
		return errors.New("can bus not connected")
	}
	log.WithField("left", left).
		WithField("right", right).
		Debug("sending pulses over canbus")

	data := [8]uint8{}
	binary.LittleEndian.PutUint16(data[0:2], uint16(int16(left)))
	binary.LittleEndian.PutUint16(data[2:4], uint16(int16(right)))
	return c.bus.Publish(can.Frame{
		ID:     framePulses,
		Length: 4,
		Data:   data,
	})
}

func (c *Connection) handleFrame(frame can.Frame) {
	log.WithField("canID", frame.ID).
		WithField("length", frame.Length).
		Debug("received canbus frame")

	if frame.ID != frameDrive {
		log.WithField("canID", frame.ID).
			Debug("ignoring canID")
		return
	}
	if c.cb == nil || c.cb.Drive == nil {
		log.WithField("canID", frame.ID).Debug("no callback registered")
		return
	}

	speed, steering, err := driveResult(frame)
	if err != nil {
		log.WithField("err", err).Error("unable to decode drive frame")
		return
	}
	c.cb.Drive(float64(speed), float64(steering))
}

func driveResult(frame can.Frame) (speed, steering int16, err error) {
	if frame.Length != 4 {
		return 0, 0, errors.Errorf("incorrect frame size for drive command: %v", frame.Length)
	}
	speed = int16(binary.LittleEndian.Uint16(frame.Data[0:2]))
	steering = int16(binary.LittleEndian.Uint16(frame.Data[2:4]))
	return speed, steering, nil
}
