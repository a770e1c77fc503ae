package skidsteer

import (
	"context"
	"github.com/jd3nn1s/skidsteer/cancmd"
	"github.com/jd3nn1s/skidsteer/mqttcmd"
	"github.com/jd3nn1s/skidsteer/udpcmd"
	"github.com/pkg/errors"
	"sync"
)

// to allow testing
var (
	canBusConnect = func(cfg cancmd.Config) (CANBus, error) {
		return cancmd.Connect(cfg)
	}
	udpListen = func(cfg udpcmd.Config) (UDPListener, error) {
		return udpcmd.Listen(cfg)
	}
	mqttConnect = func(cfg mqttcmd.Config) (MQTTSubscriber, error) {
		return mqttcmd.Connect(cfg)
	}
)

type canBusRetryable struct {
	c        CANBus
	cfg      cancmd.Config
	sendChan chan Command

	// c is shared with the pulse reporter
	lock sync.Mutex
}

func (bus *canBusRetryable) Open() error {
	c, err := canBusConnect(bus.cfg)
	if err != nil {
		return err
	}
	bus.lock.Lock()
	bus.c = c
	bus.lock.Unlock()
	return nil
}

func (bus *canBusRetryable) Close() error {
	bus.lock.Lock()
	c := bus.c
	bus.c = nil
	bus.lock.Unlock()
	if c == nil {
		return nil
	}
	return c.Close()
}

func (bus *canBusRetryable) Start(ctx context.Context) error {
	c := bus.CANBus()
	if c == nil {
		return errors.New("canbus is not open")
	}
	return c.Start(ctx, cancmd.Callbacks{
		Drive: func(speed, steeringAngle float64) {
			offer(bus.sendChan, Command{Throttle: speed, Steering: steeringAngle})
		},
	})
}

func (bus *canBusRetryable) Name() string {
	return "canbus"
}

func (bus *canBusRetryable) CANBus() CANBus {
	bus.lock.Lock()
	defer bus.lock.Unlock()
	return bus.c
}

type udpRetryable struct {
	c        UDPListener
	cfg      udpcmd.Config
	sendChan chan Command
}

func (u *udpRetryable) Open() error {
	c, err := udpListen(u.cfg)
	if err != nil {
		return err
	}
	u.c = c
	return nil
}

func (u *udpRetryable) Close() error {
	if u.c == nil {
		return nil
	}
	c := u.c
	u.c = nil
	return c.Close()
}

func (u *udpRetryable) Start(ctx context.Context) error {
	return u.c.Start(ctx, udpcmd.Callbacks{
		Drive: func(speed, steeringAngle float64) {
			offer(u.sendChan, Command{Throttle: speed, Steering: steeringAngle})
		},
		Stop: func() {
			offer(u.sendChan, Stop)
		},
	})
}

func (u *udpRetryable) Name() string {
	return "udp"
}

type mqttRetryable struct {
	c        MQTTSubscriber
	cfg      mqttcmd.Config
	sendChan chan Command
}

func (m *mqttRetryable) Open() error {
	c, err := mqttConnect(m.cfg)
	if err != nil {
		return err
	}
	m.c = c
	return nil
}

func (m *mqttRetryable) Close() error {
	if m.c == nil {
		return nil
	}
	c := m.c
	m.c = nil
	return c.Close()
}

func (m *mqttRetryable) Start(ctx context.Context) error {
	return m.c.Start(ctx, mqttcmd.Callbacks{
		Drive: func(speed, steeringAngle float64) {
			offer(m.sendChan, Command{Throttle: speed, Steering: steeringAngle})
		},
	})
}

func (m *mqttRetryable) Name() string {
	return "mqtt"
}

func newSource(name string, cfg Config, sendChan chan Command) (Retryable, error) {
	switch name {
	case SourceUDP:
		return &udpRetryable{cfg: cfg.UDP, sendChan: sendChan}, nil
	case SourceMQTT:
		return &mqttRetryable{cfg: cfg.MQTT, sendChan: sendChan}, nil
	case SourceCAN:
		return &canBusRetryable{cfg: cfg.CAN, sendChan: sendChan}, nil
	}
	return nil, errors.Errorf("unknown command source %q", name)
}
