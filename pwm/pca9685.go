package pwm

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/pca9685"
	"periph.io/x/host/v3"
	"sync"
	"time"
)

type pwmDevice interface {
	SetPwmFreq(freq physic.Frequency) error
	SetPwm(channel int, on, off gpio.Duty) error
	SetAllPwm(on, off gpio.Duty) error
}

var hostInit sync.Once

// to allow testing
var openBus = func(name string) (i2c.BusCloser, error) {
	var err error
	hostInit.Do(func() {
		_, err = host.Init()
	})
	if err != nil {
		return nil, errors.Wrap(err, "unable to initialise periph host drivers")
	}
	return i2creg.Open(name)
}

var newDevice = func(bus i2c.Bus, address uint16) (pwmDevice, error) {
	return pca9685.NewI2C(bus, address)
}

var initSleep = time.Sleep

// PCA9685 is a Sink writing to a PCA9685 board over I2C.
type PCA9685 struct {
	bus i2c.BusCloser
	dev pwmDevice
}

func OpenPCA9685(cfg Config) (*PCA9685, error) {
	if cfg.Frequency <= 0 {
		return nil, &ConfigError{Field: "frequency", Value: cfg.Frequency, Reason: "must be positive"}
	}
	bus, err := openBus(cfg.Bus)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open i2c bus %q", cfg.Bus)
	}
	dev, err := newDevice(bus, uint16(cfg.Address))
	if err != nil {
		_ = bus.Close()
		return nil, errors.Wrapf(err, "unable to open pca9685 at 0x%02x", cfg.Address)
	}
	if err = dev.SetPwmFreq(physic.Frequency(cfg.Frequency) * physic.Hertz); err != nil {
		_ = bus.Close()
		return nil, errors.Wrapf(err, "unable to set pwm frequency to %dHz", cfg.Frequency)
	}
	log.WithField("address", cfg.Address).
		WithField("bus", cfg.Bus).
		WithField("frequency", cfg.Frequency).
		Info("pca9685 opened")

	// some ESCs jump if driven straight after the frequency changes
	initSleep(cfg.InitDelay)

	return &PCA9685{
		bus: bus,
		dev: dev,
	}, nil
}

func (p *PCA9685) SetDuty(channel, onTick, offTick int) error {
	return p.dev.SetPwm(channel, gpio.Duty(onTick), gpio.Duty(offTick))
}

func (p *PCA9685) Close() error {
	if p.bus == nil {
		return errors.New("pca9685 not open")
	}
	err := p.dev.SetAllPwm(0, 0)
	if err != nil {
		err = errors.Wrap(err, "unable to switch outputs off")
	}
	if closeErr := p.bus.Close(); closeErr != nil {
		if err != nil {
			log.WithField("err", err).Warn("pca9685 outputs left on")
		}
		return errors.Wrap(closeErr, "unable to close i2c bus")
	}
	p.bus = nil
	return err
}
