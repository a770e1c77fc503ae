package pwm

import (
	"fmt"
	"time"
)

const (
	ChannelCount = 16
	MaxDuty      = 4095

	DefaultAddress            = 0x40
	DefaultFrequency          = 60
	DefaultReferenceFrequency = 60
	DefaultInitDelay          = 100 * time.Millisecond
)

// Config describes one PCA9685 board and the block of channels used on it.
type Config struct {
	Channel            int           `toml:"channel" env:"SKIDSTEER_PWM_CHANNEL"`
	Address            Address       `toml:"address" env:"SKIDSTEER_PWM_ADDRESS"`
	Bus                string        `toml:"bus" env:"SKIDSTEER_PWM_BUS"` // periph i2creg name, empty for the first bus
	Frequency          int           `toml:"frequency" env:"SKIDSTEER_PWM_FREQUENCY"`
	ReferenceFrequency int           `toml:"reference_frequency" env:"SKIDSTEER_PWM_REFERENCE_FREQUENCY"`
	InitDelay          time.Duration `toml:"init_delay" env:"SKIDSTEER_PWM_INIT_DELAY"`
}

func DefaultConfig() Config {
	return Config{
		Channel:            0,
		Address:            DefaultAddress,
		Frequency:          DefaultFrequency,
		ReferenceFrequency: DefaultReferenceFrequency,
		InitDelay:          DefaultInitDelay,
	}
}

// Validate checks that span consecutive channels starting at Channel fit on
// the board and that the frequency and address are usable.
func (c Config) Validate(span int) error {
	if c.Frequency <= 0 {
		return &ConfigError{Field: "frequency", Value: c.Frequency, Reason: "must be positive"}
	}
	if c.ReferenceFrequency < 0 {
		return &ConfigError{Field: "reference_frequency", Value: c.ReferenceFrequency, Reason: "must not be negative"}
	}
	if c.Channel < 0 || c.Channel+span > ChannelCount {
		return &ConfigError{
			Field:  "channel",
			Value:  c.Channel,
			Reason: fmt.Sprintf("%d channels from base must fit in %d", span, ChannelCount),
		}
	}
	if c.Address < 0x03 || c.Address > 0x77 {
		return &ConfigError{Field: "address", Value: int(c.Address), Reason: "not a 7-bit i2c device address"}
	}
	return nil
}

type ConfigError struct {
	Field  string
	Value  int
	Reason string
}

func (err *ConfigError) Error() string {
	return fmt.Sprintf("invalid pwm %s %d: %s", err.Field, err.Value, err.Reason)
}
