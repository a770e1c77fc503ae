package skidsteer

import (
	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v6"
	"github.com/jd3nn1s/skidsteer/cancmd"
	"github.com/jd3nn1s/skidsteer/mqttcmd"
	"github.com/jd3nn1s/skidsteer/pwm"
	"github.com/jd3nn1s/skidsteer/udpcmd"
	"fmt"
	"github.com/pkg/errors"
	"io"
	"io/ioutil"
	"os"
	"time"
)

const (
	SourceUDP  = "udp"
	SourceMQTT = "mqtt"
	SourceCAN  = "can"

	DefaultMaxPulse         = 4095
	DefaultMinPulse         = -4095
	DefaultCalibrationDelay = time.Second
)

type ControllerConfig struct {
	MaxPulse         int           `toml:"max_pulse" env:"SKIDSTEER_MAX_PULSE"`
	MinPulse         int           `toml:"min_pulse" env:"SKIDSTEER_MIN_PULSE"`
	ZeroPulse        int           `toml:"zero_pulse" env:"SKIDSTEER_ZERO_PULSE"`
	CalibrationDelay time.Duration `toml:"calibration_delay" env:"SKIDSTEER_CALIBRATION_DELAY"`

	// re-send the last command on every idle tick for drivers that need refreshing
	RefreshLastCommand bool `toml:"refresh_last_command" env:"SKIDSTEER_REFRESH_LAST_COMMAND"`
}

type Config struct {
	LogLevel string   `toml:"log_level" env:"SKIDSTEER_LOG_LEVEL"`
	Sources  []string `toml:"sources" env:"SKIDSTEER_SOURCES" envSeparator:","`

	PWM        pwm.Config       `toml:"pwm"`
	Controller ControllerConfig `toml:"controller"`
	UDP        udpcmd.Config    `toml:"udp"`
	MQTT       mqttcmd.Config   `toml:"mqtt"`
	CAN        cancmd.Config    `toml:"can"`
}

func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Sources:  []string{SourceUDP},
		PWM:      pwm.DefaultConfig(),
		Controller: ControllerConfig{
			MaxPulse:         DefaultMaxPulse,
			MinPulse:         DefaultMinPulse,
			ZeroPulse:        0,
			CalibrationDelay: DefaultCalibrationDelay,
		},
		UDP: udpcmd.Config{
			Port: udpcmd.DefaultPort,
		},
	}
}

func LoadConfig(fileName string) (Config, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return Config{}, errors.Wrapf(err, "unable to open file %s", fileName)
	}
	defer file.Close()
	return LoadConfigFromReader(file)
}

// LoadConfigFromReader decodes TOML over the defaults and then applies any
// SKIDSTEER_ environment variables.
func LoadConfigFromReader(configReader io.Reader) (Config, error) {
	configData, err := ioutil.ReadAll(configReader)
	if err != nil {
		return Config{}, errors.Wrap(err, "unable to read config reader")
	}
	config := DefaultConfig()
	if _, err := toml.Decode(string(configData), &config); err != nil {
		return Config{}, errors.Wrap(err, "unable to decode configuration")
	}
	if err := env.Parse(&config); err != nil {
		return Config{}, errors.Wrap(err, "unable to apply environment overrides")
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c Config) Validate() error {
	if err := c.PWM.Validate(ChannelSpan); err != nil {
		return err
	}
	ctl := c.Controller
	if ctl.MinPulse > ctl.MaxPulse {
		return &pwm.ConfigError{Field: "min_pulse", Value: ctl.MinPulse, Reason: "greater than max_pulse"}
	}
	if ctl.ZeroPulse < ctl.MinPulse || ctl.ZeroPulse > ctl.MaxPulse {
		return &pwm.ConfigError{Field: "zero_pulse", Value: ctl.ZeroPulse, Reason: "outside min_pulse..max_pulse"}
	}
	scaler, err := pwm.NewScaler(c.PWM.Frequency, c.PWM.ReferenceFrequency)
	if err != nil {
		return err
	}
	if duty := scaler.Scale(float64(ctl.ZeroPulse)); duty < 0 || duty > pwm.MaxDuty {
		return &pwm.ConfigError{
			Field:  "zero_pulse",
			Value:  ctl.ZeroPulse,
			Reason: fmt.Sprintf("scales to duty %d outside 0..%d", duty, pwm.MaxDuty),
		}
	}
	if ctl.CalibrationDelay < 0 {
		return errors.Errorf("calibration_delay %v must not be negative", ctl.CalibrationDelay)
	}
	for _, s := range c.Sources {
		switch s {
		case SourceUDP, SourceMQTT, SourceCAN:
		default:
			return errors.Errorf("unknown command source %q", s)
		}
	}
	return nil
}
