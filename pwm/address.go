package pwm

import (
	"github.com/pkg/errors"
	"strconv"
)

// Address is a 7-bit I2C device address. Text forms accept any Go integer
// literal so 0x40 works from the environment as well as from TOML.
type Address int

func (a *Address) UnmarshalText(text []byte) error {
	v, err := strconv.ParseInt(string(text), 0, 16)
	if err != nil {
		return errors.Wrapf(err, "invalid i2c address %q", string(text))
	}
	*a = Address(v)
	return nil
}

// UnmarshalTOML takes either a TOML integer or a string literal.
func (a *Address) UnmarshalTOML(data interface{}) error {
	switch v := data.(type) {
	case int64:
		*a = Address(v)
		return nil
	case string:
		return a.UnmarshalText([]byte(v))
	}
	return errors.Errorf("invalid i2c address %v", data)
}
