package pwm

import (
	"math"
)

// Scaler converts pulse values expressed against the reference frequency
// into tick counts for a board running at another frequency.
type Scaler struct {
	scale float64
}

func NewScaler(frequency, reference int) (*Scaler, error) {
	if reference == 0 {
		reference = DefaultReferenceFrequency
	}
	if frequency <= 0 {
		return nil, &ConfigError{Field: "frequency", Value: frequency, Reason: "must be positive"}
	}
	if reference < 0 {
		return nil, &ConfigError{Field: "reference_frequency", Value: reference, Reason: "must not be negative"}
	}
	return &Scaler{
		scale: float64(frequency) / float64(reference),
	}, nil
}

// Scale does not clamp, keeping the result within 0..MaxDuty is up to the caller.
func (s *Scaler) Scale(pulse float64) int {
	return int(math.Round(pulse * s.scale))
}

func (s *Scaler) Factor() float64 {
	return s.scale
}
