package skidsteer

import (
	"github.com/jd3nn1s/skidsteer/pwm"
	log "github.com/sirupsen/logrus"
	"math"
)

const (
	// full scale of the incoming steering value
	steeringRange = 4095

	// KDivide limits peak duty to about a third of full scale to keep from
	// overdriving the drivetrain with gamepad input.
	KDivide = 3

	dutyOn  = pwm.MaxDuty
	dutyOff = 0
)

type ChannelWriter interface {
	Write(offset, duty int) pwm.WriteResult
}

type Result struct {
	LeftSpeed  float64
	RightSpeed float64
	LeftPulse  float64
	RightPulse float64
	Retried    int
	Dropped    int
}

type Mixer struct {
	bank ChannelWriter
}

func NewMixer(bank ChannelWriter) *Mixer {
	return &Mixer{
		bank: bank,
	}
}

// Blend attenuates the wheels on the inside of the turn.
func Blend(throttle, steering float64) (left, right float64) {
	left = throttle
	right = throttle
	if steering < 0 {
		left *= 1.0 - (-steering / steeringRange)
	} else if steering > 0 {
		right *= 1.0 - (steering / steeringRange)
	}
	return left, right
}

// Pulse truncates speed to an integer before dividing, the divide itself
// keeps the fraction.
func Pulse(speed float64) float64 {
	return float64(int(speed)) / KDivide
}

// Run mixes throttle and steering and writes all twelve channels.
func (m *Mixer) Run(throttle, steering float64) Result {
	res := Result{}
	res.LeftSpeed, res.RightSpeed = Blend(throttle, steering)
	res.LeftPulse = Pulse(res.LeftSpeed)
	res.RightPulse = Pulse(res.RightSpeed)

	log.WithField("left_pulse", res.LeftPulse).
		WithField("right_pulse", res.RightPulse).
		Debug("mixed command")

	m.drive(Left, res.LeftSpeed, res.LeftPulse, &res)
	m.drive(Right, res.RightSpeed, res.RightPulse, &res)
	return res
}

func (m *Mixer) drive(side Side, speed, pulse float64, res *Result) {
	duty := int(math.Abs(pulse))
	for _, motor := range Motors(side) {
		asserted, idle := motor.Reverse, motor.Forward
		if speed > 0 {
			asserted, idle = motor.Forward, motor.Reverse
		}

		m.write(motor.PWM, duty, res)
		if motor.Position == Rear {
			m.write(idle, dutyOff, res)
			m.write(asserted, dutyOn, res)
		} else {
			m.write(asserted, dutyOn, res)
			m.write(idle, dutyOff, res)
		}
	}
}

func (m *Mixer) write(offset, duty int, res *Result) {
	switch m.bank.Write(offset, duty) {
	case pwm.WriteRetried:
		res.Retried++
	case pwm.WriteDropped:
		res.Dropped++
	}
}
