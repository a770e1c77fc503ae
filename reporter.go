package skidsteer

import (
	"github.com/pkg/errors"
	"math"
	"time"
)

// Status is the bookkeeping kept about the last applied command.
type Status struct {
	Command  Command
	Result   Result
	Applied  time.Time
	Commands uint64
}

// Pulses returns the enable duty written to each side, negative when the
// side was driven in reverse.
func (s Status) Pulses() (left, right int) {
	return signedDuty(s.Result.LeftSpeed, s.Result.LeftPulse),
		signedDuty(s.Result.RightSpeed, s.Result.RightPulse)
}

func signedDuty(speed, pulse float64) int {
	duty := int(math.Abs(pulse))
	if speed > 0 {
		return duty
	}
	return -duty
}

// CANReporter publishes the applied duty on the CAN bus whenever it changes.
type CANReporter struct {
	canBus *canBusRetryable
}

func (rep *CANReporter) Report(prev, cur *Status) error {
	prevLeft, prevRight := prev.Pulses()
	left, right := cur.Pulses()
	if prev.Commands != 0 && prevLeft == left && prevRight == right {
		return nil
	}
	canBus := rep.canBus.CANBus()
	if canBus == nil {
		return errors.New("canbus is not initialized")
	}
	if err := canBus.SendPulses(left, right); err != nil {
		return errors.Wrapf(err, "unable to send pulses to CAN bus")
	}
	return nil
}
