package skidsteer

type Side int

const (
	Left Side = iota
	Right
)

func (s Side) String() string {
	switch s {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return "unknown"
	}
}

type Position int

const (
	Rear Position = iota
	Front
)

func (p Position) String() string {
	if p == Front {
		return "front"
	}
	return "rear"
}

// Motor is one motor driver on the board: its PWM enable input and the two
// direction inputs, as offsets from the base channel.
type Motor struct {
	Side     Side
	Position Position
	PWM      int
	Forward  int // driven high when moving forwards
	Reverse  int // driven high when reversing or stopped
}

// Wiring of the driver boards, do not renumber. The left rear driver is
// wired direction first which differs from the other three.
var (
	RightRear  = Motor{Side: Right, Position: Rear, PWM: 0, Forward: 1, Reverse: 2}
	LeftRear   = Motor{Side: Left, Position: Rear, PWM: 5, Forward: 3, Reverse: 4}
	LeftFront  = Motor{Side: Left, Position: Front, PWM: 6, Forward: 7, Reverse: 8}
	RightFront = Motor{Side: Right, Position: Front, PWM: 11, Forward: 9, Reverse: 10}
)

// ChannelSpan is the number of consecutive channels used from the base.
const ChannelSpan = 12

// Motors returns the rear then front motor of a side.
func Motors(s Side) [2]Motor {
	if s == Left {
		return [2]Motor{LeftRear, LeftFront}
	}
	return [2]Motor{RightRear, RightFront}
}

// EnableOffsets are the PWM enable inputs of all four motors.
func EnableOffsets() []int {
	return []int{RightRear.PWM, LeftRear.PWM, LeftFront.PWM, RightFront.PWM}
}
