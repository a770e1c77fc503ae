package skidsteer

type State int

const (
	Uninitialized State = iota
	Calibrating
	Ready
	ShuttingDown
	Terminated
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "Uninitialized"
	case Calibrating:
		return "Calibrating"
	case Ready:
		return "Ready"
	case ShuttingDown:
		return "ShuttingDown"
	case Terminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}
