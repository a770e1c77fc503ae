package skidsteer

// Command is one inbound drive sample. Both values are raw pulse-domain
// magnitudes, nominally -4095..4095, and are not validated.
type Command struct {
	Throttle float64
	Steering float64
}

var Stop = Command{}

// offer puts cmd on a size-one channel, replacing a command that has not
// been consumed yet.
func offer(ch chan Command, cmd Command) {
	for {
		select {
		case ch <- cmd:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
