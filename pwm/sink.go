package pwm

// Sink is a PWM controller able to set the on and off tick of a channel.
type Sink interface {
	SetDuty(channel, onTick, offTick int) error
	Close() error
}
