package pwm

import (
	log "github.com/sirupsen/logrus"
	"sync"
)

type WriteResult int

const (
	WriteOK WriteResult = iota
	WriteRetried
	WriteDropped
)

func (r WriteResult) String() string {
	switch r {
	case WriteOK:
		return "ok"
	case WriteRetried:
		return "retried"
	case WriteDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// Bank addresses a block of channels on a sink relative to a base channel.
type Bank struct {
	sink Sink
	base int
	lock sync.Mutex
}

func NewBank(sink Sink, base int) *Bank {
	return &Bank{
		sink: sink,
		base: base,
	}
}

func (b *Bank) Base() int {
	return b.base
}

// Write sets the duty of channel base+offset. A failed write is attempted a
// second time, a second failure drops the write.
func (b *Bank) Write(offset, duty int) WriteResult {
	b.lock.Lock()
	defer b.lock.Unlock()

	channel := b.base + offset
	err := b.sink.SetDuty(channel, 0, duty)
	if err == nil {
		return WriteOK
	}
	log.WithField("err", err).
		WithField("channel", channel).
		WithField("duty", duty).
		Debug("pwm write failed, retrying")

	if err = b.sink.SetDuty(channel, 0, duty); err != nil {
		log.WithField("err", err).
			WithField("channel", channel).
			WithField("duty", duty).
			Warn("pwm write dropped")
		return WriteDropped
	}
	return WriteRetried
}

func (b *Bank) Close() error {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.sink.Close()
}
