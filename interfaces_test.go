package skidsteer

import (
	"context"
	"github.com/jd3nn1s/skidsteer/cancmd"
	"github.com/jd3nn1s/skidsteer/mqttcmd"
	"github.com/jd3nn1s/skidsteer/pwm"
	"github.com/jd3nn1s/skidsteer/udpcmd"
	"sync"
)

type sourceStub struct {
	startChan chan struct{}
	errChan   chan error
	fnChan    chan func()
	closed    bool
}

type udpStub struct {
	sourceStub
	callbacks udpcmd.Callbacks
}

type mqttStub struct {
	sourceStub
	callbacks mqttcmd.Callbacks
}

type canBusStub struct {
	sourceStub
	left, right    int
	pulseCallCount int
	callbacks      cancmd.Callbacks
}

func createSourceStub() *sourceStub {
	ret := sourceStub{
		startChan: make(chan struct{}),
		errChan:   make(chan error),
		fnChan:    make(chan func()),
	}
	return &ret
}

func (s *sourceStub) Close() error {
	s.closed = true
	return nil
}

func (s *sourceStub) start(ctx context.Context) error {
	select {
	case s.startChan <- struct{}{}:
	default:
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-s.errChan:
			return err
		case fn := <-s.fnChan:
			fn()
		}
	}
}

func createUDPStub() *udpStub {
	return &udpStub{
		sourceStub: *createSourceStub(),
	}
}

func (u *udpStub) Start(ctx context.Context, callbacks udpcmd.Callbacks) error {
	u.callbacks = callbacks
	return u.sourceStub.start(ctx)
}

func createMQTTStub() *mqttStub {
	return &mqttStub{
		sourceStub: *createSourceStub(),
	}
}

func (m *mqttStub) Start(ctx context.Context, callbacks mqttcmd.Callbacks) error {
	m.callbacks = callbacks
	return m.sourceStub.start(ctx)
}

func createCANBusStub() *canBusStub {
	return &canBusStub{
		sourceStub: *createSourceStub(),
	}
}

func (c *canBusStub) Start(ctx context.Context, callbacks cancmd.Callbacks) error {
	c.callbacks = callbacks
	return c.sourceStub.start(ctx)
}

func (c *canBusStub) SendPulses(left, right int) error {
	c.pulseCallCount++
	c.left, c.right = left, right
	return nil
}

type reporterStub struct {
	reports []Status
}

func (rep *reporterStub) Report(prev, cur *Status) error {
	rep.reports = append(rep.reports, *cur)
	return nil
}

// recordingSink keeps the duty of every channel and the order of writes.
type recordingSink struct {
	lock   sync.Mutex
	duty   map[int]int
	writes []int
	closed bool
}

var _ pwm.Sink = &recordingSink{}

func newRecordingSink() *recordingSink {
	return &recordingSink{
		duty: map[int]int{},
	}
}

func (s *recordingSink) SetDuty(channel, onTick, offTick int) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.duty[channel] = offTick
	s.writes = append(s.writes, channel)
	return nil
}

func (s *recordingSink) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.closed = true
	return nil
}

func (s *recordingSink) dutyOf(channel int) int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.duty[channel]
}

func (s *recordingSink) writeCount() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.writes)
}
