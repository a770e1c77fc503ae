package skidsteer

import (
	"context"
	"github.com/jd3nn1s/skidsteer/pwm"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"sync"
	"time"
)

const (
	channelBufferSize = 1

	idleTick = 100 * time.Millisecond
)

var (
	ErrNotReady = errors.New("vehicle is not ready for commands")

	// how long Shutdown waits for sources to stop
	sourceStopTimeout = 2 * time.Second
)

// Vehicle owns the PWM board and turns commands from its sources into
// motor outputs, one command at a time.
type Vehicle struct {
	cfg    Config
	scaler *pwm.Scaler
	bank   *pwm.Bank
	mixer  *Mixer

	cmdChan   chan Command
	sources   []Retryable
	reporters []Reporter
	testMode  bool

	lock   sync.Mutex
	state  State
	status Status

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewVehicle(cfg Config, sink pwm.Sink) (*Vehicle, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	scaler, err := pwm.NewScaler(cfg.PWM.Frequency, cfg.PWM.ReferenceFrequency)
	if err != nil {
		return nil, err
	}
	bank := pwm.NewBank(sink, cfg.PWM.Channel)

	v := &Vehicle{
		cfg:     cfg,
		scaler:  scaler,
		bank:    bank,
		mixer:   NewMixer(bank),
		cmdChan: make(chan Command, channelBufferSize),
		state:   Uninitialized,
	}

	for _, name := range cfg.Sources {
		r, err := newSource(name, cfg, v.cmdChan)
		if err != nil {
			return nil, err
		}
		v.sources = append(v.sources, r)
		if canBus, ok := r.(*canBusRetryable); ok {
			v.AddReporter(&CANReporter{canBus: canBus})
		}
	}
	return v, nil
}

func (v *Vehicle) AddReporter(r Reporter) {
	v.lock.Lock()
	defer v.lock.Unlock()
	v.reporters = append(v.reporters, r)
}

func (v *Vehicle) SetTestMode(testMode bool) {
	v.testMode = testMode
}

func (v *Vehicle) State() State {
	v.lock.Lock()
	defer v.lock.Unlock()
	return v.state
}

func (v *Vehicle) Status() Status {
	v.lock.Lock()
	defer v.lock.Unlock()
	return v.status
}

// Calibrate writes the zero pulse to every motor enable input and holds it
// for the calibration delay. No command is accepted until it returns.
func (v *Vehicle) Calibrate() error {
	v.lock.Lock()
	defer v.lock.Unlock()
	if v.state != Uninitialized {
		return errors.Errorf("unable to calibrate in state %v", v.state)
	}
	v.state = Calibrating

	zero := v.scaler.Scale(float64(v.cfg.Controller.ZeroPulse))
	log.WithField("zeroPulse", zero).Info("calibrating motor drivers")
	for _, offset := range EnableOffsets() {
		if res := v.bank.Write(offset, zero); res == pwm.WriteDropped {
			log.WithField("offset", offset).Warn("zero pulse not written")
		}
	}
	time.Sleep(v.cfg.Controller.CalibrationDelay)

	v.state = Ready
	log.Info("vehicle ready")
	return nil
}

// Start calibrates and then starts the command sources.
func (v *Vehicle) Start(ctx context.Context) error {
	if err := v.Calibrate(); err != nil {
		return err
	}
	srcCtx, cancel := context.WithCancel(ctx)
	v.cancel = cancel

	if v.testMode {
		log.Info("running in test mode")
		v.runTestMode(srcCtx)
		return nil
	}

	for _, r := range v.sources {
		v.wg.Add(1)
		go func(r Retryable) {
			defer v.wg.Done()
			err := retry(srcCtx, r)
			log.WithField("err", err).Infof("%s: done", r.Name())
		}(r)
	}
	return nil
}

// Run applies commands from the sources until ctx is done.
func (v *Vehicle) Run(ctx context.Context) error {
	ticker := time.NewTicker(idleTick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-v.cmdChan:
			if _, err := v.OnCommand(cmd); err != nil {
				log.WithField("err", err).Warn("command ignored")
			}
		case <-ticker.C:
			if v.cfg.Controller.RefreshLastCommand {
				v.refresh()
			}
		}
	}
}

func (v *Vehicle) OnCommand(cmd Command) (Result, error) {
	v.lock.Lock()
	defer v.lock.Unlock()
	if v.state != Ready {
		return Result{}, ErrNotReady
	}
	return v.apply(cmd), nil
}

func (v *Vehicle) apply(cmd Command) Result {
	log.WithField("speed", cmd.Throttle).
		WithField("steering", cmd.Steering).
		Debug("applying command")

	res := v.mixer.Run(cmd.Throttle, cmd.Steering)
	if res.Dropped > 0 {
		log.WithField("dropped", res.Dropped).Warn("pwm writes dropped")
	}

	prev := v.status
	v.status = Status{
		Command:  cmd,
		Result:   res,
		Applied:  time.Now(),
		Commands: prev.Commands + 1,
	}
	for _, r := range v.reporters {
		if err := r.Report(&prev, &v.status); err != nil {
			log.WithField("err", err).Warn("unable to report status")
		}
	}
	return res
}

func (v *Vehicle) refresh() {
	v.lock.Lock()
	defer v.lock.Unlock()
	if v.state != Ready || v.status.Commands == 0 {
		return
	}
	v.mixer.Run(v.status.Command.Throttle, v.status.Command.Steering)
}

// Shutdown stops the motors, stops the sources and releases the board.
// Calling it more than once is a no-op.
func (v *Vehicle) Shutdown() error {
	v.lock.Lock()
	if v.state == ShuttingDown || v.state == Terminated {
		v.lock.Unlock()
		return nil
	}
	v.state = ShuttingDown
	log.Info("stopping vehicle")
	v.apply(Stop)
	v.lock.Unlock()

	if v.cancel != nil {
		v.cancel()
	}
	done := make(chan struct{})
	go func() {
		v.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(sourceStopTimeout):
		log.Warn("timed out waiting for command sources to stop")
	}

	v.lock.Lock()
	defer v.lock.Unlock()
	err := v.bank.Close()
	v.state = Terminated
	if err != nil {
		return errors.Wrap(err, "unable to close pwm board")
	}
	return nil
}
