package skidsteer

import (
	"context"
	"github.com/jd3nn1s/skidsteer/udpcmd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sync"
	"testing"
	"time"
)

func testVehicleConfig() Config {
	cfg := DefaultConfig()
	cfg.Sources = nil
	cfg.Controller.CalibrationDelay = 0
	return cfg
}

func newTestVehicle(t *testing.T, cfg Config) (*Vehicle, *recordingSink) {
	t.Helper()
	sink := newRecordingSink()
	v, err := NewVehicle(cfg, sink)
	require.NoError(t, err)
	return v, sink
}

func TestNewVehicleInvalidConfig(t *testing.T) {
	cfg := testVehicleConfig()
	cfg.PWM.Frequency = 0
	_, err := NewVehicle(cfg, newRecordingSink())
	assert.Error(t, err)

	cfg = testVehicleConfig()
	cfg.PWM.Channel = 5
	_, err = NewVehicle(cfg, newRecordingSink())
	assert.Error(t, err)
}

func TestCalibrate(t *testing.T) {
	cfg := testVehicleConfig()
	cfg.PWM.Frequency = 120
	cfg.Controller.ZeroPulse = 100
	cfg.Controller.CalibrationDelay = 30 * time.Millisecond
	v, sink := newTestVehicle(t, cfg)
	assert.Equal(t, Uninitialized, v.State())

	_, err := v.OnCommand(Command{Throttle: 3000})
	assert.Equal(t, ErrNotReady, err)
	assert.Equal(t, 0, sink.writeCount(), "commands before calibration write nothing")

	start := time.Now()
	assert.NoError(t, v.Calibrate())
	assert.True(t, time.Since(start) >= 30*time.Millisecond, "calibration should hold the zero pulse")
	assert.Equal(t, Ready, v.State())

	// zero pulse is scaled for 120Hz
	for _, offset := range EnableOffsets() {
		assert.Equal(t, 200, sink.dutyOf(offset))
	}
	assert.Equal(t, 4, sink.writeCount())

	assert.Error(t, v.Calibrate(), "calibration only happens once")
}

func TestCalibrateBaseChannel(t *testing.T) {
	cfg := testVehicleConfig()
	cfg.PWM.Channel = 4
	cfg.Controller.ZeroPulse = 7
	v, sink := newTestVehicle(t, cfg)
	require.NoError(t, v.Calibrate())

	sink.lock.Lock()
	writes := append([]int{}, sink.writes...)
	sink.lock.Unlock()
	assert.ElementsMatch(t, []int{4, 9, 10, 15}, writes)
}

func TestOnCommand(t *testing.T) {
	v, sink := newTestVehicle(t, testVehicleConfig())
	require.NoError(t, v.Calibrate())

	res, err := v.OnCommand(Command{Throttle: 3000})
	assert.NoError(t, err)
	assert.Equal(t, 1000.0, res.LeftPulse)
	assert.Equal(t, 4+12, sink.writeCount())
	for _, offset := range EnableOffsets() {
		assert.Equal(t, 1000, sink.dutyOf(offset))
	}
	assert.Equal(t, 4095, sink.dutyOf(LeftRear.Forward))
	assert.Equal(t, 0, sink.dutyOf(LeftRear.Reverse))

	status := v.Status()
	assert.Equal(t, Command{Throttle: 3000}, status.Command)
	assert.Equal(t, uint64(1), status.Commands)
	left, right := status.Pulses()
	assert.Equal(t, 1000, left)
	assert.Equal(t, 1000, right)

	_, err = v.OnCommand(Command{Throttle: -1500})
	assert.NoError(t, err)
	assert.Equal(t, 500, sink.dutyOf(RightFront.PWM))
	assert.Equal(t, 4095, sink.dutyOf(RightFront.Reverse))
	left, _ = v.Status().Pulses()
	assert.Equal(t, -500, left)
}

func TestOnCommandSerialised(t *testing.T) {
	v, sink := newTestVehicle(t, testVehicleConfig())
	require.NoError(t, v.Calibrate())

	wg := sync.WaitGroup{}
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := v.OnCommand(Command{Throttle: float64(i * 300)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 4+8*12, sink.writeCount())
	assert.Equal(t, uint64(8), v.Status().Commands)
	// all four enables carry the same command, no interleaving
	duty := sink.dutyOf(LeftRear.PWM)
	for _, offset := range EnableOffsets() {
		assert.Equal(t, duty, sink.dutyOf(offset))
	}
}

func TestReporters(t *testing.T) {
	v, _ := newTestVehicle(t, testVehicleConfig())
	rep := &reporterStub{}
	v.AddReporter(rep)
	require.NoError(t, v.Calibrate())

	_, err := v.OnCommand(Command{Throttle: 3000, Steering: 2000})
	assert.NoError(t, err)
	require.Len(t, rep.reports, 1)
	assert.Equal(t, 3000.0, rep.reports[0].Result.LeftSpeed)
}

func TestRunAppliesCommands(t *testing.T) {
	v, sink := newTestVehicle(t, testVehicleConfig())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, v.Start(ctx))

	done := make(chan error, 1)
	go func() {
		done <- v.Run(ctx)
	}()

	offer(v.cmdChan, Command{Throttle: 3000})
	assert.Eventually(t, func() bool {
		return sink.dutyOf(RightRear.PWM) == 1000
	}, time.Second, 5*time.Millisecond)

	cancel()
	assert.Equal(t, context.Canceled, <-done)
	assert.NoError(t, v.Shutdown())
}

func TestRunRefreshesLastCommand(t *testing.T) {
	cfg := testVehicleConfig()
	cfg.Controller.RefreshLastCommand = true
	v, sink := newTestVehicle(t, cfg)
	require.NoError(t, v.Calibrate())
	_, err := v.OnCommand(Command{Throttle: 3000})
	require.NoError(t, err)
	written := sink.writeCount()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go v.Run(ctx)

	assert.Eventually(t, func() bool {
		return sink.writeCount() >= written+12
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 1000, sink.dutyOf(LeftFront.PWM))
	assert.Equal(t, uint64(1), v.Status().Commands, "refresh is not a new command")
}

func TestShutdown(t *testing.T) {
	v, sink := newTestVehicle(t, testVehicleConfig())
	require.NoError(t, v.Start(context.Background()))
	_, err := v.OnCommand(Command{Throttle: 3000})
	require.NoError(t, err)

	assert.NoError(t, v.Shutdown())
	assert.Equal(t, Terminated, v.State())
	for _, offset := range EnableOffsets() {
		assert.Equal(t, 0, sink.dutyOf(offset))
	}
	assert.True(t, sink.closed)
	assert.Equal(t, Stop, v.Status().Command)

	_, err = v.OnCommand(Command{Throttle: 3000})
	assert.Equal(t, ErrNotReady, err)

	written := sink.writeCount()
	assert.NoError(t, v.Shutdown(), "second shutdown is a no-op")
	assert.Equal(t, written, sink.writeCount())
}

func TestStartSources(t *testing.T) {
	defer noDelays()()
	origUDPListen := udpListen
	defer func() {
		udpListen = origUDPListen
	}()
	stub := createUDPStub()
	udpListen = func(cfg udpcmd.Config) (UDPListener, error) {
		return stub, nil
	}

	cfg := testVehicleConfig()
	cfg.Sources = []string{SourceUDP}
	v, sink := newTestVehicle(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, v.Start(ctx))
	go v.Run(ctx)
	<-stub.startChan

	stub.fnChan <- func() {
		stub.callbacks.Drive(-1500, 0)
	}
	assert.Eventually(t, func() bool {
		return sink.dutyOf(LeftRear.PWM) == 500 && sink.dutyOf(LeftRear.Reverse) == 4095
	}, time.Second, 5*time.Millisecond)

	assert.NoError(t, v.Shutdown())
	assert.True(t, stub.closed)
}

func TestCANSourceReportsPulses(t *testing.T) {
	cfg := testVehicleConfig()
	cfg.Sources = []string{SourceCAN}
	v, _ := newTestVehicle(t, cfg)
	require.Len(t, v.reporters, 1)
	assert.IsType(t, &CANReporter{}, v.reporters[0])
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "Uninitialized", Uninitialized.String())
	assert.Equal(t, "Calibrating", Calibrating.String())
	assert.Equal(t, "Ready", Ready.String())
	assert.Equal(t, "ShuttingDown", ShuttingDown.String())
	assert.Equal(t, "Terminated", Terminated.String())
	assert.Equal(t, "Unknown", State(99).String())
}
