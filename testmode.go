package skidsteer

import (
	"context"
	"time"
)

const (
	testThrottleLimit = 3000
	testThrottleStep  = 100
	testSteeringLimit = 4095
	testSteeringStep  = 819
)

var (
	testThrottleInterval = 50 * time.Millisecond
	testSteeringInterval = 250 * time.Millisecond
)

// runTestMode feeds a synthetic sweep of commands instead of real sources.
func (v *Vehicle) runTestMode(ctx context.Context) {
	v.wg.Add(1)
	go func() {
		defer v.wg.Done()
		throttleTick := time.NewTicker(testThrottleInterval)
		defer throttleTick.Stop()
		steeringTick := time.NewTicker(testSteeringInterval)
		defer steeringTick.Stop()

		cmd := Command{}
		throttleDown := false
		steeringDown := false
		for {
			select {
			case <-throttleTick.C:
				if throttleDown {
					cmd.Throttle -= testThrottleStep
				} else {
					cmd.Throttle += testThrottleStep
				}
				if cmd.Throttle >= testThrottleLimit {
					throttleDown = true
				} else if cmd.Throttle <= -testThrottleLimit {
					throttleDown = false
				}
			case <-steeringTick.C:
				if steeringDown {
					cmd.Steering -= testSteeringStep
				} else {
					cmd.Steering += testSteeringStep
				}
				if cmd.Steering >= testSteeringLimit {
					steeringDown = true
				} else if cmd.Steering <= -testSteeringLimit {
					steeringDown = false
				}
			case <-ctx.Done():
				return
			}
			offer(v.cmdChan, cmd)
		}
	}()
}
