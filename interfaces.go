package skidsteer

import (
	"context"
	"github.com/jd3nn1s/skidsteer/cancmd"
	"github.com/jd3nn1s/skidsteer/mqttcmd"
	"github.com/jd3nn1s/skidsteer/udpcmd"
)

type CANBus interface {
	Close() error
	Start(context.Context, cancmd.Callbacks) error
	SendPulses(left, right int) error
}

type UDPListener interface {
	Close() error
	Start(context.Context, udpcmd.Callbacks) error
}

type MQTTSubscriber interface {
	Close() error
	Start(context.Context, mqttcmd.Callbacks) error
}

// Reporter is told about every applied command.
type Reporter interface {
	Report(prev, cur *Status) error
}
