package pwm

import (
	log "github.com/sirupsen/logrus"
)

// LogSink is a Sink without hardware behind it, used for dry runs.
type LogSink struct {
	duty [ChannelCount]int
}

func NewLogSink() *LogSink {
	return &LogSink{}
}

func (s *LogSink) SetDuty(channel, onTick, offTick int) error {
	if channel < 0 || channel >= ChannelCount {
		return &ConfigError{Field: "channel", Value: channel, Reason: "no such output"}
	}
	if s.duty[channel] != offTick {
		log.WithField("channel", channel).
			WithField("on", onTick).
			WithField("off", offTick).
			Debug("set duty")
	}
	s.duty[channel] = offTick
	return nil
}

func (s *LogSink) Duty(channel int) int {
	return s.duty[channel]
}

func (s *LogSink) Close() error {
	return nil
}
