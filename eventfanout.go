package scribe

import (
	"pkt.systems/scribe/core"
	"pkt.systems/scribe/schema"
)

type sessionFanout struct {
	sinks []core.EventSink
}

func (f sessionFanout) OnSessionEvent(event schema.SessionEvent) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnSessionEvent(event)
	}
}
