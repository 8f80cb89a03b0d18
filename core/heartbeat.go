package core

import (
	"context"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/scribe/schema"
)

// heartbeatLoop pings the active tab's probe once per tick and re-injects
// on any miss. This is the sole re-attachment mechanism: navigations, probe
// crashes, and tab-switch races are all repaired here rather than by
// bespoke handlers. Tick handling is synchronous, so ping attempts never
// overlap; PingTimeout is bounded by the tick interval.
func (o *Orchestrator) heartbeatLoop(ctx context.Context, sess *recordingSession, done chan<- struct{}) {
	defer close(done)
	log := pslog.Ctx(ctx)
	ticker := time.NewTicker(o.cfg.HeartbeatInterval)
	defer ticker.Stop()
	log.Debug("heartbeat loop started", "interval", o.cfg.HeartbeatInterval)
	for {
		select {
		case <-ctx.Done():
			log.Debug("heartbeat loop stopped")
			return
		case <-ticker.C:
			o.heartbeatTick(ctx, sess, log)
		}
	}
}

func (o *Orchestrator) heartbeatTick(ctx context.Context, sess *recordingSession, log pslog.Logger) {
	tabID := sess.ActiveTab()
	if tabID == "" {
		return
	}
	pingCtx, cancel := context.WithTimeout(ctx, o.cfg.PingTimeout)
	reply, err := o.runtime.SendMessage(pingCtx, tabID, schema.ProbeMessage{Action: schema.ProbeHeartbeatPing})
	cancel()
	if err == nil && reply.Action == schema.ProbeHeartbeatPong {
		return
	}
	if ctx.Err() != nil {
		return
	}
	// Timeout, channel error, and a wrong reply all mean the same thing:
	// the probe is not alive on that tab.
	if err != nil {
		log.Debug("heartbeat missed", "tab", tabID, "err", err)
	} else {
		log.Debug("heartbeat missed", "tab", tabID, "reply", reply.Action)
	}
	// Re-injection gets one tick interval; a hung injection must not stall
	// the loop. The next tick retries.
	injectCtx, cancelInject := context.WithTimeout(ctx, o.cfg.HeartbeatInterval)
	injectErr := o.injectProbe(injectCtx, tabID)
	cancelInject()
	if injectErr != nil {
		log.Warn("probe re-injection failed", "tab", tabID, "err", injectErr)
		return
	}
	log.Info("probe re-injected", "tab", tabID)
}
