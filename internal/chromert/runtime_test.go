package chromert

import (
	"strings"
	"testing"
	"time"

	"github.com/chromedp/cdproto/target"
	"pkt.systems/scribe/core"
	"pkt.systems/scribe/schema"
)

func TestDispatchExprWrapsMessage(t *testing.T) {
	expr, err := dispatchExpr(schema.ProbeMessage{Action: schema.ProbeHeartbeatPing})
	if err != nil {
		t.Fatalf("dispatchExpr: %v", err)
	}
	if !strings.HasPrefix(expr, "window.__scribeDispatch(") {
		t.Fatalf("unexpected expr: %s", expr)
	}
	if !strings.Contains(expr, `"action":"HEARTBEAT_PING"`) {
		t.Fatalf("missing action in expr: %s", expr)
	}
}

func TestRefFromInfo(t *testing.T) {
	info := &target.Info{
		TargetID: "ABC123",
		Type:     "page",
		Title:    "Example",
		URL:      "https://example.com",
		OpenerID: "DEF456",
	}
	tab := refFromInfo(info)
	if tab.ID != "ABC123" || tab.OpenerTabID != "DEF456" {
		t.Fatalf("unexpected ref: %+v", tab)
	}
	if tab.URL != "https://example.com" || tab.Title != "Example" {
		t.Fatalf("unexpected ref: %+v", tab)
	}
}

// The browser listener shares a goroutine with the CDP response reader, so
// it must return even while an observer callback is parked on a round-trip.
func TestTabEventsDispatchOffListenerGoroutine(t *testing.T) {
	r := &Runtime{
		tabs:      make(map[schema.TabID]*tabHandle),
		known:     make(map[schema.TabID]schema.TabRef),
		observers: make(map[int]core.TabObserver),
	}
	obs := &stallingObserver{release: make(chan struct{}), seen: make(chan string, 3)}
	r.Subscribe(obs)

	done := make(chan struct{})
	go func() {
		r.browserListener(&target.EventTargetCreated{TargetInfo: &target.Info{
			TargetID: "T1", Type: "page", URL: "https://example.com",
		}})
		r.browserListener(&target.EventTargetInfoChanged{TargetInfo: &target.Info{
			TargetID: "T1", Type: "page", Attached: true,
		}})
		r.browserListener(&target.EventTargetDestroyed{TargetID: "T1"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("listener blocked on observer callbacks")
	}

	close(obs.release)
	got := map[string]bool{}
	timeout := time.After(time.Second)
	for len(got) < 3 {
		select {
		case name := <-obs.seen:
			got[name] = true
		case <-timeout:
			t.Fatalf("callbacks delivered = %v, want created/activated/removed", got)
		}
	}
}

type stallingObserver struct {
	release chan struct{}
	seen    chan string
}

func (o *stallingObserver) OnTabCreated(schema.TabRef)  { o.seen <- "created"; <-o.release }
func (o *stallingObserver) OnTabActivated(schema.TabID) { o.seen <- "activated"; <-o.release }
func (o *stallingObserver) OnTabRemoved(schema.TabID)   { o.seen <- "removed"; <-o.release }

func TestProbeScriptEmbedded(t *testing.T) {
	for _, marker := range []string{"__scribeDispatch", "scribeEmit", "EVENT_CAPTURED"} {
		if !strings.Contains(probeScript, marker) {
			t.Fatalf("probe script missing %q", marker)
		}
	}
}
