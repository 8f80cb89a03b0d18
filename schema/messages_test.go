package schema

import (
	"errors"
	"testing"
)

func TestDecodeProbeMessageClosedSet(t *testing.T) {
	cases := []struct {
		name  string
		data  string
		valid bool
	}{
		{"ping", `{"action":"HEARTBEAT_PING"}`, true},
		{"pong", `{"action":"HEARTBEAT_PONG"}`, true},
		{"start", `{"action":"START_RECORDING","targetTabId":"tab-7"}`, true},
		{"stop", `{"action":"STOP_RECORDING"}`, true},
		{"ready", `{"action":"RECORDER_READY","viewport":{"width":1280,"height":800}}`, true},
		{"event", `{"action":"EVENT_CAPTURED","event":{"action":{"type":"click"}}}`, true},
		{"unknown-action", `{"action":"SELF_DESTRUCT"}`, false},
		{"empty-action", `{}`, false},
		{"event-without-payload", `{"action":"EVENT_CAPTURED"}`, false},
		{"event-unknown-type", `{"action":"EVENT_CAPTURED","event":{"action":{"type":"teleport"}}}`, false},
		{"garbage", `{`, false},
	}
	for _, tc := range cases {
		msg, err := DecodeProbeMessage([]byte(tc.data))
		if tc.valid && err != nil {
			t.Fatalf("case %q expected valid, got error: %v", tc.name, err)
		}
		if !tc.valid {
			if err == nil {
				t.Fatalf("case %q expected error, got %+v", tc.name, msg)
			}
			if !errors.Is(err, ErrUnknownProbeMessage) {
				t.Fatalf("case %q expected ErrUnknownProbeMessage, got %v", tc.name, err)
			}
		}
	}
}

func TestProbeMessageRoundTrip(t *testing.T) {
	msg := ProbeMessage{
		Action: ProbeEventCaptured,
		Event: &ProbeCapturedEvent{
			Action: ActionDescriptor{Type: ActionInput, Value: "hello"},
			Target: &ElementContext{Selector: "#email", Text: "Email"},
		},
	}
	data, err := EncodeProbeMessage(msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeProbeMessage(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Action != ProbeEventCaptured {
		t.Fatalf("action = %q", decoded.Action)
	}
	if decoded.Event == nil || decoded.Event.Action.Value != "hello" {
		t.Fatalf("event payload lost: %+v", decoded.Event)
	}
	if decoded.Event.Target == nil || decoded.Event.Target.Selector != "#email" {
		t.Fatalf("target lost: %+v", decoded.Event.Target)
	}
}
