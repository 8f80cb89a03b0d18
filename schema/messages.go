package schema

import (
	"encoding/json"
	"fmt"
)

// ProbeAction discriminates the orchestrator<->probe message union.
type ProbeAction string

const (
	// ProbeStartRecording tells the probe to begin reporting events.
	ProbeStartRecording ProbeAction = "START_RECORDING"
	// ProbeStopRecording tells the probe to stop reporting events.
	ProbeStopRecording ProbeAction = "STOP_RECORDING"
	// ProbeHeartbeatPing asks the probe whether it is alive.
	ProbeHeartbeatPing ProbeAction = "HEARTBEAT_PING"
	// ProbeHeartbeatPong is the probe's liveness reply.
	ProbeHeartbeatPong ProbeAction = "HEARTBEAT_PONG"
	// ProbeEventCaptured carries one captured user action from the probe.
	ProbeEventCaptured ProbeAction = "EVENT_CAPTURED"
	// ProbeRecorderReady announces a freshly injected probe.
	ProbeRecorderReady ProbeAction = "RECORDER_READY"
)

// ProbeCapturedEvent is the fixed shape the probe emits for a user action.
// Event ids and timestamps are assigned by the session on receipt.
type ProbeCapturedEvent struct {
	Action ActionDescriptor `json:"action"`
	Target *ElementContext  `json:"target,omitempty"`
}

// ProbeMessage is the closed message union exchanged with the capture
// probe, tagged by Action. Delivery is at-most-once in both directions;
// only HEARTBEAT_PING is request/response.
type ProbeMessage struct {
	Action      ProbeAction         `json:"action"`
	TargetTabID TabID               `json:"targetTabId,omitempty"`
	Event       *ProbeCapturedEvent `json:"event,omitempty"`
	Viewport    *Viewport           `json:"viewport,omitempty"`
}

// DecodeProbeMessage parses and validates a probe message. Messages whose
// discriminator falls outside the closed set are rejected so the receiving
// switch stays exhaustive.
func DecodeProbeMessage(data []byte) (ProbeMessage, error) {
	var msg ProbeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ProbeMessage{}, fmt.Errorf("%w: %v", ErrUnknownProbeMessage, err)
	}
	switch msg.Action {
	case ProbeStartRecording, ProbeStopRecording, ProbeHeartbeatPing,
		ProbeHeartbeatPong, ProbeEventCaptured, ProbeRecorderReady:
	default:
		return ProbeMessage{}, fmt.Errorf("%w: %q", ErrUnknownProbeMessage, msg.Action)
	}
	if msg.Action == ProbeEventCaptured {
		if msg.Event == nil {
			return ProbeMessage{}, fmt.Errorf("%w: EVENT_CAPTURED without event", ErrUnknownProbeMessage)
		}
		if !KnownActionType(msg.Event.Action.Type) {
			return ProbeMessage{}, fmt.Errorf("%w: action type %q", ErrUnknownProbeMessage, msg.Event.Action.Type)
		}
	}
	return msg, nil
}

// EncodeProbeMessage serializes a probe message for the wire.
func EncodeProbeMessage(msg ProbeMessage) ([]byte, error) {
	return json.Marshal(msg)
}
