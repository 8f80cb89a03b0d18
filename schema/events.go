package schema

import "time"

// ActionType is the closed set of user actions a session can record.
type ActionType string

const (
	// ActionSessionStart marks the beginning of a recording.
	ActionSessionStart ActionType = "session_start"
	// ActionSessionEnd marks the end of a recording.
	ActionSessionEnd ActionType = "session_end"
	// ActionClick is a single click on an element.
	ActionClick ActionType = "click"
	// ActionDblClick is a double click on an element.
	ActionDblClick ActionType = "dblclick"
	// ActionInput is a text input mutation.
	ActionInput ActionType = "input"
	// ActionChange is a committed form control change.
	ActionChange ActionType = "change"
	// ActionKeyDown is a key press.
	ActionKeyDown ActionType = "keydown"
	// ActionKeyUp is a key release.
	ActionKeyUp ActionType = "keyup"
	// ActionNavigation is a page navigation.
	ActionNavigation ActionType = "navigation"
	// ActionScroll is a scroll gesture.
	ActionScroll ActionType = "scroll"
	// ActionTabSwitched records the user moving to another tab.
	ActionTabSwitched ActionType = "tab_switched"
	// ActionTabOpened records a tab opened from the active tab.
	ActionTabOpened ActionType = "tab_opened"
	// ActionTabClosed records the active tab being closed.
	ActionTabClosed ActionType = "tab_closed"
)

// KnownActionType reports whether t belongs to the closed action set.
func KnownActionType(t ActionType) bool {
	switch t {
	case ActionSessionStart, ActionSessionEnd, ActionClick, ActionDblClick,
		ActionInput, ActionChange, ActionKeyDown, ActionKeyUp,
		ActionNavigation, ActionScroll, ActionTabSwitched, ActionTabOpened,
		ActionTabClosed:
		return true
	}
	return false
}

// ActionDescriptor describes what the user did. Only fields relevant to the
// action type are populated.
type ActionDescriptor struct {
	Type    ActionType `json:"type"`
	Value   string     `json:"value,omitempty"`
	Key     string     `json:"key,omitempty"`
	URL     string     `json:"url,omitempty"`
	FromURL string     `json:"fromUrl,omitempty"`
	ToURL   string     `json:"toUrl,omitempty"`
	ScrollX int        `json:"scrollX,omitempty"`
	ScrollY int        `json:"scrollY,omitempty"`
}

// BoundingBox is the element's viewport-relative box at capture time.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ElementContext carries redundant selector strategies for the target
// element. No single strategy survives every replay, so the probe reports
// structural, textual, and positional handles together.
type ElementContext struct {
	Selector  string      `json:"selector,omitempty"`
	ElementID string      `json:"elementId,omitempty"`
	XPath     string      `json:"xpath,omitempty"`
	Text      string      `json:"text,omitempty"`
	Role      string      `json:"role,omitempty"`
	Box       BoundingBox `json:"box"`
}

// BrowserState is a textual summary of the page, typically derived from the
// accessibility tree.
type BrowserState struct {
	SummaryText string `json:"summaryText"`
}

// StateSnapshot is a point-in-time description of one tab's page state.
type StateSnapshot struct {
	Timestamp    time.Time     `json:"timestamp"`
	Page         PageRef       `json:"page"`
	BrowserState *BrowserState `json:"browserState,omitempty"`
	// Screenshot is a base64-encoded PNG, empty when capture failed.
	Screenshot string `json:"screenshot,omitempty"`
}

// CapturedEvent is one entry in a session's append-only event log. State is
// attached asynchronously after creation and is the only field mutated
// post-append.
type CapturedEvent struct {
	ID        EventID          `json:"id"`
	Timestamp time.Time        `json:"timestamp"`
	Action    ActionDescriptor `json:"action"`
	Target    *ElementContext  `json:"target,omitempty"`
	State     *StateSnapshot   `json:"state,omitempty"`
}
