package schema

// SessionID identifies one continuous recording from start to stop.
type SessionID string

// TabID identifies a browser tab. Values come from the tab runtime and are
// opaque to the recorder (the chromedp runtime uses DevTools target ids).
type TabID string

// RecordingID identifies a stored recording.
type RecordingID string

// EventID is a session-scoped event identifier, strictly increasing in
// append order within a session.
type EventID int64

// PageRef identifies the page a snapshot or event belongs to.
type PageRef struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// Viewport describes the recording tab's viewport as reported by the probe.
type Viewport struct {
	Width             int     `json:"width"`
	Height            int     `json:"height"`
	DeviceScaleFactor float64 `json:"deviceScaleFactor,omitempty"`
}

// TabRef is a transport-friendly view of a live tab.
type TabRef struct {
	ID    TabID  `json:"id"`
	URL   string `json:"url,omitempty"`
	Title string `json:"title,omitempty"`
	// OpenerTabID names the tab that opened this one, when known.
	OpenerTabID TabID `json:"openerTabId,omitempty"`
}
