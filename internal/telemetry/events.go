// Package telemetry defines the typed event structs that flow over the
// WebSocket connection between fieldlined and its clients. These types serve
// as documentation for the event schema; most internal code still broadcasts
// events as map[string]any for flexibility.
package telemetry

import "time"

// EventType identifies the kind of WebSocket event.
type EventType string

const (
	EventHeartbeat      EventType = "heartbeat"
	EventState          EventType = "state"
	EventProgress       EventType = "progress"
	EventLog            EventType = "log"
	EventHemisphere     EventType = "hemisphere"
	EventClassification EventType = "classification"
	EventBatchSummary   EventType = "batch_summary"
)

// Event is the base envelope shared by every event type.
type Event struct {
	Type EventType `json:"type"`
	TS   string    `json:"ts"`
}

// NowTS returns the current UTC time as an RFC 3339 nano string, matching the
// timestamp format used across all events.
func NowTS() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// Heartbeat is sent periodically so clients can detect connectivity and
// monitor daemon uptime.
type Heartbeat struct {
	Event
	State         string `json:"state"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// StateTransition is emitted whenever the daemon moves between operating
// states (e.g. IDLE -> CLASSIFYING).
type StateTransition struct {
	Event
	From string `json:"from"`
	To   string `json:"to"`
}

// Progress reports incremental completion of a long-running batch phase.
type Progress struct {
	Event
	Stage   string  `json:"stage"`
	Percent float64 `json:"percent"`
	Detail  string  `json:"detail"`
}

// LogLine carries a human-readable log message at a severity level.
type LogLine struct {
	Event
	Level   string `json:"level"`
	Message string `json:"message"`
}

// HemisphereAttempt records the raw outcome of one footpoint query, the
// classifier's per-hemisphere diagnostic trail.
type HemisphereAttempt struct {
	Event
	Hemisphere string  `json:"hemisphere"`
	Found      bool    `json:"found"`
	AltKm      float64 `json:"alt_km,omitempty"`
	LatDeg     float64 `json:"lat_deg,omitempty"`
	LonDeg     float64 `json:"lon_deg,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// ClassificationResult announces the outcome of one single-point
// classification: the field-line category and its numeric code.
type ClassificationResult struct {
	Event
	X1             float64 `json:"x1"`
	X2             float64 `json:"x2"`
	X3             float64 `json:"x3"`
	DateTime       string  `json:"datetime"`
	Classification string  `json:"classification"`
	Code           int     `json:"code"`
	FoundCount     int     `json:"found_count"`
}

// BatchSummary is the end-of-run report for a batch job: how many rows
// landed in each category.
type BatchSummary struct {
	Event
	Job    string `json:"job"`
	Rows   int    `json:"rows"`
	Closed int    `json:"closed"`
	Open   int    `json:"open"`
	IMF    int    `json:"imf"`
}
