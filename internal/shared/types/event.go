package types

import "time"

// EventType identifies a home model change notification
type EventType string

const (
	EventActivityLaunched      EventType = "activity-launched"
	EventActivityAdded         EventType = "activity-added"
	EventActivityRemoved       EventType = "activity-removed"
	EventActiveActivityChanged EventType = "active-activity-changed"
)

// Event is a change notification pushed to shell UI observers.
// Activity is nil for active-activity-changed when nothing is focused.
type Event struct {
	Type      EventType `json:"type"`
	Activity  *Activity `json:"activity,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
