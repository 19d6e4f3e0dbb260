package types

import "time"

// Kind tags how much of an activity is known
type Kind string

const (
	// KindPlaceholder marks a record known only by its window; no service
	// has confirmed the activity yet.
	KindPlaceholder Kind = "placeholder"
	// KindBound marks a record with a confirmed activity id.
	KindBound Kind = "bound"
)

// WindowKind classifies top-level windows as reported by the windowing system
type WindowKind string

const (
	WindowNormal  WindowKind = "normal"
	WindowDialog  WindowKind = "dialog"
	WindowDesktop WindowKind = "desktop"
	WindowDock    WindowKind = "dock"
	WindowSplash  WindowKind = "splash"
)

// Window is a top-level window handle borrowed from the window adapter
type Window struct {
	XID   uint32     `json:"xid"`
	Kind  WindowKind `json:"kind"`
	Title string     `json:"title,omitempty"`
}

// ActivityService is the control interface a running activity process
// exposes on the session bus
type ActivityService interface {
	ID() string
	ServiceName() string
	SetActive(active bool) error
}

// Activity represents one tracked activity instance
type Activity struct {
	ID          string          `json:"id"`
	Kind        Kind            `json:"kind"`
	ServiceName string          `json:"service_name,omitempty"`
	WindowXID   *uint32         `json:"window_xid,omitempty"`
	Service     ActivityService `json:"-"`
	Bundle      *Bundle         `json:"bundle,omitempty"`
	LaunchTime  time.Time       `json:"launch_time"`
	LaunchSeq   uint64          `json:"launch_seq"`
	Launched    bool            `json:"launched"`
}

// HasWindow reports whether a window is currently attached
func (a *Activity) HasWindow() bool {
	return a.WindowXID != nil
}

// Bundle describes an installable activity package
type Bundle struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	ServiceName string `json:"service_name" yaml:"service_name"`
	Version     string `json:"version" yaml:"version"`
	Exec        string `json:"exec,omitempty" yaml:"exec"`
	Icon        string `json:"icon,omitempty" yaml:"icon"`
}

// Stats contains home model statistics
type Stats struct {
	TotalActivities int     `json:"total_activities"`
	Placeholders    int     `json:"placeholders"`
	PendingLaunches int     `json:"pending_launches"`
	FocusedID       *string `json:"focused_id,omitempty"`
}
