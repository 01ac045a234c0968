// Package events provides the in-process event bus used to push dashboard
// changes to connected clients.
package events

import (
	"time"
)

// EventType represents different event types
type EventType string

const (
	DashboardRefreshed EventType = "DASHBOARD_REFRESHED"
	DatasetUpdated     EventType = "DATASET_UPDATED"
	FeedFailed         EventType = "FEED_FAILED"
	RangeChanged       EventType = "RANGE_CHANGED"
	ErrorOccurred      EventType = "ERROR_OCCURRED"
)

// AllTypes lists every event type, used by stream handlers without a filter
var AllTypes = []EventType{
	DashboardRefreshed,
	DatasetUpdated,
	FeedFailed,
	RangeChanged,
	ErrorOccurred,
}

// Event represents a system event
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
	Module    string                 `json:"module"`
}
