package engagement

import (
	"fmt"
	"time"
)

// StatusType is the status recorded by a StatusEvent.
type StatusType string

const (
	StatusStarted   StatusType = "started"
	StatusCompleted StatusType = "completed"
	StatusReopened  StatusType = "reopened"
)

// AllStatusTypes returns every status type.
func AllStatusTypes() []StatusType {
	return []StatusType{StatusStarted, StatusCompleted, StatusReopened}
}

// IsValid returns true if the status type is known.
func (s StatusType) IsValid() bool {
	switch s {
	case StatusStarted, StatusCompleted, StatusReopened:
		return true
	default:
		return false
	}
}

func (s StatusType) String() string {
	return string(s)
}

// DisplayState maps a recorded status to the state shown on the timeline.
// Unknown statuses display as pending.
func (s StatusType) DisplayState() DisplayState {
	switch s {
	case StatusStarted:
		return StateCurrent
	case StatusCompleted:
		return StateCompleted
	default:
		return StatePending
	}
}

// ParseStatusType parses a string into a StatusType.
func ParseStatusType(s string) (StatusType, error) {
	status := StatusType(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid status type: %s", s)
	}
	return status, nil
}

// StatusEvent records a status change for one (customer, step) pair.
type StatusEvent struct {
	ID         string     `json:"id"`
	CustomerID string     `json:"customer_id,omitempty"`
	Step       Step       `json:"step"`
	Status     StatusType `json:"status"`
	Notes      string     `json:"notes,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
