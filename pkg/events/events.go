package events

import (
	"time"

	"github.com/google/uuid"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "PERSPECTIVES_JOB_FINISHED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent helps embed common logic if needed,
// strictly creating valid implementations is preferred though.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

const (
	EventPerspectivesJobFinished = "PERSPECTIVES_JOB_FINISHED"
	EventPerspectivesJobFailed   = "PERSPECTIVES_JOB_FAILED"
)

// NewJobFinishedEvent is published when a perspectives job reaches a
// successful terminal state. External notification consumers fan it out.
func NewJobFinishedEvent(jobId, aspectId uuid.UUID, jobType string) BaseEvent {
	return BaseEvent{
		Type: EventPerspectivesJobFinished,
		Data: map[string]interface{}{
			"job_id":    jobId.String(),
			"aspect_id": aspectId.String(),
			"job_type":  jobType,
		},
		OccurredAt: time.Now(),
	}
}

// NewJobFailedEvent is published when a perspectives job ends in error.
func NewJobFailedEvent(jobId, aspectId uuid.UUID, jobType string, reason string) BaseEvent {
	return BaseEvent{
		Type: EventPerspectivesJobFailed,
		Data: map[string]interface{}{
			"job_id":    jobId.String(),
			"aspect_id": aspectId.String(),
			"job_type":  jobType,
			"reason":    reason,
		},
		OccurredAt: time.Now(),
	}
}
