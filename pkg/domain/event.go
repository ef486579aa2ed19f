package domain

import "time"

// EventType identifies an invocation event.
type EventType string

const (
	EventTypeInvocationSubmitted EventType = "invocation.submitted"
	EventTypeStepSettled         EventType = "step.settled"
	EventTypeInvocationCompleted EventType = "invocation.completed"
)

// Event topics.
const (
	TopicInvocations = "invocation.events"
	TopicSteps       = "step.events"
)

// Event is published on the event bus while invocations progress.
type Event struct {
	ID           string         `json:"id"`
	Type         EventType      `json:"type"`
	InvocationID string         `json:"invocation_id"`
	Timestamp    time.Time      `json:"timestamp"`
	Data         map[string]any `json:"data,omitempty"`
}

// DataStepsSettled is the invocation.completed data key holding the number
// of step.settled events published before it.
const DataStepsSettled = "steps_settled"
