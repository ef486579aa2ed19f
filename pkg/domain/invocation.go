package domain

import (
	"time"

	"github.com/smithcommajoseph/async-transport/pkg/transport"
)

// InvocationStatus is the lifecycle state of an invocation.
type InvocationStatus string

const (
	InvocationStatusSubmitted InvocationStatus = "submitted"
	InvocationStatusRunning   InvocationStatus = "running"
	InvocationStatusCompleted InvocationStatus = "completed"
	InvocationStatusFailed    InvocationStatus = "failed"
)

// IsTerminal reports whether no further transitions happen.
func (s InvocationStatus) IsTerminal() bool {
	return s == InvocationStatusCompleted || s == InvocationStatusFailed
}

// Invocation is one submitted batch and, once finished, its result.
type Invocation struct {
	ID          string             `json:"id"`
	Strategy    transport.Strategy `json:"strategy"`
	Status      InvocationStatus   `json:"status"`
	Steps       []Step             `json:"steps"`
	Result      *transport.Result  `json:"result,omitempty"`
	Error       string             `json:"error,omitempty"`
	SubmittedAt time.Time          `json:"submitted_at"`
	StartedAt   *time.Time         `json:"started_at,omitempty"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`
}
