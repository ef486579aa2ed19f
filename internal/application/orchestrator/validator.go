package orchestrator

import (
	"errors"
	"fmt"

	"github.com/smithcommajoseph/async-transport/pkg/domain"
)

// ErrValidation is wrapped by every ValidationError.
var ErrValidation = errors.New("validation failed")

// ValidationError describes the first invalid field of a batch.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Validator validates batch requests
type Validator struct {
	maxSteps   int
	llmEnabled bool
}

// NewValidator creates a new batch validator. llm steps are only accepted
// when llmEnabled is set.
func NewValidator(maxSteps int, llmEnabled bool) *Validator {
	return &Validator{
		maxSteps:   maxSteps,
		llmEnabled: llmEnabled,
	}
}

// Validate validates a batch request. The strategy is not checked; unknown
// values run as parallel.
func (v *Validator) Validate(req *domain.BatchRequest) error {
	if req == nil {
		return &ValidationError{Field: "request", Msg: "request is nil"}
	}

	if len(req.Steps) == 0 {
		return &ValidationError{Field: "steps", Msg: "at least one step is required"}
	}
	if len(req.Steps) > v.maxSteps {
		return &ValidationError{Field: "steps", Msg: fmt.Sprintf("at most %d steps are allowed, got %d", v.maxSteps, len(req.Steps))}
	}

	for i, step := range req.Steps {
		if err := v.validateStep(step); err != nil {
			return &ValidationError{Field: fmt.Sprintf("steps[%d]", i), Msg: err.Error()}
		}
	}

	return nil
}

// validateStep validates a single step
func (v *Validator) validateStep(step domain.Step) error {
	switch step.Kind {
	case domain.StepKindStatic:
		if step.DelayMs < 0 {
			return fmt.Errorf("delay_ms must not be negative")
		}
	case domain.StepKindHTTP:
		if step.URL == "" {
			return fmt.Errorf("url is required for http steps")
		}
	case domain.StepKindLLM:
		if !v.llmEnabled {
			return fmt.Errorf("llm steps are not enabled")
		}
		if step.Prompt == "" {
			return fmt.Errorf("prompt is required for llm steps")
		}
	case "":
		return fmt.Errorf("kind is required")
	default:
		return fmt.Errorf("unknown kind %q", step.Kind)
	}
	return nil
}
