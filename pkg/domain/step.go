package domain

// StepKind identifies how a step is executed.
type StepKind string

const (
	StepKindHTTP   StepKind = "http"
	StepKindLLM    StepKind = "llm"
	StepKindStatic StepKind = "static"
)

// Step describes one operation of a batch.
type Step struct {
	Name string   `json:"name,omitempty" yaml:"name,omitempty"`
	Kind StepKind `json:"kind" yaml:"kind"`

	// Eager steps are started when the batch is built and do not receive
	// the previous step's value.
	Eager bool `json:"eager,omitempty" yaml:"eager,omitempty"`

	// http
	Method  string            `json:"method,omitempty" yaml:"method,omitempty"`
	URL     string            `json:"url,omitempty" yaml:"url,omitempty"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body    string            `json:"body,omitempty" yaml:"body,omitempty"`

	// llm
	Prompt    string `json:"prompt,omitempty" yaml:"prompt,omitempty"`
	Model     string `json:"model,omitempty" yaml:"model,omitempty"`
	MaxTokens int    `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`

	// static
	Value   any    `json:"value,omitempty" yaml:"value,omitempty"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
	DelayMs int    `json:"delay_ms,omitempty" yaml:"delay_ms,omitempty"`
}

// BatchRequest is a set of steps to run under one strategy.
type BatchRequest struct {
	Strategy string `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	Steps    []Step `json:"steps" yaml:"steps"`
	Async    bool   `json:"async,omitempty" yaml:"async,omitempty"`
}
