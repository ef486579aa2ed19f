package transport

import (
	"encoding/json"
	"errors"
)

// Outcome is the settlement of one operation. Value is meaningful only when
// Err is nil.
type Outcome struct {
	Err   error
	Value any
}

// Result aggregates the outcomes of a batch. Errors[i] and Data[i] belong to
// the i-th operation; at most one of them is populated.
type Result struct {
	HasErrors bool
	Errors    []error
	Data      []any
}

// aggregate folds outcomes into a Result in a single pass.
func aggregate(outcomes []Outcome) *Result {
	res := &Result{
		Errors: make([]error, 0, len(outcomes)),
		Data:   make([]any, 0, len(outcomes)),
	}
	for _, o := range outcomes {
		value := o.Value
		if o.Err != nil {
			res.HasErrors = true
			value = nil
		}
		res.Errors = append(res.Errors, o.Err)
		res.Data = append(res.Data, value)
	}
	return res
}

type resultJSON struct {
	HasErrors bool      `json:"hasErrors"`
	Errors    []*string `json:"errors"`
	Data      []any     `json:"data"`
}

// MarshalJSON encodes errors as their messages, or null for success.
func (r Result) MarshalJSON() ([]byte, error) {
	out := resultJSON{
		HasErrors: r.HasErrors,
		Errors:    make([]*string, len(r.Errors)),
		Data:      r.Data,
	}
	if out.Data == nil {
		out.Data = []any{}
	}
	for i, err := range r.Errors {
		if err != nil {
			msg := err.Error()
			out.Errors[i] = &msg
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores error messages as errors. The serial sentinel is
// restored as ErrSerialFetchFailure.
func (r *Result) UnmarshalJSON(data []byte) error {
	var in resultJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	r.HasErrors = in.HasErrors
	r.Data = in.Data
	r.Errors = make([]error, len(in.Errors))
	for i, msg := range in.Errors {
		switch {
		case msg == nil:
		case *msg == ErrSerialFetchFailure.Error():
			r.Errors[i] = ErrSerialFetchFailure
		default:
			r.Errors[i] = errors.New(*msg)
		}
	}
	return nil
}
