package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/smithcommajoseph/async-transport/pkg/domain"
	"github.com/smithcommajoseph/async-transport/pkg/ports"
	"github.com/smithcommajoseph/async-transport/pkg/transport"
)

// StepBuilder turns steps into transport operations
type StepBuilder struct {
	fetcher ports.Fetcher
	llm     ports.LLMClient
}

// NewStepBuilder creates a step builder. llm may be nil when llm steps are
// disabled.
func NewStepBuilder(fetcher ports.Fetcher, llm ports.LLMClient) *StepBuilder {
	return &StepBuilder{
		fetcher: fetcher,
		llm:     llm,
	}
}

// Build returns one operation per step, in order. Eager steps are started
// with ctx once every step has been validated.
func (b *StepBuilder) Build(ctx context.Context, steps []domain.Step) (transport.Collection, error) {
	fns := make([]transport.Func, len(steps))
	for i, step := range steps {
		fn, err := b.funcFor(step)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		fns[i] = fn
	}

	items := make(transport.Collection, 0, len(steps))
	for i, step := range steps {
		fn := fns[i]
		if step.Eager {
			items = append(items, transport.Go(ctx, func(ctx context.Context) (any, error) {
				return fn(ctx, nil)
			}))
			continue
		}
		items = append(items, fn)
	}
	return items, nil
}

func (b *StepBuilder) funcFor(step domain.Step) (transport.Func, error) {
	switch step.Kind {
	case domain.StepKindStatic:
		return staticStep(step), nil
	case domain.StepKindHTTP:
		if b.fetcher == nil {
			return nil, fmt.Errorf("no fetcher configured")
		}
		return b.httpStep(step), nil
	case domain.StepKindLLM:
		if b.llm == nil {
			return nil, fmt.Errorf("no LLM client configured")
		}
		return b.llmStep(step), nil
	default:
		return nil, fmt.Errorf("unknown kind %q", step.Kind)
	}
}

// staticStep settles with the step's value or error after its delay. A
// step without a value echoes its args.
func staticStep(step domain.Step) transport.Func {
	return func(ctx context.Context, args any) (any, error) {
		if step.DelayMs > 0 {
			timer := time.NewTimer(time.Duration(step.DelayMs) * time.Millisecond)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		if step.Error != "" {
			return nil, errors.New(step.Error)
		}
		if step.Value == nil {
			return args, nil
		}
		return step.Value, nil
	}
}

// httpStep fetches the step's URL. Without an explicit body, args are sent
// as the JSON body.
func (b *StepBuilder) httpStep(step domain.Step) transport.Func {
	return func(ctx context.Context, args any) (any, error) {
		body := []byte(step.Body)
		if len(body) == 0 && args != nil {
			var err error
			if body, err = json.Marshal(args); err != nil {
				return nil, fmt.Errorf("failed to encode args: %w", err)
			}
		}

		return b.fetcher.Fetch(ctx, &ports.FetchRequest{
			Method:  step.Method,
			URL:     step.URL,
			Headers: step.Headers,
			Body:    body,
		})
	}
}

// llmStep completes the step's prompt, with args appended as JSON context.
func (b *StepBuilder) llmStep(step domain.Step) transport.Func {
	return func(ctx context.Context, args any) (any, error) {
		prompt := step.Prompt
		if args != nil {
			data, err := json.Marshal(args)
			if err != nil {
				return nil, fmt.Errorf("failed to encode args: %w", err)
			}
			prompt += "\n\nPrevious result:\n" + string(data)
		}

		text, err := b.llm.Complete(ctx, &ports.CompletionRequest{
			Model:     step.Model,
			Prompt:    prompt,
			MaxTokens: step.MaxTokens,
		})
		if err != nil {
			return nil, err
		}
		return text, nil
	}
}
