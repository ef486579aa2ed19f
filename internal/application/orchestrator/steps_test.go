package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smithcommajoseph/async-transport/pkg/domain"
	"github.com/smithcommajoseph/async-transport/pkg/ports"
	"github.com/smithcommajoseph/async-transport/pkg/transport"
)

type fakeFetcher struct {
	mu       sync.Mutex
	requests []*ports.FetchRequest
	response any
	err      error
}

func (f *fakeFetcher) Fetch(_ context.Context, req *ports.FetchRequest) (any, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return f.response, f.err
}

type fakeLLM struct {
	mu      sync.Mutex
	prompts []string
	reply   string
}

func (f *fakeLLM) Complete(_ context.Context, req *ports.CompletionRequest) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, req.Prompt)
	f.mu.Unlock()
	return f.reply, nil
}

func TestStepBuilder_StaticSerialChain(t *testing.T) {
	b := NewStepBuilder(nil, nil)
	items, err := b.Build(context.Background(), []domain.Step{
		{Kind: domain.StepKindStatic, Value: "first"},
		{Kind: domain.StepKindStatic},
		{Kind: domain.StepKindStatic, Error: "boom", DelayMs: 5},
		{Kind: domain.StepKindStatic},
	})
	require.NoError(t, err)
	require.Len(t, items, 4)

	res, err := transport.Invoke(context.Background(), items, transport.WithStrategy(transport.Serial))
	require.NoError(t, err)

	assert.True(t, res.HasErrors)
	assert.Equal(t, []any{"first", "first", nil, nil}, res.Data)
	assert.EqualError(t, res.Errors[2], "boom")
}

func TestStepBuilder_StaticDelayHonoursContext(t *testing.T) {
	fn := staticStep(domain.Step{Kind: domain.StepKindStatic, DelayMs: 10_000})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := fn(ctx, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStepBuilder_EagerStepIsFuture(t *testing.T) {
	b := NewStepBuilder(nil, nil)
	items, err := b.Build(context.Background(), []domain.Step{
		{Kind: domain.StepKindStatic, Value: 1, Eager: true},
		{Kind: domain.StepKindStatic, Value: 2},
	})
	require.NoError(t, err)

	_, isFuture := items[0].(*transport.Future)
	assert.True(t, isFuture)
	_, isFunc := items[1].(transport.Func)
	assert.True(t, isFunc)
}

func TestStepBuilder_HTTPSendsArgsAsBody(t *testing.T) {
	fetcher := &fakeFetcher{response: map[string]any{"ok": true}}
	b := NewStepBuilder(fetcher, nil)

	items, err := b.Build(context.Background(), []domain.Step{
		{Kind: domain.StepKindStatic, Value: map[string]any{"id": 7}},
		{Kind: domain.StepKindHTTP, Method: "POST", URL: "http://svc/items"},
		{Kind: domain.StepKindHTTP, URL: "http://svc/explicit", Body: `{"fixed":1}`},
	})
	require.NoError(t, err)

	res, err := transport.Invoke(context.Background(), items, transport.WithStrategy(transport.Serial))
	require.NoError(t, err)
	assert.False(t, res.HasErrors)

	require.Len(t, fetcher.requests, 2)
	assert.Equal(t, "http://svc/items", fetcher.requests[0].URL)
	assert.JSONEq(t, `{"id":7}`, string(fetcher.requests[0].Body))
	assert.JSONEq(t, `{"fixed":1}`, string(fetcher.requests[1].Body))
}

func TestStepBuilder_HTTPFailureIsOutcome(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("connection refused")}
	b := NewStepBuilder(fetcher, nil)

	items, err := b.Build(context.Background(), []domain.Step{{Kind: domain.StepKindHTTP, URL: "http://svc"}})
	require.NoError(t, err)

	res, err := transport.Invoke(context.Background(), items)
	require.NoError(t, err)
	assert.True(t, res.HasErrors)
	assert.EqualError(t, res.Errors[0], "connection refused")
}

func TestStepBuilder_LLMAppendsPreviousResult(t *testing.T) {
	llm := &fakeLLM{reply: "summary"}
	b := NewStepBuilder(nil, llm)

	items, err := b.Build(context.Background(), []domain.Step{
		{Kind: domain.StepKindStatic, Value: map[string]any{"n": 1}},
		{Kind: domain.StepKindLLM, Prompt: "Summarize"},
	})
	require.NoError(t, err)

	res, err := transport.Invoke(context.Background(), items, transport.WithStrategy(transport.Serial))
	require.NoError(t, err)
	assert.Equal(t, "summary", res.Data[1])

	require.Len(t, llm.prompts, 1)
	prev, _ := json.Marshal(map[string]any{"n": 1})
	assert.Equal(t, "Summarize\n\nPrevious result:\n"+string(prev), llm.prompts[0])
}

func TestStepBuilder_MissingAdapters(t *testing.T) {
	b := NewStepBuilder(nil, nil)

	_, err := b.Build(context.Background(), []domain.Step{{Kind: domain.StepKindHTTP, URL: "http://svc"}})
	assert.ErrorContains(t, err, "step 0")

	_, err = b.Build(context.Background(), []domain.Step{{Kind: domain.StepKindLLM, Prompt: "p"}})
	assert.ErrorContains(t, err, "no LLM client")
}

func TestStepBuilder_InvalidStepStartsNoEagerWork(t *testing.T) {
	llm := &fakeLLM{reply: "ok"}
	b := NewStepBuilder(nil, llm)

	_, err := b.Build(context.Background(), []domain.Step{
		{Kind: domain.StepKindLLM, Prompt: "eager", Eager: true},
		{Kind: domain.StepKindHTTP, URL: "http://example.invalid"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 1")

	// give a wrongly started future time to reach the client
	time.Sleep(20 * time.Millisecond)
	llm.mu.Lock()
	defer llm.mu.Unlock()
	assert.Empty(t, llm.prompts)
}
