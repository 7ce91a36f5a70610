package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	contractx "github.com/tanpawarit/vizta/agent/contract"
	statex "github.com/tanpawarit/vizta/agent/state"
)

type fakeSpecialist struct {
	name   contractx.AgentName
	result contractx.AgentResult
	err    error
	panics bool
	calls  atomic.Int32
}

func (f *fakeSpecialist) Name() contractx.AgentName { return f.name }
func (f *fakeSpecialist) Tools() []contractx.ToolID { return nil }

func (f *fakeSpecialist) Handle(context.Context, contractx.AgentTask) (contractx.AgentResult, error) {
	f.calls.Add(1)
	if f.panics {
		panic("nil map write")
	}
	return f.result, f.err
}

type fakeClassifier struct {
	out       contractx.Classification
	err       error
	calls     int
	histories []string
}

func (f *fakeClassifier) Classify(_ context.Context, _ contractx.Query, history string) (contractx.Classification, error) {
	f.calls++
	f.histories = append(f.histories, history)
	return f.out, f.err
}

type fakeHistory struct {
	mu       sync.Mutex
	recent   []statex.Turn
	err      error
	appended []statex.Turn
	reads    int
}

func (f *fakeHistory) Recent(context.Context, string, int) ([]statex.Turn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	return f.recent, f.err
}

func (f *fakeHistory) Append(_ context.Context, _ string, turns ...statex.Turn) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appended = append(f.appended, turns...)
	return f.err
}

func (f *fakeHistory) Delete(context.Context, string) error { return nil }

type recordingSink struct {
	mu     sync.Mutex
	events []contractx.TelemetryEvent
}

func (r *recordingSink) Emit(_ context.Context, ev contractx.TelemetryEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

type recordingProcessor struct {
	calls []contractx.Response
}

func (r *recordingProcessor) AfterSuccess(_ context.Context, _ contractx.Query, resp contractx.Response) error {
	r.calls = append(r.calls, resp)
	return errors.New("usage table missing")
}

type fakeChat struct {
	name  string
	reply string
	err   error
	calls atomic.Int32
}

func (f *fakeChat) Name() string { return f.name }

func (f *fakeChat) Chat(context.Context, []contractx.ChatMessage, contractx.ChatOptions) (string, error) {
	f.calls.Add(1)
	return f.reply, f.err
}

type fakeContent struct {
	mu      sync.Mutex
	posts   map[string]int
	fetched []string
}

func (f *fakeContent) FetchByQuery(context.Context, string, string, int) ([]contractx.ContentItem, error) {
	return nil, nil
}

func (f *fakeContent) FetchByHandle(_ context.Context, handle string, limit int) ([]contractx.ContentItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit > 1 {
		f.fetched = append(f.fetched, handle)
	}
	n := f.posts[strings.ToLower(handle)]
	if limit > 0 && n > limit {
		n = limit
	}
	items := make([]contractx.ContentItem, n)
	for i := range items {
		items[i] = contractx.ContentItem{
			Author:    handle,
			Text:      "Publicación de " + handle,
			Timestamp: time.Now().Add(-time.Duration(i) * time.Hour),
		}
	}
	return items, nil
}

type fakeWeb struct {
	answer string
	calls  atomic.Int32
}

func (f *fakeWeb) Search(context.Context, string) (string, error) {
	f.calls.Add(1)
	return f.answer, nil
}
