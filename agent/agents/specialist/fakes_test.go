package specialist

import (
	"context"
	"strings"
	"sync"
	"time"

	contractx "github.com/tanpawarit/vizta/agent/contract"
	memoryx "github.com/tanpawarit/vizta/agent/memory"
)

type fakePlanner struct {
	plan   contractx.Plan
	err    error
	calls  int
	extras []string
}

func (f *fakePlanner) BuildPlan(_ context.Context, _ string, extra string) (contractx.Plan, error) {
	f.calls++
	f.extras = append(f.extras, extra)
	return f.plan, f.err
}

type fakeContent struct {
	mu          sync.Mutex
	byHandle    map[string][]contractx.ContentItem
	byQuery     []contractx.ContentItem
	handleCalls []string
	queryCalls  []string
}

func (f *fakeContent) FetchByQuery(_ context.Context, query, _ string, _ int) ([]contractx.ContentItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryCalls = append(f.queryCalls, query)
	return f.byQuery, nil
}

func (f *fakeContent) FetchByHandle(_ context.Context, handle string, limit int) ([]contractx.ContentItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit > 1 {
		f.handleCalls = append(f.handleCalls, handle)
	}
	items := f.byHandle[strings.ToLower(handle)]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (f *fakeContent) profileCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.handleCalls...)
}

type fakeSearcher struct {
	answer string
	err    error
	calls  int
}

func (f *fakeSearcher) Search(context.Context, string) (string, error) {
	f.calls++
	return f.answer, f.err
}

type fakeMemory struct {
	mu       sync.Mutex
	context  string
	persists []contractx.ToolID
}

func (f *fakeMemory) Enhance(_ context.Context, query string) memoryx.Enhancement {
	out := memoryx.Enhancement{Query: query, EnhancedQuery: query}
	if f.context != "" {
		out.Context = f.context
		out.EnhancedQuery = query + "\n\n" + f.context
	}
	return out
}

func (f *fakeMemory) PersistAsync(_ context.Context, tool contractx.ToolID, _ contractx.ToolResult, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.persists = append(f.persists, tool)
}

func posts(author string, n int, text string) []contractx.ContentItem {
	now := time.Now()
	items := make([]contractx.ContentItem, n)
	for i := range items {
		items[i] = contractx.ContentItem{
			Author:    author,
			Text:      text,
			Timestamp: now.Add(-time.Duration(i) * time.Hour),
			Likes:     10 + i,
		}
	}
	return items
}

func query(text string) contractx.AgentTask {
	return contractx.AgentTask{Query: contractx.Query{Text: text, UserID: "user-1", SessionID: "s-1"}}
}
