package tool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	contractx "github.com/tanpawarit/vizta/agent/contract"
)

func newTask(tool contractx.ToolID, args map[string]any) *contractx.Task {
	return &contractx.Task{
		ID:        "task-1",
		AgentName: contractx.AgentSocial,
		Tool:      tool,
		Args:      args,
		Status:    contractx.TaskPending,
	}
}

func TestExecutorSucceedsFirstAttempt(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	exec := NewExecutor(Config{Timeout: time.Second}, Registry{
		contractx.ToolWebSearch: func(ctx context.Context, args map[string]any) (contractx.ToolResult, error) {
			calls.Add(1)
			return contractx.ToolResult{Success: true, Summary: "ok"}, nil
		},
	})

	task := newTask(contractx.ToolWebSearch, map[string]any{"query": "x"})
	out, err := exec.Run(context.Background(), task)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.Tool != contractx.ToolWebSearch || !out.Success {
		t.Fatalf("unexpected result: %#v", out)
	}
	if task.Status != contractx.TaskSucceeded || task.Attempts != 1 || task.Result == nil {
		t.Fatalf("unexpected task state: %#v", task)
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}
}

func TestExecutorRetriesOnceThenSucceeds(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	exec := NewExecutor(Config{Timeout: time.Second}, Registry{
		contractx.ToolWebSearch: func(ctx context.Context, args map[string]any) (contractx.ToolResult, error) {
			if calls.Add(1) == 1 {
				return contractx.ToolResult{}, errors.New("502 bad gateway")
			}
			return contractx.ToolResult{Success: true}, nil
		},
	})

	task := newTask(contractx.ToolWebSearch, map[string]any{"query": "x"})
	if _, err := exec.Run(context.Background(), task); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if task.Attempts != 2 || task.Status != contractx.TaskSucceeded {
		t.Fatalf("unexpected task state: %#v", task)
	}
}

func TestExecutorSurfacesOriginalMessageAfterTwoFailures(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	exec := NewExecutor(Config{Timeout: time.Second}, Registry{
		contractx.ToolSocialProfile: func(ctx context.Context, args map[string]any) (contractx.ToolResult, error) {
			calls.Add(1)
			return contractx.ToolResult{}, errors.New("nitter: upstream status 503")
		},
	})

	task := newTask(contractx.ToolSocialProfile, map[string]any{"username": "CongresoGt"})
	out, err := exec.Run(context.Background(), task)

	var execErr *contractx.ToolExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("error = %T %v, want *ToolExecutionError", err, err)
	}
	if !errors.Is(err, contractx.ErrToolExecution) {
		t.Fatal("expected ErrToolExecution in chain")
	}
	if err.Error() != "nitter: upstream status 503" {
		t.Fatalf("message = %q, want original", err.Error())
	}
	if execErr.Attempts != 2 || calls.Load() != 2 {
		t.Fatalf("attempts = %d calls = %d, want 2", execErr.Attempts, calls.Load())
	}
	if task.Status != contractx.TaskFailed || out.Error != "nitter: upstream status 503" {
		t.Fatalf("unexpected task/result: %#v %#v", task, out)
	}
}

func TestExecutorTimeoutCountsAsAttempt(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	exec := NewExecutor(Config{
		Timeout:  time.Second,
		Timeouts: map[string]time.Duration{string(contractx.ToolWebSearch): 20 * time.Millisecond},
	}, Registry{
		contractx.ToolWebSearch: func(ctx context.Context, args map[string]any) (contractx.ToolResult, error) {
			calls.Add(1)
			<-ctx.Done()
			return contractx.ToolResult{}, ctx.Err()
		},
	})

	task := newTask(contractx.ToolWebSearch, nil)
	start := time.Now()
	_, err := exec.Run(context.Background(), task)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want deadline exceeded", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2", calls.Load())
	}
	if time.Since(start) > 2*time.Second {
		t.Fatal("per-tool timeout was not applied")
	}
}

func TestExecutorStopsWhenParentCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	exec := NewExecutor(Config{Timeout: time.Second}, Registry{
		contractx.ToolWebSearch: func(context.Context, map[string]any) (contractx.ToolResult, error) {
			calls.Add(1)
			cancel()
			return contractx.ToolResult{}, errors.New("cancelled upstream")
		},
	})

	task := newTask(contractx.ToolWebSearch, nil)
	if _, err := exec.Run(ctx, task); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}
}

func TestExecutorUnknownTool(t *testing.T) {
	t.Parallel()

	exec := NewExecutor(Config{}, Registry{})
	task := newTask(contractx.ToolCodexSearch, nil)
	_, err := exec.Run(context.Background(), task)
	if !errors.Is(err, contractx.ErrUnknownTool) {
		t.Fatalf("error = %v, want ErrUnknownTool", err)
	}
	if task.Status != contractx.TaskFailed || task.Attempts != 0 {
		t.Fatalf("unexpected task state: %#v", task)
	}
}

func TestExecutorOnlyMutatesStatusAttemptsResult(t *testing.T) {
	t.Parallel()

	var seen map[string]any
	exec := NewExecutor(Config{Timeout: time.Second, DefaultLocation: "guatemala"}, Registry{
		contractx.ToolSocialSearch: func(ctx context.Context, args map[string]any) (contractx.ToolResult, error) {
			seen = args
			return contractx.ToolResult{Success: true}, nil
		},
	})

	args := map[string]any{"query": "congreso"}
	started := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	task := newTask(contractx.ToolSocialSearch, args)
	task.StartedAt = started

	if _, err := exec.Run(context.Background(), task); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if args["query"] != "congreso" {
		t.Fatalf("caller args mutated: %#v", args)
	}
	if seen["query"] != "congreso #CongresoGt" {
		t.Fatalf("handler saw %#v, want normalised query", seen["query"])
	}
	if task.ID != "task-1" || task.AgentName != contractx.AgentSocial || !task.StartedAt.Equal(started) {
		t.Fatalf("immutable fields changed: %#v", task)
	}
}

func TestExecutorNonSuccessResultIsFinal(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	exec := NewExecutor(Config{Timeout: time.Second}, Registry{
		contractx.ToolMemorySearch: func(context.Context, map[string]any) (contractx.ToolResult, error) {
			calls.Add(1)
			return contractx.ToolResult{Error: "no hay registros en memoria"}, nil
		},
	})

	task := newTask(contractx.ToolMemorySearch, map[string]any{"query": "x"})
	out, err := exec.Run(context.Background(), task)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.Success || calls.Load() != 1 || task.Status != contractx.TaskFailed {
		t.Fatalf("unexpected outcome: %#v calls=%d", out, calls.Load())
	}
}
