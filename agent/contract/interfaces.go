package contract

import "context"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatOptions is shared by every ChatModel. A negative Temperature leaves
// the provider default in place.
type ChatOptions struct {
	Temperature float64
	MaxTokens   int
}

type ChatModel interface {
	Name() string
	Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (string, error)
}

type KnowledgeSearcher interface {
	Search(ctx context.Context, query string) (string, error)
}

type ContentRetriever interface {
	FetchByQuery(ctx context.Context, query string, location string, limit int) ([]ContentItem, error)
	FetchByHandle(ctx context.Context, handle string, limit int) ([]ContentItem, error)
}

type MemoryStore interface {
	Search(ctx context.Context, query string, limit int) ([]MemoryRecord, error)
	Save(ctx context.Context, content string, metadata map[string]any) (bool, error)
	Health(ctx context.Context) bool
}

type PlanBuilder interface {
	BuildPlan(ctx context.Context, intent string, extraContext string) (Plan, error)
}

type HandleResolver interface {
	ResolveHandle(ctx context.Context, nameOrRole string, hint string) (Resolution, error)
}

type Specialist interface {
	Name() AgentName
	Tools() []ToolID
	Handle(ctx context.Context, task AgentTask) (AgentResult, error)
}

type Classifier interface {
	Classify(ctx context.Context, q Query, history string) (Classification, error)
}

type TelemetrySink interface {
	Emit(ctx context.Context, ev TelemetryEvent) error
}

// PostProcessor runs after a successful orchestration pass.
type PostProcessor interface {
	AfterSuccess(ctx context.Context, q Query, resp Response) error
}
