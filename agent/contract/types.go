package contract

import "time"

type AgentName string

const (
	AgentSocial   AgentName = "social"
	AgentPersonal AgentName = "personal"
)

type Intent string

const (
	IntentConversational Intent = "conversational"
	IntentAgentic        Intent = "agentic"
)

// Query is one user request. It is not modified after it enters the orchestrator.
type Query struct {
	Text       string    `json:"text"`
	UserID     string    `json:"user_id"`
	SessionID  string    `json:"session_id"`
	ReceivedAt time.Time `json:"received_at"`
}

type Classification struct {
	Intent Intent      `json:"intent"`
	Agents []AgentName `json:"agents,omitempty"`
	Reply  string      `json:"reply,omitempty"`
	Source string      `json:"source"`
}

/* --------------------------------- Plan --------------------------------- */

type PlanAction string

const (
	ActionDirectExecution    PlanAction = "direct_execution"
	ActionMultiStepExecution PlanAction = "multi_step_execution"
	ActionNeedsClarification PlanAction = "needs_clarification"
)

type PlanStep struct {
	Tool ToolID         `json:"tool"`
	Args map[string]any `json:"args,omitempty"`
}

type Plan struct {
	Action    PlanAction     `json:"action"`
	Tool      ToolID         `json:"tool,omitempty"`
	Args      map[string]any `json:"args,omitempty"`
	Steps     []PlanStep     `json:"steps,omitempty"`
	Reasoning string         `json:"reasoning"`
	FollowUp  string         `json:"follow_up,omitempty"`
	Thought   string         `json:"thought,omitempty"`
	Meta      PlanMeta       `json:"meta"`
}

// PlanMeta records which model produced a plan.
type PlanMeta struct {
	Model     string        `json:"model"`
	Fallback  bool          `json:"fallback"`
	Latency   time.Duration `json:"latency"`
	Timestamp time.Time     `json:"timestamp"`
}

/* --------------------------------- Task --------------------------------- */

type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskSucceeded TaskStatus = "succeeded"
	TaskFailed    TaskStatus = "failed"
)

type Task struct {
	ID        string         `json:"id"`
	AgentName AgentName      `json:"agent_name"`
	Tool      ToolID         `json:"tool"`
	Args      map[string]any `json:"args,omitempty"`
	Attempts  int            `json:"attempts"`
	Status    TaskStatus     `json:"status"`
	StartedAt time.Time      `json:"started_at"`
	Result    *ToolResult    `json:"result,omitempty"`
}

func (t *Task) Terminal() bool {
	return t != nil && (t.Status == TaskSucceeded || t.Status == TaskFailed)
}

type ToolResult struct {
	Tool    ToolID `json:"tool"`
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Summary string `json:"summary,omitempty"`
	Error   string `json:"error,omitempty"`
}

/* -------------------------------- Agents -------------------------------- */

type AgentTask struct {
	ID      string `json:"id"`
	Query   Query  `json:"query"`
	History string `json:"history,omitempty"`
}

type AgentResult struct {
	AgentName      AgentName `json:"agent_name"`
	Success        bool      `json:"success"`
	Data           any       `json:"data,omitempty"`
	Message        string    `json:"message"`
	RelevanceScore int       `json:"relevance_score"`
	ContextNote    string    `json:"context_note,omitempty"`
	Tools          []ToolID  `json:"tools,omitempty"`
	Error          string    `json:"error,omitempty"`
}

/* ------------------------------- Identity ------------------------------- */

type ResolutionStrategy string

const (
	StrategyDirectHandle         ResolutionStrategy = "direct_handle"
	StrategyKnowledgeLookup      ResolutionStrategy = "knowledge_lookup"
	StrategyWebSearchURL         ResolutionStrategy = "web_search_url"
	StrategySecondaryModelSearch ResolutionStrategy = "secondary_model_search"
)

type HandleResolutionAttempt struct {
	Strategy       ResolutionStrategy `json:"strategy"`
	ResolvedHandle string             `json:"resolved_handle,omitempty"`
	Confidence     int                `json:"confidence"`
	Method         string             `json:"method"`
	Error          string             `json:"error,omitempty"`
}

// Resolution is the outcome of the identity pipeline. Found=false is the
// NONE outcome and carries no handle.
type Resolution struct {
	Handle     string                    `json:"handle,omitempty"`
	Confidence int                       `json:"confidence"`
	Method     string                    `json:"method"`
	Found      bool                      `json:"found"`
	Attempts   []HandleResolutionAttempt `json:"attempts,omitempty"`
}

/* -------------------------------- Memory -------------------------------- */

type EntityType string

const (
	EntityPerson       EntityType = "person"
	EntityOrganization EntityType = "organization"
	EntityTopic        EntityType = "topic"
)

type MemoryRecord struct {
	Content    string     `json:"content"`
	EntityType EntityType `json:"entity_type"`
	Confidence float64    `json:"confidence"`
	SourceTool string     `json:"source_tool"`
	Timestamp  time.Time  `json:"timestamp"`
}

/* -------------------------------- Content ------------------------------- */

type ContentItem struct {
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Likes     int       `json:"likes"`
	Retweets  int       `json:"retweets"`
	Replies   int       `json:"replies"`
	URL       string    `json:"url,omitempty"`
}

/* ------------------------------- Response ------------------------------- */

type Response struct {
	SessionID     string        `json:"session_id"`
	Success       bool          `json:"success"`
	Intent        Intent        `json:"intent"`
	Message       string        `json:"message"`
	Agents        []AgentName   `json:"agents,omitempty"`
	Contributions []AgentResult `json:"contributions,omitempty"`
	Diagnostic    string        `json:"diagnostic,omitempty"`
	Latency       time.Duration `json:"latency"`
	Timestamp     time.Time     `json:"timestamp"`
}

type TelemetryEvent struct {
	ID        string        `json:"id"`
	UserID    string        `json:"user_id"`
	SessionID string        `json:"session_id"`
	Intent    Intent        `json:"intent"`
	Agents    []AgentName   `json:"agents,omitempty"`
	Tools     []ToolID      `json:"tools,omitempty"`
	Latency   time.Duration `json:"latency"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}
