package pgstore

import (
	"time"

	"github.com/uptrace/bun"
)

type UsageRecord struct {
	bun.BaseModel `bun:"table:usage_logs,alias:u"`

	ID        int64     `bun:"id,pk,autoincrement"`
	UserID    string    `bun:"user_id,notnull"`
	SessionID string    `bun:"session_id"`
	Operation string    `bun:"operation,notnull"`
	Agents    []string  `bun:"agents,array"`
	Tools     []string  `bun:"tools,array"`
	LatencyMs int64     `bun:"latency_ms"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

type OrchestrationEvent struct {
	bun.BaseModel `bun:"table:orchestration_events,alias:e"`

	ID        string    `bun:"id,pk"`
	UserID    string    `bun:"user_id"`
	SessionID string    `bun:"session_id"`
	Intent    string    `bun:"intent,notnull"`
	Agents    []string  `bun:"agents,array"`
	Tools     []string  `bun:"tools,array"`
	LatencyMs int64     `bun:"latency_ms"`
	Success   bool      `bun:"success"`
	Error     string    `bun:"error"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

type Project struct {
	bun.BaseModel `bun:"table:user_projects,alias:p"`

	ID          string    `bun:"id,pk" json:"id"`
	UserID      string    `bun:"user_id,notnull" json:"-"`
	Title       string    `bun:"title,notnull" json:"title"`
	Description string    `bun:"description" json:"description,omitempty"`
	Status      string    `bun:"status" json:"status"`
	Priority    string    `bun:"priority" json:"priority,omitempty"`
	Category    string    `bun:"category" json:"category,omitempty"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt   time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

type CodexItem struct {
	bun.BaseModel `bun:"table:codex_items,alias:c"`

	ID          string    `bun:"id,pk" json:"id"`
	UserID      string    `bun:"user_id,notnull" json:"-"`
	ProjectID   string    `bun:"project_id" json:"project_id,omitempty"`
	Title       string    `bun:"title,notnull" json:"title"`
	Description string    `bun:"description" json:"description,omitempty"`
	Kind        string    `bun:"kind" json:"kind,omitempty"`
	Tags        []string  `bun:"tags,array" json:"tags,omitempty"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

type ProjectDecision struct {
	bun.BaseModel `bun:"table:project_decisions,alias:d"`

	ID           string    `bun:"id,pk" json:"id"`
	ProjectID    string    `bun:"project_id,notnull" json:"project_id"`
	Title        string    `bun:"title,notnull" json:"title"`
	Description  string    `bun:"description" json:"description,omitempty"`
	DecisionType string    `bun:"decision_type" json:"decision_type,omitempty"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}
