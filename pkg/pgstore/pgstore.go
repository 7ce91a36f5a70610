package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

type Config struct {
	DSN          string        `envconfig:"DSN" split_words:"true" required:"true"`
	DialTimeout  time.Duration `envconfig:"DIAL_TIMEOUT" split_words:"true" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" split_words:"true" default:"10s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" split_words:"true" default:"10s"`
	MaxOpenConns int           `envconfig:"MAX_OPEN_CONNS" split_words:"true" default:"10"`
}

// Store is the relational side of the core. It keeps usage and telemetry
// records and serves the personal-data tools.
type Store struct {
	db *bun.DB
}

func Open(ctx context.Context, cfg Config) (*Store, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("database dsn is required")
	}

	connector := pgdriver.NewConnector(
		pgdriver.WithDSN(dsn),
		pgdriver.WithDialTimeout(cfg.DialTimeout),
		pgdriver.WithReadTimeout(cfg.ReadTimeout),
		pgdriver.WithWriteTimeout(cfg.WriteTimeout),
	)
	sqldb := sql.OpenDB(connector)
	if cfg.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	db := bun.NewDB(sqldb, pgdialect.New())
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

func NewFromDB(db *bun.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// EnsureSchema creates the tables the core writes to when they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	models := []any{
		(*UsageRecord)(nil),
		(*OrchestrationEvent)(nil),
		(*Project)(nil),
		(*CodexItem)(nil),
		(*ProjectDecision)(nil),
	}
	for _, m := range models {
		if _, err := s.db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", m, err)
		}
	}
	return nil
}

func (s *Store) RecordUsage(ctx context.Context, rec *UsageRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if _, err := s.db.NewInsert().Model(rec).Exec(ctx); err != nil {
		return fmt.Errorf("insert usage record: %w", err)
	}
	return nil
}

func (s *Store) RecordEvent(ctx context.Context, ev *OrchestrationEvent) error {
	if _, err := s.db.NewInsert().Model(ev).Exec(ctx); err != nil {
		return fmt.Errorf("insert orchestration event: %w", err)
	}
	return nil
}

func (s *Store) ListProjects(ctx context.Context, userID, status string, limit int) ([]Project, error) {
	var out []Project
	if err := s.projectsQuery(&out, userID, status, limit).Scan(ctx); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return out, nil
}

func (s *Store) SearchCodex(ctx context.Context, userID, query string, limit int) ([]CodexItem, error) {
	var out []CodexItem
	if err := s.codexQuery(&out, userID, query, limit).Scan(ctx); err != nil {
		return nil, fmt.Errorf("search codex: %w", err)
	}
	return out, nil
}

// ListDecisions returns the user's project decisions. project narrows the
// result to one project, matched by id or by a fragment of its title.
func (s *Store) ListDecisions(ctx context.Context, userID, project string, limit int) ([]ProjectDecision, error) {
	var out []ProjectDecision
	if err := s.decisionsQuery(&out, userID, project, limit).Scan(ctx); err != nil {
		return nil, fmt.Errorf("list project decisions: %w", err)
	}
	return out, nil
}

func (s *Store) projectsQuery(dst *[]Project, userID, status string, limit int) *bun.SelectQuery {
	q := s.db.NewSelect().Model(dst).
		Where("p.user_id = ?", userID).
		OrderExpr("p.updated_at DESC").
		Limit(clampLimit(limit))
	if status = strings.TrimSpace(status); status != "" {
		q = q.Where("p.status = ?", status)
	}
	return q
}

func (s *Store) codexQuery(dst *[]CodexItem, userID, query string, limit int) *bun.SelectQuery {
	q := s.db.NewSelect().Model(dst).
		Where("c.user_id = ?", userID).
		OrderExpr("c.created_at DESC").
		Limit(clampLimit(limit))
	if query = strings.TrimSpace(query); query != "" {
		pattern := "%" + query + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("c.title ILIKE ?", pattern).
				WhereOr("c.description ILIKE ?", pattern)
		})
	}
	return q
}

func (s *Store) decisionsQuery(dst *[]ProjectDecision, userID, project string, limit int) *bun.SelectQuery {
	owned := s.db.NewSelect().Model((*Project)(nil)).ColumnExpr("p.id").Where("p.user_id = ?", userID)
	if project = strings.TrimSpace(project); project != "" {
		owned = owned.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("p.id = ?", project).
				WhereOr("p.title ILIKE ?", "%"+project+"%")
		})
	}
	return s.db.NewSelect().Model(dst).
		Where("d.project_id IN (?)", owned).
		OrderExpr("d.created_at DESC").
		Limit(clampLimit(limit))
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return 10
	case limit > 100:
		return 100
	default:
		return limit
	}
}
