package orchestratornode

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/vizta/agent/contract"
)

type GraphInput struct {
	Query contractx.Query
}

// GraphState is threaded through every orchestrator node of one pass.
type GraphState struct {
	Query   contractx.Query
	Started time.Time

	History        string
	Classification contractx.Classification
	Agents         []contractx.AgentName
	Results        []contractx.AgentResult

	Response contractx.Response
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	q := in.Query
	q.Text = strings.TrimSpace(q.Text)
	if q.Text == "" {
		return nil, fmt.Errorf("%w: query text is empty", contractx.ErrValidation)
	}
	q.UserID = strings.TrimSpace(q.UserID)
	q.SessionID = strings.TrimSpace(q.SessionID)

	now := nowFn()
	if q.ReceivedAt.IsZero() {
		q.ReceivedAt = now.UTC()
	}

	return &GraphState{
		Query:   q,
		Started: now,
	}, nil
}
