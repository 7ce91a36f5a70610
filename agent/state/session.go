package state

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/vizta/agent/contract"
)

// DefaultHistoryTurns is how many turns the orchestrator feeds back as context.
const DefaultHistoryTurns = 10

type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// Turn is one message of a conversation session.
type Turn struct {
	Speaker Speaker               `json:"speaker"`
	Text    string                `json:"text"`
	Intent  contractx.Intent      `json:"intent,omitempty"`
	Agents  []contractx.AgentName `json:"agents,omitempty"`
	At      time.Time             `json:"at"`
}

func (t Turn) Validate() error {
	switch t.Speaker {
	case SpeakerUser, SpeakerAssistant:
	default:
		return fmt.Errorf("invalid speaker: %q", t.Speaker)
	}
	if strings.TrimSpace(t.Text) == "" {
		return fmt.Errorf("turn text is empty")
	}
	return nil
}

// ExchangeTurns returns the user and assistant turns of one orchestration pass.
func ExchangeTurns(q contractx.Query, resp contractx.Response) []Turn {
	at := resp.Timestamp
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return []Turn{
		{Speaker: SpeakerUser, Text: q.Text, At: q.ReceivedAt},
		{Speaker: SpeakerAssistant, Text: resp.Message, Intent: resp.Intent, Agents: resp.Agents, At: at},
	}
}

// FormatHistory renders turns oldest first, one line each, clipping long
// messages.
func FormatHistory(turns []Turn) string {
	var sb strings.Builder
	for _, t := range turns {
		text := strings.Join(strings.Fields(t.Text), " ")
		if r := []rune(text); len(r) > 280 {
			text = string(r[:280]) + "…"
		}
		label := "usuario"
		if t.Speaker == SpeakerAssistant {
			label = "asistente"
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%s: %s", label, text)
	}
	return sb.String()
}
