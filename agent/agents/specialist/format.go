package specialist

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/vizta/agent/contract"
	insightx "github.com/tanpawarit/vizta/agent/insight"
	toolx "github.com/tanpawarit/vizta/agent/tool"
	"github.com/tanpawarit/vizta/pkg/pgstore"
)

const maxListed = 5

func formatResult(r contractx.ToolResult) string {
	var sb strings.Builder
	switch d := r.Data.(type) {
	case toolx.SocialData:
		fmt.Fprintf(&sb, "Publicaciones sobre %q:", d.Query)
		writeItems(&sb, d.Items)
		writeInsight(&sb, d.Insight)
	case toolx.ProfileData:
		if d.WebContext != "" {
			fmt.Fprintf(&sb, "Quién es @%s: %s\n\n", d.Handle, oneLine(d.WebContext))
		}
		fmt.Fprintf(&sb, "Publicaciones recientes de @%s (actividad %s, %.1f por día):", d.Handle, d.ActivityLevel, d.PostsPerDay)
		writeItems(&sb, d.Items)
		writeInsight(&sb, d.Insight)
		if d.Analysis != "" {
			fmt.Fprintf(&sb, "\nAnálisis: %s", oneLine(d.Analysis))
		}
	case toolx.WebData:
		sb.WriteString(d.Answer)
	case toolx.MemoryData:
		sb.WriteString("Lo que ya sabemos:")
		for i, rec := range d.Records {
			if i == maxListed {
				break
			}
			fmt.Fprintf(&sb, "\n%d. %s", i+1, oneLine(rec.Content))
		}
	case contractx.Resolution:
		fmt.Fprintf(&sb, "Cuenta identificada: @%s (confianza %d/10).", d.Handle, d.Confidence)
	case []pgstore.Project:
		sb.WriteString("Tus proyectos:")
		for i, p := range d {
			if i == maxListed*2 {
				break
			}
			fmt.Fprintf(&sb, "\n- %s [%s] (id %s)", p.Title, p.Status, p.ID)
			if p.Priority != "" {
				fmt.Fprintf(&sb, " prioridad %s", p.Priority)
			}
		}
	case []pgstore.CodexItem:
		sb.WriteString("En tu codex encontré:")
		for i, c := range d {
			if i == maxListed*2 {
				break
			}
			fmt.Fprintf(&sb, "\n- %s", c.Title)
			if c.Kind != "" {
				fmt.Fprintf(&sb, " (%s)", c.Kind)
			}
		}
	case []pgstore.ProjectDecision:
		sb.WriteString("Decisiones registradas:")
		for i, dec := range d {
			if i == maxListed*2 {
				break
			}
			fmt.Fprintf(&sb, "\n- %s: %s", dec.CreatedAt.Format("2006-01-02"), dec.Title)
		}
	default:
		sb.WriteString(strings.TrimSpace(r.Summary))
	}
	return strings.TrimSpace(sb.String())
}

func writeItems(sb *strings.Builder, items []contractx.ContentItem) {
	for i, it := range items {
		if i == maxListed {
			fmt.Fprintf(sb, "\n… y %d más", len(items)-maxListed)
			break
		}
		fmt.Fprintf(sb, "\n- @%s: %s (♥ %d, RT %d)", it.Author, oneLine(it.Text), it.Likes, it.Retweets)
	}
}

func writeInsight(sb *strings.Builder, in insightx.Insight) {
	if in.Tone == "" {
		return
	}
	fmt.Fprintf(sb, "\nTono general: %s (%+.2f)", in.Tone, in.Sentiment)
	if len(in.KeyActors) > 0 {
		names := make([]string, len(in.KeyActors))
		for i, a := range in.KeyActors {
			names[i] = fmt.Sprintf("%s (%d)", a.Name, a.Count)
		}
		fmt.Fprintf(sb, "\nActores clave: %s", strings.Join(names, ", "))
	}
	if in.Momentum > 0 {
		fmt.Fprintf(sb, "\nImpulso: %.0f%%", in.Momentum*100)
	}
}

func oneLine(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > 200 {
		return string(r[:200]) + "…"
	}
	return s
}
