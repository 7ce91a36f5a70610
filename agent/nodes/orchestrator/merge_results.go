package orchestratornode

import (
	"fmt"
	"sort"
	"strings"

	contractx "github.com/tanpawarit/vizta/agent/contract"
)

var agentLabels = map[contractx.AgentName]string{
	contractx.AgentSocial:   "Redes y web",
	contractx.AgentPersonal: "Tus datos",
}

// MergeResults builds the unified response. One success is returned as is,
// several are ordered by relevance with attribution, and when every agent
// failed the first error is explained.
func MergeResults(in *GraphState) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	resp := contractx.Response{
		Intent:        contractx.IntentAgentic,
		Agents:        in.Agents,
		Contributions: in.Results,
	}

	var ok []contractx.AgentResult
	var firstErr string
	for _, r := range in.Results {
		if r.Success {
			ok = append(ok, r)
			continue
		}
		if firstErr == "" {
			firstErr = strings.TrimSpace(firstNonEmpty(r.Error, r.Message))
		}
	}

	switch len(ok) {
	case 0:
		if firstErr == "" {
			firstErr = "ningún agente devolvió resultados"
		}
		resp.Message = "No pude completar tu consulta: " + firstErr
		resp.Diagnostic = firstErr
	case 1:
		resp.Success = true
		resp.Message = strings.TrimSpace(ok[0].Message)
	default:
		sort.SliceStable(ok, func(i, j int) bool { return ok[i].RelevanceScore > ok[j].RelevanceScore })
		parts := make([]string, 0, len(ok))
		for _, r := range ok {
			parts = append(parts, fmt.Sprintf("**%s** (relevancia %d/10)\n%s", label(r.AgentName), r.RelevanceScore, strings.TrimSpace(r.Message)))
		}
		resp.Success = true
		resp.Message = strings.Join(parts, "\n\n")
	}

	in.Response = resp
	return in, nil
}

func label(name contractx.AgentName) string {
	if l, ok := agentLabels[name]; ok {
		return l
	}
	return string(name)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
