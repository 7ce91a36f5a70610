package orchestratornode

import (
	"fmt"
	"strings"
	"unicode"

	contractx "github.com/tanpawarit/vizta/agent/contract"
)

var socialTerms = map[string]struct{}{
	"tweet": {}, "tweets": {}, "twitter": {}, "tuit": {}, "tuits": {}, "hashtag": {}, "hashtags": {},
	"tendencia": {}, "tendencias": {}, "trending": {}, "redes": {}, "perfil": {}, "cuenta": {},
	"publicaciones": {}, "publica": {}, "dicen": {}, "opinan": {}, "noticias": {}, "menciones": {},
}

var personalTerms = map[string]struct{}{
	"mis": {}, "proyecto": {}, "proyectos": {}, "documento": {}, "documentos": {}, "codex": {},
	"decision": {}, "decisión": {}, "decisiones": {}, "nota": {}, "notas": {}, "archivos": {},
}

// KeywordAgents maps query vocabulary onto agents. @handles and #hashtags
// count as social terms. The result is in a stable order.
func KeywordAgents(text string) []contractx.AgentName {
	var social, personal bool
	for _, raw := range strings.Fields(strings.ToLower(text)) {
		if strings.HasPrefix(raw, "@") || strings.HasPrefix(raw, "#") {
			social = true
			continue
		}
		word := strings.TrimFunc(raw, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
		if _, ok := socialTerms[word]; ok {
			social = true
		}
		if _, ok := personalTerms[word]; ok {
			personal = true
		}
	}

	var out []contractx.AgentName
	if social {
		out = append(out, contractx.AgentSocial)
	}
	if personal {
		out = append(out, contractx.AgentPersonal)
	}
	return out
}

// RouteAgents unions keyword affinity with the classifier's suggestion,
// keeps only available agents and defaults to the social agent.
func RouteAgents(in *GraphState, available []contractx.AgentName) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if len(available) == 0 {
		return nil, fmt.Errorf("%w: no specialist agents registered", contractx.ErrValidation)
	}

	wanted := map[contractx.AgentName]bool{}
	for _, a := range KeywordAgents(in.Query.Text) {
		wanted[a] = true
	}
	for _, a := range in.Classification.Agents {
		wanted[a] = true
	}

	var agents []contractx.AgentName
	for _, a := range available {
		if wanted[a] {
			agents = append(agents, a)
		}
	}
	if len(agents) == 0 {
		agents = []contractx.AgentName{available[0]}
		for _, a := range available {
			if a == contractx.AgentSocial {
				agents[0] = a
				break
			}
		}
	}

	in.Classification.Intent = contractx.IntentAgentic
	in.Agents = agents
	return in, nil
}
