package contract

// ToolID is the closed set of tools an agent may plan against.
type ToolID string

const (
	ToolSocialSearch      ToolID = "social.search"
	ToolSocialProfile     ToolID = "social.profile"
	ToolWebSearch         ToolID = "web.search"
	ToolIdentityResolve   ToolID = "identity.resolve"
	ToolMemorySearch      ToolID = "memory.search"
	ToolProjectsList      ToolID = "projects.list"
	ToolCodexSearch       ToolID = "codex.search"
	ToolProjectsDecisions ToolID = "projects.decisions"
)

var knownTools = map[ToolID]struct{}{
	ToolSocialSearch:      {},
	ToolSocialProfile:     {},
	ToolWebSearch:         {},
	ToolIdentityResolve:   {},
	ToolMemorySearch:      {},
	ToolProjectsList:      {},
	ToolCodexSearch:       {},
	ToolProjectsDecisions: {},
}

// ParseToolID returns the ToolID for s when it names a known tool.
func ParseToolID(s string) (ToolID, bool) {
	id := ToolID(s)
	_, ok := knownTools[id]
	return id, ok
}

func (t ToolID) Valid() bool {
	_, ok := knownTools[t]
	return ok
}

func (t ToolID) String() string {
	return string(t)
}
