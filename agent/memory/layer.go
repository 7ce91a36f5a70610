package memory

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/vizta/agent/contract"
)

var persistDecisions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "vizta",
		Subsystem: "memory",
		Name:      "persist_decisions_total",
		Help:      "Memory write-back decisions by reason.",
	},
	[]string{"tool", "reason"},
)

const (
	ReasonSaved          = "saved"
	ReasonToolFailed     = "tool_failed"
	ReasonConversational = "conversational"
	ReasonPrivate        = "private_data"
	ReasonNoFacts        = "no_new_facts"
	ReasonKnown          = "already_known"
	ReasonDuplicate      = "duplicate"
	ReasonUnavailable    = "memory_unavailable"
	ReasonRejected       = "rejected_by_store"
)

const contextHeader = "Información relevante de memoria:"

// defaultSeenSize bounds the fingerprints remembered per process.
const defaultSeenSize = 4096

type Config struct {
	Limit        int           `envconfig:"LIMIT" default:"3"`
	SeenSize     int           `envconfig:"SEEN_SIZE" split_words:"true" default:"4096"`
	Timeout      time.Duration `envconfig:"TIMEOUT" default:"5s"`
	PersistAfter time.Duration `envconfig:"PERSIST_TIMEOUT" split_words:"true" default:"15s"`
}

type Enhancement struct {
	Query         string                   `json:"query"`
	EnhancedQuery string                   `json:"enhanced_query"`
	Context       string                   `json:"context,omitempty"`
	Records       []contractx.MemoryRecord `json:"records,omitempty"`
}

type PersistDecision struct {
	Saved  bool   `json:"saved"`
	Reason string `json:"reason"`
}

// User-owned records stay in the relational store.
var privateTools = map[contractx.ToolID]struct{}{
	contractx.ToolProjectsList:      {},
	contractx.ToolCodexSearch:       {},
	contractx.ToolProjectsDecisions: {},
}

// Layer adds memory context before planning and writes novel facts back
// after a tool run. Store failures degrade to no-ops.
type Layer struct {
	store contractx.MemoryStore
	cfg   Config
	now   func() time.Time

	// seen holds fingerprints already written or known; inflight holds
	// fingerprints whose write is in progress.
	seen     *lru.Cache[string, struct{}]
	mu       sync.Mutex
	inflight map[string]struct{}
	wg       sync.WaitGroup
}

func NewLayer(store contractx.MemoryStore, cfg Config) *Layer {
	if cfg.Limit <= 0 {
		cfg.Limit = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.PersistAfter <= 0 {
		cfg.PersistAfter = 15 * time.Second
	}
	if cfg.SeenSize <= 0 {
		cfg.SeenSize = defaultSeenSize
	}
	seen, _ := lru.New[string, struct{}](cfg.SeenSize)
	return &Layer{
		store:    store,
		cfg:      cfg,
		now:      time.Now,
		seen:     seen,
		inflight: map[string]struct{}{},
	}
}

func (l *Layer) Enhance(ctx context.Context, query string) Enhancement {
	out := Enhancement{Query: query, EnhancedQuery: query}
	if l == nil || l.store == nil || strings.TrimSpace(query) == "" {
		return out
	}

	callCtx, cancel := context.WithTimeout(ctx, l.cfg.Timeout)
	defer cancel()

	records, err := l.store.Search(callCtx, query, l.cfg.Limit)
	if err != nil {
		log.Ctx(ctx).Debug().Err(err).Msg("memory search unavailable, continuing without context")
		return out
	}
	if len(records) > l.cfg.Limit {
		records = records[:l.cfg.Limit]
	}

	var sb strings.Builder
	n := 0
	for _, r := range records {
		content := strings.TrimSpace(r.Content)
		if content == "" {
			continue
		}
		n++
		if n == 1 {
			sb.WriteString(contextHeader)
		}
		fmt.Fprintf(&sb, "\n%d. %s", n, content)
		out.Records = append(out.Records, r)
	}
	if n == 0 {
		return out
	}

	out.Context = sb.String()
	out.EnhancedQuery = query + "\n\n" + out.Context
	return out
}

func (l *Layer) MaybePersist(ctx context.Context, tool contractx.ToolID, result contractx.ToolResult, query string) PersistDecision {
	d := l.decide(ctx, tool, result, query)
	persistDecisions.WithLabelValues(string(tool), d.Reason).Inc()
	return d
}

func (l *Layer) decide(ctx context.Context, tool contractx.ToolID, result contractx.ToolResult, query string) PersistDecision {
	if l == nil || l.store == nil {
		return PersistDecision{Reason: ReasonUnavailable}
	}
	if !result.Success {
		return PersistDecision{Reason: ReasonToolFailed}
	}
	if _, private := privateTools[tool]; private {
		return PersistDecision{Reason: ReasonPrivate}
	}
	if tool == contractx.ToolMemorySearch || !tool.Valid() || result.Data == nil {
		return PersistDecision{Reason: ReasonConversational}
	}

	body := resultText(result)
	facts := ExtractFacts(body)
	if len(facts) == 0 {
		return PersistDecision{Reason: ReasonNoFacts}
	}

	content := renderRecord(tool, query, result.Summary, facts)
	key := fingerprint(tool, content)
	if !l.reserve(key) {
		return PersistDecision{Reason: ReasonDuplicate}
	}
	remembered := false
	defer func() { l.release(key, remembered) }()

	callCtx, cancel := context.WithTimeout(ctx, l.cfg.Timeout)
	defer cancel()

	existing, err := l.store.Search(callCtx, query, l.cfg.Limit)
	if err != nil {
		log.Ctx(ctx).Debug().Err(err).Msg("memory lookup failed before write-back")
		return PersistDecision{Reason: ReasonUnavailable}
	}
	if latest, ok := mostRecent(existing); ok {
		if len(NovelFacts(facts, latest.Content)) == 0 {
			remembered = true
			return PersistDecision{Reason: ReasonKnown}
		}
	}

	saved, err := l.store.Save(callCtx, content, map[string]any{
		"entity_type": string(entityFor(tool)),
		"confidence":  confidenceFor(result),
		"source_tool": string(tool),
		"query":       query,
		"facts":       facts,
		"timestamp":   l.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		log.Ctx(ctx).Debug().Err(err).Msg("memory save failed")
		return PersistDecision{Reason: ReasonUnavailable}
	}
	if !saved {
		return PersistDecision{Reason: ReasonRejected}
	}
	remembered = true
	return PersistDecision{Saved: true, Reason: ReasonSaved}
}

// PersistAsync runs MaybePersist off the request path. The request's
// cancellation does not abort the write.
func (l *Layer) PersistAsync(ctx context.Context, tool contractx.ToolID, result contractx.ToolResult, query string) {
	if l == nil || l.store == nil {
		return
	}
	detached := context.WithoutCancel(ctx)
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Ctx(detached).Error().Interface("panic", r).Msg("memory write-back panicked")
			}
		}()

		pctx, cancel := context.WithTimeout(detached, l.cfg.PersistAfter)
		defer cancel()

		d := l.MaybePersist(pctx, tool, result, query)
		log.Ctx(detached).Debug().
			Str("tool", string(tool)).
			Bool("saved", d.Saved).
			Str("reason", d.Reason).
			Msg("memory write-back")
	}()
}

// Wait blocks until pending asynchronous writes finish.
func (l *Layer) Wait() {
	if l == nil {
		return
	}
	l.wg.Wait()
}

// reserve claims key for one writer. It fails when the key was already
// written or another write of it is in progress.
func (l *Layer) reserve(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.seen.Contains(key) {
		return false
	}
	if _, busy := l.inflight[key]; busy {
		return false
	}
	l.inflight[key] = struct{}{}
	return true
}

// release ends a reservation. A failed write leaves the key free to retry.
func (l *Layer) release(key string, remember bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.inflight, key)
	if remember {
		l.seen.Add(key, struct{}{})
	}
}

func mostRecent(records []contractx.MemoryRecord) (contractx.MemoryRecord, bool) {
	if len(records) == 0 {
		return contractx.MemoryRecord{}, false
	}
	best := records[0]
	for _, r := range records[1:] {
		if r.Timestamp.After(best.Timestamp) {
			best = r
		}
	}
	return best, true
}

func resultText(result contractx.ToolResult) string {
	var buf bytes.Buffer
	buf.WriteString(result.Summary)
	buf.WriteByte('\n')
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(result.Data); err != nil {
		fmt.Fprintf(&buf, "%v", result.Data)
	}
	return buf.String()
}

func renderRecord(tool contractx.ToolID, query, summary string, facts []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Consulta: %s\n", strings.TrimSpace(query))
	fmt.Fprintf(&sb, "Herramienta: %s\n", tool)
	if s := strings.TrimSpace(summary); s != "" {
		fmt.Fprintf(&sb, "Resultado: %s\n", s)
	}
	fmt.Fprintf(&sb, "Hechos: %s", strings.Join(facts, ", "))
	return sb.String()
}

func fingerprint(tool contractx.ToolID, content string) string {
	sum := sha256.Sum256([]byte(string(tool) + "\x00" + content))
	return hex.EncodeToString(sum[:])
}

func entityFor(tool contractx.ToolID) contractx.EntityType {
	switch tool {
	case contractx.ToolIdentityResolve, contractx.ToolSocialProfile:
		return contractx.EntityPerson
	default:
		return contractx.EntityTopic
	}
}

func confidenceFor(result contractx.ToolResult) float64 {
	if res, ok := result.Data.(contractx.Resolution); ok && res.Confidence > 0 {
		return float64(res.Confidence) / 10
	}
	return 0.7
}
