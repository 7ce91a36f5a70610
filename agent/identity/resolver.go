package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/vizta/agent/contract"
	promptx "github.com/tanpawarit/vizta/agent/prompt"
)

var strategyOutcomes = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "vizta",
		Subsystem: "identity",
		Name:      "strategy_total",
		Help:      "Identity resolution strategy runs by outcome.",
	},
	[]string{"strategy", "outcome"},
)

const (
	MethodNone          = "none"
	MethodWebSearchNone = "web_search_none"
	MethodDirectMissing = "direct_handle_unverified"
)

var _ contractx.HandleResolver = (*Resolver)(nil)

// Prober confirms that a handle exists on the platform.
type Prober interface {
	Exists(ctx context.Context, handle string) (bool, error)
}

// ContentProber probes existence by fetching a single item for the handle.
type ContentProber struct {
	Retriever contractx.ContentRetriever
}

func (p ContentProber) Exists(ctx context.Context, handle string) (bool, error) {
	if p.Retriever == nil {
		return false, errors.New("content retriever is not configured")
	}
	items, err := p.Retriever.FetchByHandle(ctx, handle, 1)
	if err != nil {
		return false, err
	}
	return len(items) > 0, nil
}

type Prompts struct {
	URL       string
	Secondary string
}

type Deps struct {
	Prober    Prober
	Web       contractx.KnowledgeSearcher
	Secondary contractx.KnowledgeSearcher
	Prompts   Prompts
}

// Resolver maps a name or role to a verified handle by trying its
// strategies in order and stopping at the first confident, verified hit.
type Resolver struct {
	cfg       Config
	knowledge *Knowledge
	deps      Deps
}

func New(cfg Config, deps Deps) (*Resolver, error) {
	if deps.Prober == nil {
		return nil, fmt.Errorf("%w: identity resolver requires an existence prober", contractx.ErrValidation)
	}
	if deps.Web != nil && strings.TrimSpace(deps.Prompts.URL) == "" {
		return nil, fmt.Errorf("%w: identity url prompt", contractx.ErrPromptMissing)
	}
	if deps.Secondary != nil && strings.TrimSpace(deps.Prompts.Secondary) == "" {
		return nil, fmt.Errorf("%w: identity secondary prompt", contractx.ErrPromptMissing)
	}
	cfg = cfg.withDefaults()
	return &Resolver{
		cfg:       cfg,
		knowledge: NewKnowledge(cfg.KnowledgeHandles),
		deps:      deps,
	}, nil
}

type run struct {
	res contractx.Resolution
}

func (r *run) record(a contractx.HandleResolutionAttempt) {
	r.res.Attempts = append(r.res.Attempts, a)
}

func (r *run) accept(handle string, confidence int, method string) contractx.Resolution {
	r.res.Handle = handle
	r.res.Confidence = confidence
	r.res.Method = method
	r.res.Found = true
	return r.res
}

func (r *run) none(confidence int, method string) contractx.Resolution {
	r.res.Handle = ""
	r.res.Confidence = confidence
	r.res.Method = method
	r.res.Found = false
	return r.res
}

func (r *Resolver) ResolveHandle(ctx context.Context, nameOrRole string, hint string) (contractx.Resolution, error) {
	name := strings.TrimSpace(nameOrRole)
	if name == "" {
		return contractx.Resolution{}, fmt.Errorf("%w: name to resolve is empty", contractx.ErrValidation)
	}
	hint = strings.TrimSpace(hint)
	logger := log.Ctx(ctx).With().Str("component", "identity").Str("name", name).Logger()

	st := &run{}

	if handle, ok := ExplicitHandle(name); ok {
		verified, err := r.verify(ctx, handle)
		a := contractx.HandleResolutionAttempt{
			Strategy:       contractx.StrategyDirectHandle,
			ResolvedHandle: handle,
			Method:         string(contractx.StrategyDirectHandle),
		}
		if verified {
			a.Confidence = r.cfg.DirectConfidence
			st.record(a)
			observe(contractx.StrategyDirectHandle, "resolved")
			logger.Debug().Str("handle", handle).Msg("explicit handle verified")
			return st.accept(handle, r.cfg.DirectConfidence, string(contractx.StrategyDirectHandle)), nil
		}
		a.Error = probeError(err)
		st.record(a)
		observe(contractx.StrategyDirectHandle, "unverified")
		logger.Info().Str("handle", handle).Msg("explicit handle failed existence probe")
		return st.none(0, MethodDirectMissing), nil
	}

	if handle, ok := r.knowledge.Lookup(name); ok {
		if res, done := r.candidate(ctx, st, contractx.StrategyKnowledgeLookup, handle, r.cfg.KnowledgeConfidence); done {
			return res, nil
		}
	} else {
		observe(contractx.StrategyKnowledgeLookup, "miss")
	}

	if r.deps.Web != nil {
		if res, done := r.webSearch(ctx, st, name, hint); done {
			return res, nil
		}
	}

	if r.deps.Secondary != nil {
		if res, done := r.secondarySearch(ctx, st, name, hint); done {
			return res, nil
		}
	}

	logger.Info().Int("attempts", len(st.res.Attempts)).Msg("identity unresolved")
	return st.none(0, MethodNone), nil
}

func (r *Resolver) webSearch(ctx context.Context, st *run, name, hint string) (contractx.Resolution, bool) {
	prompt, err := promptx.RenderText(ctx, r.deps.Prompts.URL, map[string]any{"name": name, "hint": hint})
	if err != nil {
		st.record(contractx.HandleResolutionAttempt{Strategy: contractx.StrategyWebSearchURL, Method: "url_prompt", Error: err.Error()})
		observe(contractx.StrategyWebSearchURL, "error")
		return contractx.Resolution{}, false
	}

	answer, err := r.search(ctx, r.deps.Web, prompt)
	if err != nil {
		st.record(contractx.HandleResolutionAttempt{Strategy: contractx.StrategyWebSearchURL, Method: "url_search", Error: err.Error()})
		observe(contractx.StrategyWebSearchURL, "error")
		return contractx.Resolution{}, false
	}

	if IsNone(answer) {
		st.record(contractx.HandleResolutionAttempt{
			Strategy:   contractx.StrategyWebSearchURL,
			Confidence: r.cfg.WebConfidence,
			Method:     MethodWebSearchNone,
		})
		observe(contractx.StrategyWebSearchURL, "none")
		return st.none(r.cfg.WebConfidence, MethodWebSearchNone), true
	}

	handle, ok := HandleFromURL(answer)
	if !ok {
		st.record(contractx.HandleResolutionAttempt{
			Strategy: contractx.StrategyWebSearchURL,
			Method:   "url_search",
			Error:    "answer did not contain a single profile url",
		})
		observe(contractx.StrategyWebSearchURL, "ambiguous")
		return contractx.Resolution{}, false
	}
	return r.candidate(ctx, st, contractx.StrategyWebSearchURL, handle, r.cfg.WebConfidence)
}

func (r *Resolver) secondarySearch(ctx context.Context, st *run, name, hint string) (contractx.Resolution, bool) {
	prompt, err := promptx.RenderText(ctx, r.deps.Prompts.Secondary, map[string]any{"name": name, "hint": hint})
	if err != nil {
		st.record(contractx.HandleResolutionAttempt{Strategy: contractx.StrategySecondaryModelSearch, Method: "secondary_prompt", Error: err.Error()})
		observe(contractx.StrategySecondaryModelSearch, "error")
		return contractx.Resolution{}, false
	}

	answer, err := r.search(ctx, r.deps.Secondary, prompt)
	if err != nil {
		st.record(contractx.HandleResolutionAttempt{Strategy: contractx.StrategySecondaryModelSearch, Method: "secondary_search", Error: err.Error()})
		observe(contractx.StrategySecondaryModelSearch, "error")
		return contractx.Resolution{}, false
	}

	handle, ok := HandleFromAnswer(answer)
	if !ok {
		st.record(contractx.HandleResolutionAttempt{
			Strategy: contractx.StrategySecondaryModelSearch,
			Method:   "secondary_search",
			Error:    "no single handle in answer",
		})
		observe(contractx.StrategySecondaryModelSearch, "miss")
		return contractx.Resolution{}, false
	}

	return r.candidate(ctx, st, contractx.StrategySecondaryModelSearch, handle, r.cfg.SecondaryConfidence)
}

// candidate verifies a proposed handle and accepts it when the strategy's
// confidence reaches the threshold.
func (r *Resolver) candidate(ctx context.Context, st *run, strategy contractx.ResolutionStrategy, handle string, confidence int) (contractx.Resolution, bool) {
	a := contractx.HandleResolutionAttempt{
		Strategy:       strategy,
		ResolvedHandle: handle,
		Method:         string(strategy),
	}

	verified, err := r.verify(ctx, handle)
	if !verified {
		a.Error = probeError(err)
		st.record(a)
		observe(strategy, "unverified")
		return contractx.Resolution{}, false
	}

	a.Confidence = confidence
	st.record(a)
	if confidence < r.cfg.Threshold {
		observe(strategy, "below_threshold")
		return contractx.Resolution{}, false
	}
	observe(strategy, "resolved")
	return st.accept(handle, confidence, string(strategy)), true
}

func (r *Resolver) verify(ctx context.Context, handle string) (bool, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.deps.Prober.Exists(ctx, handle)
}

func (r *Resolver) search(ctx context.Context, s contractx.KnowledgeSearcher, prompt string) (string, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return s.Search(ctx, prompt)
}

func (r *Resolver) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.cfg.StrategyTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.cfg.StrategyTimeout)
}

func probeError(err error) string {
	if err != nil {
		return err.Error()
	}
	return "handle not found"
}

func observe(strategy contractx.ResolutionStrategy, outcome string) {
	strategyOutcomes.WithLabelValues(string(strategy), outcome).Inc()
}
