package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	orchestratorx "github.com/tanpawarit/vizta/agent/agents/orchestrator"
	specialistx "github.com/tanpawarit/vizta/agent/agents/specialist"
	contractx "github.com/tanpawarit/vizta/agent/contract"
	identityx "github.com/tanpawarit/vizta/agent/identity"
	llmx "github.com/tanpawarit/vizta/agent/llm"
	memoryx "github.com/tanpawarit/vizta/agent/memory"
	promptx "github.com/tanpawarit/vizta/agent/prompt"
	statex "github.com/tanpawarit/vizta/agent/state"
	telemetryx "github.com/tanpawarit/vizta/agent/telemetry"
	toolx "github.com/tanpawarit/vizta/agent/tool"
	configx "github.com/tanpawarit/vizta/pkg/config"
	geminix "github.com/tanpawarit/vizta/pkg/gemini"
	nitterx "github.com/tanpawarit/vizta/pkg/nitter"
	openrouterx "github.com/tanpawarit/vizta/pkg/openrouter"
	perplexityx "github.com/tanpawarit/vizta/pkg/perplexity"
	"github.com/tanpawarit/vizta/pkg/pgstore"
	qstashx "github.com/tanpawarit/vizta/pkg/qstash"
)

// app holds every wired component. Optional collaborators stay nil when
// their configuration is absent.
type app struct {
	orchestrator *orchestratorx.Orchestrator

	memoryClient *memoryx.Client
	memoryLayer  *memoryx.Layer
	history      *statex.UpstashRedisStore
	db           *pgstore.Store
}

func (a *app) Close() {
	if a.memoryLayer != nil {
		a.memoryLayer.Wait()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			log.Warn().Err(err).Msg("close database")
		}
	}
}

// optional loads an optional config section. A missing required key means
// the component is disabled.
func optional[T any](prefix string) (*T, bool) {
	conf, err := configx.New[T](prefix)
	if err != nil {
		log.Info().Str("prefix", prefix).Err(err).Msg("component disabled")
		return nil, false
	}
	return conf, true
}

func buildApp(ctx context.Context) (*app, error) {
	a := &app{}
	prompts := promptx.LoadPromptSet()

	llmCfg, err := configx.New[llmx.Config]("LLM")
	if err != nil {
		return nil, err
	}
	routerCfg, err := configx.New[openrouterx.Config]("OPENROUTER")
	if err != nil {
		return nil, err
	}
	nitterCfg, err := configx.New[nitterx.Config]("NITTER")
	if err != nil {
		return nil, err
	}
	content, err := nitterx.New(*nitterCfg)
	if err != nil {
		return nil, err
	}

	var web contractx.KnowledgeSearcher
	if cfg, ok := optional[perplexityx.Config]("PERPLEXITY"); ok {
		client, err := perplexityx.New(*cfg)
		if err != nil {
			return nil, err
		}
		web = client
	}

	var secondary contractx.KnowledgeSearcher
	if cfg, ok := optional[geminix.Config]("GEMINI"); ok {
		searcher, err := geminix.New(ctx, *cfg)
		if err != nil {
			return nil, err
		}
		secondary = searcher
	}

	if cfg, ok := optional[pgstore.Config]("DATABASE"); ok {
		db, err := pgstore.Open(ctx, *cfg)
		if err != nil {
			return nil, err
		}
		a.db = db
	}

	var memoryStore contractx.MemoryStore
	if cfg, ok := optional[memoryx.ClientConfig]("MEMORY"); ok {
		client, err := memoryx.NewClient(*cfg)
		if err != nil {
			return nil, err
		}
		a.memoryClient = client
		memoryStore = client
	}
	layerCfg, err := configx.New[memoryx.Config]("MEMORY_LAYER")
	if err != nil {
		return nil, err
	}
	a.memoryLayer = memoryx.NewLayer(memoryStore, *layerCfg)

	if cfg, ok := optional[statex.UpstashRedisConfig]("UPSTASH_REDIS"); ok {
		store, err := statex.NewUpstashRedisStore(*cfg)
		if err != nil {
			return nil, err
		}
		a.history = store
	}

	identityCfg, err := configx.New[identityx.Config]("IDENTITY")
	if err != nil {
		return nil, err
	}
	resolver, err := identityx.New(*identityCfg, identityx.Deps{
		Prober:    identityx.ContentProber{Retriever: content},
		Web:       web,
		Secondary: secondary,
		Prompts:   identityx.Prompts{URL: prompts.HandleURL, Secondary: prompts.HandleSecondary},
	})
	if err != nil {
		return nil, err
	}

	toolCfg, err := configx.New[toolx.Config]("TOOL")
	if err != nil {
		return nil, err
	}
	toolDeps := toolx.Deps{
		Content:         content,
		Knowledge:       web,
		Resolver:        resolver,
		Memory:          memoryStore,
		Analyst:         secondary,
		Prompts:         toolx.Prompts{ProfileContext: prompts.ProfileContext, ProfileAnalysis: prompts.ProfileAnalysis},
		DefaultLocation: nitterCfg.DefaultLocation,
	}
	if a.db != nil {
		toolDeps.Personal = a.db
	}
	executor := toolx.NewExecutor(*toolCfg, toolx.NewRegistry(toolDeps))

	specialistCfg, err := configx.New[specialistx.Config]("SPECIALIST")
	if err != nil {
		return nil, err
	}
	agents := []contractx.AgentName{contractx.AgentSocial}
	if a.db != nil {
		agents = append(agents, contractx.AgentPersonal)
	}
	specialists, err := specialistx.NewRegistry(ctx, specialistx.RegistryConfig{
		LLM:         *llmCfg,
		Router:      *routerCfg,
		Executor:    executor,
		Memory:      a.memoryLayer,
		Agents:      agents,
		PlanTimeout: specialistCfg.PlanTimeout,
		EarlyStop:   specialistCfg.EarlyStop,
	})
	if err != nil {
		return nil, err
	}

	primary, fallback, err := llmx.Build(ctx, *llmCfg, *routerCfg, llmx.PurposeClassifier)
	if err != nil {
		return nil, err
	}
	classifier, err := orchestratorx.NewModelClassifier(primary, fallback, prompts.Classifier, llmCfg.Options())
	if err != nil {
		return nil, err
	}

	sinks := telemetryx.MultiSink{telemetryx.LogSink{}, telemetryx.NewPrometheusSink(prometheus.DefaultRegisterer)}
	var post []contractx.PostProcessor
	if a.db != nil {
		sinks = append(sinks, telemetryx.PgSink{Writer: a.db})
		post = append(post, telemetryx.UsageRecorder{Writer: a.db})
	}
	if cfg, ok := optional[qstashx.Config]("QSTASH"); ok {
		client, err := qstashx.NewClient(*cfg)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, telemetryx.QStashSink{Publisher: client})
	}

	orchCfg, err := configx.New[orchestratorx.Config]("ORCHESTRATOR")
	if err != nil {
		return nil, err
	}
	deps := orchestratorx.Deps{
		Specialists:    specialists,
		Classifier:     classifier,
		Telemetry:      sinks,
		PostProcessors: post,
	}
	if a.history != nil {
		deps.History = a.history
	}
	a.orchestrator, err = orchestratorx.New(deps, *orchCfg)
	if err != nil {
		return nil, err
	}
	return a, nil
}

type check struct {
	Name string `json:"name"`
	OK   bool   `json:"ok"`
	Info string `json:"info,omitempty"`
}

// health probes the collaborators that expose a cheap check.
func (a *app) health(ctx context.Context) ([]check, error) {
	var checks []check
	var failed []string

	add := func(name string, err error, disabled bool) {
		c := check{Name: name, OK: err == nil && !disabled}
		switch {
		case disabled:
			c.Info = "disabled"
		case err != nil:
			c.Info = err.Error()
			failed = append(failed, name)
		}
		checks = append(checks, c)
	}

	if a.memoryClient != nil {
		var err error
		if !a.memoryClient.Health(ctx) {
			err = contractx.ErrMemoryUnavailable
		}
		add("memory", err, false)
	} else {
		add("memory", nil, true)
	}

	if a.db != nil {
		add("database", a.db.Ping(ctx), false)
	} else {
		add("database", nil, true)
	}

	if a.history != nil {
		_, err := a.history.Recent(ctx, "healthcheck", 1)
		add("history", err, false)
	} else {
		add("history", nil, true)
	}

	if len(failed) > 0 {
		return checks, fmt.Errorf("unhealthy: %v", failed)
	}
	return checks, nil
}

func (a *app) migrate(ctx context.Context) error {
	if a.db == nil {
		return errors.New("DATABASE_DSN is not configured")
	}
	return a.db.EnsureSchema(ctx)
}
