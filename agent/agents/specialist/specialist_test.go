package specialist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	contractx "github.com/tanpawarit/vizta/agent/contract"
	identityx "github.com/tanpawarit/vizta/agent/identity"
	insightx "github.com/tanpawarit/vizta/agent/insight"
	toolx "github.com/tanpawarit/vizta/agent/tool"
	"github.com/tanpawarit/vizta/pkg/pgstore"
)

type socialFixture struct {
	content *fakeContent
	web     *fakeSearcher
	planner *fakePlanner
	memory  *fakeMemory
	exec    *toolx.Executor
	agent   *Agent
}

func newSocialFixture(t *testing.T, plan contractx.Plan) *socialFixture {
	t.Helper()

	f := &socialFixture{
		content: &fakeContent{byHandle: map[string][]contractx.ContentItem{}},
		web:     &fakeSearcher{},
		planner: &fakePlanner{plan: plan},
		memory:  &fakeMemory{},
	}

	resolver, err := identityx.New(identityx.DefaultConfig(), identityx.Deps{
		Prober:  identityx.ContentProber{Retriever: f.content},
		Web:     f.web,
		Prompts: identityx.Prompts{URL: "perfil de {{.name}}"},
	})
	require.NoError(t, err)

	f.exec = toolx.NewExecutor(toolx.Config{Timeout: time.Second, DefaultLocation: "guatemala"}, toolx.NewRegistry(toolx.Deps{
		Content:         f.content,
		Knowledge:       f.web,
		Resolver:        resolver,
		DefaultLocation: "guatemala",
	}))

	agent, err := NewSocial(context.Background(), Deps{Planner: f.planner, Executor: f.exec, Memory: f.memory})
	require.NoError(t, err)
	f.agent = agent
	return f
}

func TestSocialExplicitHandleSkipsIdentity(t *testing.T) {
	t.Parallel()

	f := newSocialFixture(t, contractx.Plan{
		Action: contractx.ActionDirectExecution,
		Tool:   contractx.ToolSocialProfile,
		Args:   map[string]any{"username": "CongresoGt"},
	})
	f.content.byHandle["congresogt"] = posts("CongresoGt", 6, "Sesión plenaria del Congreso")

	res, err := f.agent.Handle(context.Background(), query("tweets de @CongresoGt"))
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, contractx.AgentSocial, res.AgentName)
	assert.Equal(t, []contractx.ToolID{contractx.ToolSocialProfile}, res.Tools)
	assert.Equal(t, []string{"CongresoGt"}, f.content.profileCalls())
	assert.Equal(t, 0, f.web.calls, "identity pipeline must not run for an explicit handle")
	assert.Contains(t, res.Message, "@CongresoGt")
	assert.Equal(t, []contractx.ToolID{contractx.ToolSocialProfile}, f.memory.persists)
}

func TestSocialResolvesIdentityThenFetchesProfile(t *testing.T) {
	t.Parallel()

	f := newSocialFixture(t, contractx.Plan{
		Action: contractx.ActionDirectExecution,
		Tool:   contractx.ToolIdentityResolve,
		Args:   map[string]any{"name": "Diego España"},
	})
	f.web.answer = "https://x.com/DiegoEspana_"
	f.content.byHandle["diegoespana_"] = posts("DiegoEspana_", 4, "Diego España opina sobre el Congreso")

	res, err := f.agent.Handle(context.Background(), query("tweets de Diego España"))
	require.NoError(t, err)

	require.True(t, res.Success, res.Error)
	assert.Equal(t, []string{"DiegoEspana_"}, f.content.profileCalls())
	assert.Equal(t, []contractx.ToolID{contractx.ToolIdentityResolve, contractx.ToolSocialProfile}, res.Tools)

	data, ok := res.Data.([]any)
	require.True(t, ok)
	require.Len(t, data, 2)
	resolution, ok := data[0].(contractx.Resolution)
	require.True(t, ok)
	assert.Equal(t, "DiegoEspana_", resolution.Handle)
	assert.GreaterOrEqual(t, resolution.Confidence, 9)
	profile, ok := data[1].(toolx.ProfileData)
	require.True(t, ok)
	assert.Equal(t, "DiegoEspana_", profile.Handle)
}

func TestSocialPlannedProfileAfterResolveRunsOnce(t *testing.T) {
	t.Parallel()

	f := newSocialFixture(t, contractx.Plan{
		Action: contractx.ActionMultiStepExecution,
		Steps: []contractx.PlanStep{
			{Tool: contractx.ToolIdentityResolve, Args: map[string]any{"name": "Diego España"}},
			{Tool: contractx.ToolSocialProfile, Args: map[string]any{"username": "@diegoespana_"}},
		},
	})
	f.web.answer = "https://x.com/DiegoEspana_"
	f.content.byHandle["diegoespana_"] = posts("DiegoEspana_", 4, "Diego España opina sobre el Congreso")

	agent, err := NewSocial(context.Background(), Deps{Planner: f.planner, Executor: f.exec, Memory: f.memory, EarlyStop: 11})
	require.NoError(t, err)

	res, err := agent.Handle(context.Background(), query("tweets de Diego España"))
	require.NoError(t, err)
	require.True(t, res.Success, res.Error)

	assert.Equal(t, []string{"DiegoEspana_"}, f.content.profileCalls())
	assert.Equal(t, []contractx.ToolID{contractx.ToolIdentityResolve, contractx.ToolSocialProfile}, f.memory.persists)
	assert.Equal(t, 1, strings.Count(res.Message, "Publicaciones recientes de @DiegoEspana_"), res.Message)
}

func TestSocialUnresolvedIdentityIsFailedResult(t *testing.T) {
	t.Parallel()

	f := newSocialFixture(t, contractx.Plan{
		Action: contractx.ActionDirectExecution,
		Tool:   contractx.ToolIdentityResolve,
		Args:   map[string]any{"name": "Completely Fictitious Person 9999"},
	})
	f.web.answer = "NONE"

	res, err := f.agent.Handle(context.Background(), query("tweets de Completely Fictitious Person 9999"))
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "Completely Fictitious Person 9999")
	assert.Empty(t, f.content.profileCalls())
	assert.Zero(t, res.RelevanceScore)
}

func TestPlanErrorIsReturned(t *testing.T) {
	t.Parallel()

	f := newSocialFixture(t, contractx.Plan{})
	f.planner.err = fmt.Errorf("%w: primary: down; fallback: down", contractx.ErrReasoningUnavailable)

	res, err := f.agent.Handle(context.Background(), query("tweets de Diego España"))
	require.ErrorIs(t, err, contractx.ErrReasoningUnavailable)
	assert.False(t, res.Success)
	assert.Equal(t, contractx.AgentSocial, res.AgentName)
	assert.NotEmpty(t, res.Error)
	assert.Empty(t, f.content.profileCalls())
}

func TestClarificationSkipsTools(t *testing.T) {
	t.Parallel()

	f := newSocialFixture(t, contractx.Plan{
		Action:   contractx.ActionNeedsClarification,
		FollowUp: "¿De qué persona quieres ver publicaciones?",
	})

	res, err := f.agent.Handle(context.Background(), query("tweets"))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "¿De qué persona quieres ver publicaciones?", res.Message)
	assert.Empty(t, res.Tools)
}

func TestMultiStepStopsEarlyOnRelevantResult(t *testing.T) {
	t.Parallel()

	f := newSocialFixture(t, contractx.Plan{
		Action: contractx.ActionMultiStepExecution,
		Steps: []contractx.PlanStep{
			{Tool: contractx.ToolSocialSearch, Args: map[string]any{"query": "presupuesto congreso"}},
			{Tool: contractx.ToolWebSearch, Args: map[string]any{"query": "presupuesto congreso"}},
		},
	})
	f.content.byQuery = posts("periodista", 12, "El presupuesto aprobado por el congreso")

	res, err := f.agent.Handle(context.Background(), query("presupuesto congreso"))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.GreaterOrEqual(t, res.RelevanceScore, DefaultEarlyStop)
	assert.Equal(t, 0, f.web.calls, "second step must be skipped")
	assert.Equal(t, []contractx.ToolID{contractx.ToolSocialSearch}, res.Tools)
}

func TestMultiStepEarlyStopIsConfigurable(t *testing.T) {
	t.Parallel()

	f := newSocialFixture(t, contractx.Plan{
		Action: contractx.ActionMultiStepExecution,
		Steps: []contractx.PlanStep{
			{Tool: contractx.ToolSocialSearch, Args: map[string]any{"query": "presupuesto congreso"}},
			{Tool: contractx.ToolWebSearch, Args: map[string]any{"query": "presupuesto congreso"}},
		},
	})
	f.content.byQuery = posts("periodista", 12, "El presupuesto aprobado por el congreso")
	f.web.answer = "El presupuesto del congreso fue aprobado."

	agent, err := NewSocial(context.Background(), Deps{Planner: f.planner, Executor: f.exec, EarlyStop: 11})
	require.NoError(t, err)

	res, err := agent.Handle(context.Background(), query("presupuesto congreso"))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, f.web.calls)
	assert.Len(t, res.Tools, 2)
}

func TestMultiStepContinuesOnWeakResult(t *testing.T) {
	t.Parallel()

	f := newSocialFixture(t, contractx.Plan{
		Action: contractx.ActionMultiStepExecution,
		Steps: []contractx.PlanStep{
			{Tool: contractx.ToolSocialSearch, Args: map[string]any{"query": "reforma electoral"}},
			{Tool: contractx.ToolWebSearch, Args: map[string]any{"query": "reforma electoral"}},
		},
	})
	f.content.byQuery = posts("alguien", 1, "hola")
	f.web.answer = "La reforma electoral propuesta modifica la ley electoral."

	res, err := f.agent.Handle(context.Background(), query("reforma electoral"))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, f.web.calls)
	assert.Len(t, res.Tools, 2)
	assert.True(t, strings.Contains(res.Message, "reforma electoral propuesta"))
}

func TestToolFailureBecomesFailedResult(t *testing.T) {
	t.Parallel()

	planner := &fakePlanner{plan: contractx.Plan{
		Action: contractx.ActionDirectExecution,
		Tool:   contractx.ToolWebSearch,
		Args:   map[string]any{"query": "x"},
	}}
	exec := toolx.NewExecutor(toolx.Config{Timeout: time.Second}, toolx.Registry{
		contractx.ToolWebSearch: func(context.Context, map[string]any) (contractx.ToolResult, error) {
			return contractx.ToolResult{}, errors.New("perplexity: status 429")
		},
	})
	agent, err := NewSocial(context.Background(), Deps{Planner: planner, Executor: exec})
	require.NoError(t, err)

	res, err := agent.Handle(context.Background(), query("contexto de x"))
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "perplexity: status 429", res.Error)
}

func TestMemoryContextReachesPlanner(t *testing.T) {
	t.Parallel()

	f := newSocialFixture(t, contractx.Plan{Action: contractx.ActionNeedsClarification})
	f.memory.context = "Información relevante de memoria:\n1. CongresoGt es la cuenta oficial"

	task := query("tweets del congreso")
	task.History = "usuario: hola\nasistente: ¡Hola!"
	_, err := f.agent.Handle(context.Background(), task)
	require.NoError(t, err)

	require.Len(t, f.planner.extras, 1)
	assert.Contains(t, f.planner.extras[0], "CongresoGt es la cuenta oficial")
	assert.Contains(t, f.planner.extras[0], "asistente: ¡Hola!")
}

type fakePersonal struct {
	projects []pgstore.Project
	userIDs  []string
}

func (f *fakePersonal) ListProjects(_ context.Context, userID, _ string, _ int) ([]pgstore.Project, error) {
	f.userIDs = append(f.userIDs, userID)
	return f.projects, nil
}

func (f *fakePersonal) SearchCodex(_ context.Context, userID, _ string, _ int) ([]pgstore.CodexItem, error) {
	f.userIDs = append(f.userIDs, userID)
	return nil, nil
}

func (f *fakePersonal) ListDecisions(_ context.Context, userID, _ string, _ int) ([]pgstore.ProjectDecision, error) {
	f.userIDs = append(f.userIDs, userID)
	return nil, nil
}

func TestPersonalInjectsUser(t *testing.T) {
	t.Parallel()

	personal := &fakePersonal{projects: []pgstore.Project{{ID: "p1", Title: "Campaña de transparencia", Status: "active"}}}
	planner := &fakePlanner{plan: contractx.Plan{
		Action: contractx.ActionDirectExecution,
		Tool:   contractx.ToolProjectsList,
		Args:   map[string]any{"status": "active", "user_id": "someone-else"},
	}}
	exec := toolx.NewExecutor(toolx.Config{Timeout: time.Second}, toolx.NewRegistry(toolx.Deps{Personal: personal}))
	agent, err := NewPersonal(context.Background(), Deps{Planner: planner, Executor: exec})
	require.NoError(t, err)

	res, err := agent.Handle(context.Background(), query("mis proyectos activos"))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, []string{"user-1"}, personal.userIDs)
	assert.Contains(t, res.Message, "Campaña de transparencia")
	assert.Equal(t, []contractx.ToolID{contractx.ToolProjectsList, contractx.ToolCodexSearch, contractx.ToolProjectsDecisions}, agent.Tools())
}

func TestUndeclaredToolIsRejected(t *testing.T) {
	t.Parallel()

	planner := &fakePlanner{plan: contractx.Plan{Action: contractx.ActionDirectExecution, Tool: contractx.ToolSocialSearch}}
	exec := toolx.NewExecutor(toolx.Config{}, toolx.Registry{})
	agent, err := NewPersonal(context.Background(), Deps{Planner: planner, Executor: exec})
	require.NoError(t, err)

	res, err := agent.Handle(context.Background(), query("algo"))
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "unknown tool")
}

func TestScore(t *testing.T) {
	t.Parallel()

	rich := contractx.ToolResult{
		Success: true,
		Data:    toolx.SocialData{Query: "presupuesto", Items: posts("a", 12, "presupuesto del congreso")},
	}
	assert.Equal(t, 10, Score("presupuesto congreso", rich))

	thin := contractx.ToolResult{Success: true, Data: toolx.SocialData{Items: posts("a", 1, "hola")}}
	assert.Equal(t, 1, Score("reforma electoral", thin))

	assert.Zero(t, Score("x", contractx.ToolResult{}))
}

func TestFormatProfileIncludesEnrichment(t *testing.T) {
	t.Parallel()

	msg := formatResult(contractx.ToolResult{
		Tool:    contractx.ToolSocialProfile,
		Success: true,
		Data: toolx.ProfileData{
			Handle:        "MSPAS",
			Items:         posts("MSPAS", 2, "vacunación"),
			ActivityLevel: "media",
			PostsPerDay:   1.5,
			Insight: insightx.Insight{
				Sentiment: 0.5,
				Tone:      insightx.TonePositive,
				KeyActors: []insightx.Actor{{Name: "#Salud", Kind: insightx.KindHashtag, Count: 3}},
				Momentum:  0.25,
			},
			WebContext: "Ministerio de Salud Pública.",
			Analysis:   "Comunica campañas de vacunación.",
		},
	})

	assert.True(t, strings.HasPrefix(msg, "Quién es @MSPAS: Ministerio de Salud Pública."), msg)
	assert.Contains(t, msg, "Tono general: positivo (+0.50)")
	assert.Contains(t, msg, "Actores clave: #Salud (3)")
	assert.Contains(t, msg, "Impulso: 25%")
	assert.Contains(t, msg, "Análisis: Comunica campañas de vacunación.")
}

func TestFormatSearchWithoutMomentum(t *testing.T) {
	t.Parallel()

	msg := formatResult(contractx.ToolResult{
		Success: true,
		Data: toolx.SocialData{
			Query:   "sismo",
			Items:   posts("a", 1, "sismo"),
			Insight: insightx.Insight{Tone: insightx.ToneNeutral},
		},
	})

	assert.Contains(t, msg, "Tono general: neutral (+0.00)")
	assert.NotContains(t, msg, "Impulso")
	assert.NotContains(t, msg, "Actores clave")
}
