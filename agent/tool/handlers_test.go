package tool

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	contractx "github.com/tanpawarit/vizta/agent/contract"
	"github.com/tanpawarit/vizta/pkg/pgstore"
)

type fakeContent struct {
	items      []contractx.ContentItem
	err        error
	lastHandle string
	lastQuery  string
	lastLoc    string
}

func (f *fakeContent) FetchByQuery(_ context.Context, query, location string, _ int) ([]contractx.ContentItem, error) {
	f.lastQuery, f.lastLoc = query, location
	return f.items, f.err
}

func (f *fakeContent) FetchByHandle(_ context.Context, handle string, _ int) ([]contractx.ContentItem, error) {
	f.lastHandle = handle
	return f.items, f.err
}

type fakeResolver struct {
	res contractx.Resolution
}

func (f fakeResolver) ResolveHandle(context.Context, string, string) (contractx.Resolution, error) {
	return f.res, nil
}

type fakePersonal struct {
	projects  []pgstore.Project
	decisions []pgstore.ProjectDecision
	userID    string
	project   string
}

func (f *fakePersonal) ListProjects(_ context.Context, userID, _ string, _ int) ([]pgstore.Project, error) {
	f.userID = userID
	return f.projects, nil
}

func (f *fakePersonal) SearchCodex(context.Context, string, string, int) ([]pgstore.CodexItem, error) {
	return nil, errors.New("db down")
}

func (f *fakePersonal) ListDecisions(_ context.Context, _ string, project string, _ int) ([]pgstore.ProjectDecision, error) {
	f.project = project
	return f.decisions, nil
}

type fakeSearcher struct {
	answer  string
	err     error
	queries []string
}

func (f *fakeSearcher) Search(_ context.Context, query string) (string, error) {
	f.queries = append(f.queries, query)
	return f.answer, f.err
}

var testPrompts = Prompts{
	ProfileContext:  "quien es @{{.handle}} en {{.location}}",
	ProfileAnalysis: "analiza @{{.handle}}:\n{{.posts}}",
}

var fixedNow = time.Date(2025, 7, 10, 12, 0, 0, 0, time.UTC)

func TestRegistryBindsOnlyConfiguredTools(t *testing.T) {
	t.Parallel()

	r := NewRegistry(Deps{Content: &fakeContent{}})
	assert.Len(t, r, 2)
	assert.Contains(t, r, contractx.ToolSocialSearch)
	assert.Contains(t, r, contractx.ToolSocialProfile)
	assert.NotContains(t, r, contractx.ToolProjectsList)
}

func TestSocialProfileActivityLevel(t *testing.T) {
	t.Parallel()

	content := &fakeContent{}
	for i := 0; i < 10; i++ {
		content.items = append(content.items, contractx.ContentItem{
			Author:    "CongresoGt",
			Text:      "sesión plenaria",
			Timestamp: fixedNow.Add(-time.Duration(i) * 12 * time.Hour),
		})
	}
	r := NewRegistry(Deps{Content: content, Now: func() time.Time { return fixedNow }})

	out, err := r[contractx.ToolSocialProfile](context.Background(), map[string]any{"username": "@CongresoGt"})
	require.NoError(t, err)
	require.True(t, out.Success)
	assert.Equal(t, "CongresoGt", content.lastHandle)

	data, ok := out.Data.(ProfileData)
	require.True(t, ok)
	assert.Equal(t, "media", data.ActivityLevel)
	assert.InDelta(t, 2.22, data.PostsPerDay, 0.01)
}

func profileItems(texts ...string) []contractx.ContentItem {
	items := make([]contractx.ContentItem, len(texts))
	for i, text := range texts {
		items[i] = contractx.ContentItem{Author: "MSPAS", Text: text, Timestamp: fixedNow.Add(-time.Duration(i) * time.Hour)}
	}
	return items
}

func TestSocialProfileEnrichment(t *testing.T) {
	t.Parallel()

	content := &fakeContent{items: profileItems(
		"Excelente avance en la vacunación #Salud",
		"Gran triunfo para @CongresoGt",
		"Seguimos trabajando #Salud",
	)}
	knowledge := &fakeSearcher{answer: "Ministerio de Salud Pública de Guatemala."}
	analyst := &fakeSearcher{answer: "Comunica campañas de vacunación."}
	r := NewRegistry(Deps{
		Content:         content,
		Knowledge:       knowledge,
		Analyst:         analyst,
		Prompts:         testPrompts,
		DefaultLocation: "guatemala",
		Now:             func() time.Time { return fixedNow },
	})

	out, err := r[contractx.ToolSocialProfile](context.Background(), map[string]any{"username": "MSPAS"})
	require.NoError(t, err)
	require.True(t, out.Success)

	data, ok := out.Data.(ProfileData)
	require.True(t, ok)
	assert.Equal(t, "Ministerio de Salud Pública de Guatemala.", data.WebContext)
	assert.Equal(t, "Comunica campañas de vacunación.", data.Analysis)
	assert.Equal(t, "positivo", data.Insight.Tone)
	assert.Len(t, data.Insight.ItemSentiment, 3)
	assert.NotEmpty(t, data.Insight.KeyActors)

	require.Len(t, knowledge.queries, 1)
	assert.Equal(t, "quien es @MSPAS en guatemala", knowledge.queries[0])
	require.Len(t, analyst.queries, 1)
	assert.Contains(t, analyst.queries[0], "- Gran triunfo para @CongresoGt")
}

func TestSocialProfileEnrichmentIsBestEffort(t *testing.T) {
	t.Parallel()

	content := &fakeContent{items: profileItems("uno", "dos")}
	knowledge := &fakeSearcher{answer: "NONE"}
	analyst := &fakeSearcher{answer: "no deberia llamarse"}
	r := NewRegistry(Deps{Content: content, Knowledge: knowledge, Analyst: analyst, Prompts: testPrompts, Now: func() time.Time { return fixedNow }})

	out, err := r[contractx.ToolSocialProfile](context.Background(), map[string]any{"username": "MSPAS"})
	require.NoError(t, err)
	require.True(t, out.Success)

	data := out.Data.(ProfileData)
	assert.Empty(t, data.WebContext)
	assert.Empty(t, data.Analysis, "fewer than three posts skip the analysis")
	assert.Empty(t, analyst.queries)

	knowledge.answer, knowledge.err = "", errors.New("status 503")
	out, err = r[contractx.ToolSocialProfile](context.Background(), map[string]any{"username": "MSPAS"})
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Empty(t, out.Data.(ProfileData).WebContext)
}

func TestSocialSearchCarriesInsight(t *testing.T) {
	t.Parallel()

	content := &fakeContent{items: profileItems("Otra crisis y más corrupción", "terrible desastre")}
	r := NewRegistry(Deps{Content: content})

	out, err := r[contractx.ToolSocialSearch](context.Background(), map[string]any{"query": "corrupción"})
	require.NoError(t, err)
	data := out.Data.(SocialData)
	assert.Equal(t, "negativo", data.Insight.Tone)
}

func TestSocialSearchDefaultsLocation(t *testing.T) {
	t.Parallel()

	content := &fakeContent{items: []contractx.ContentItem{{Author: "a", Text: "b"}}}
	r := NewRegistry(Deps{Content: content, DefaultLocation: "guatemala"})

	out, err := r[contractx.ToolSocialSearch](context.Background(), map[string]any{"query": "sismos #SismosGT"})
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, "guatemala", content.lastLoc)
}

func TestSocialSearchEmptyIsFinalFailure(t *testing.T) {
	t.Parallel()

	r := NewRegistry(Deps{Content: &fakeContent{}})
	out, err := r[contractx.ToolSocialSearch](context.Background(), map[string]any{"query": "nada"})
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.NotEmpty(t, out.Error)
}

func TestSocialSearchUpstreamErrorIsRetryable(t *testing.T) {
	t.Parallel()

	r := NewRegistry(Deps{Content: &fakeContent{err: errors.New("status 500")}})
	_, err := r[contractx.ToolSocialSearch](context.Background(), map[string]any{"query": "x"})
	require.EqualError(t, err, "status 500")
}

func TestIdentityResolveNoneIsNotAnError(t *testing.T) {
	t.Parallel()

	r := NewRegistry(Deps{Resolver: fakeResolver{res: contractx.Resolution{Method: "none"}}})
	out, err := r[contractx.ToolIdentityResolve](context.Background(), map[string]any{"name": "Persona Inventada"})
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Contains(t, out.Error, "Persona Inventada")
}

func TestIdentityResolveFound(t *testing.T) {
	t.Parallel()

	r := NewRegistry(Deps{Resolver: fakeResolver{res: contractx.Resolution{
		Handle: "DiegoEspana_", Confidence: 9, Method: "web_search_url", Found: true,
	}}})
	out, err := r[contractx.ToolIdentityResolve](context.Background(), map[string]any{"name": "Diego España"})
	require.NoError(t, err)
	require.True(t, out.Success)
	res, ok := out.Data.(contractx.Resolution)
	require.True(t, ok)
	assert.Equal(t, "DiegoEspana_", res.Handle)
}

func TestPersonalToolsRequireUser(t *testing.T) {
	t.Parallel()

	personal := &fakePersonal{projects: []pgstore.Project{{ID: "p1", Title: "Campaña"}}}
	r := NewRegistry(Deps{Personal: personal})

	out, err := r[contractx.ToolProjectsList](context.Background(), map[string]any{})
	require.NoError(t, err)
	assert.False(t, out.Success)

	out, err = r[contractx.ToolProjectsList](context.Background(), map[string]any{"user_id": "u-1"})
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, "u-1", personal.userID)

	_, err = r[contractx.ToolCodexSearch](context.Background(), map[string]any{"user_id": "u-1", "query": "x"})
	require.Error(t, err)

	out, err = r[contractx.ToolProjectsDecisions](context.Background(), map[string]any{"user_id": "u-1"})
	require.NoError(t, err)
	assert.False(t, out.Success)
}

func TestProjectDecisionsByTitle(t *testing.T) {
	t.Parallel()

	personal := &fakePersonal{decisions: []pgstore.ProjectDecision{{ID: "d1", ProjectID: "p1", Title: "Priorizar Quetzaltenango"}}}
	r := NewRegistry(Deps{Personal: personal})

	out, err := r[contractx.ToolProjectsDecisions](context.Background(), map[string]any{"user_id": "u-1", "project": "Campaña"})
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, "Campaña", personal.project)
	assert.Equal(t, "1 decisiones", out.Summary)
}

func TestActivityLevelBands(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "alta", ActivityLevel(6))
	assert.Equal(t, "media", ActivityLevel(1))
	assert.Equal(t, "baja", ActivityLevel(0.2))
	assert.Equal(t, 3.0, PostsPerDay(make([]contractx.ContentItem, 3), fixedNow))
}

func TestCatalogMatchesAgents(t *testing.T) {
	t.Parallel()

	social := InfosFor(contractx.AgentSocial)
	require.Len(t, social, 5)
	for i, id := range IDsFor(contractx.AgentSocial) {
		assert.Equal(t, string(id), social[i].Name)
		assert.True(t, id.Valid())
	}
	assert.Len(t, InfosFor(contractx.AgentPersonal), 3)
	assert.Empty(t, InfosFor("unknown"))
}
