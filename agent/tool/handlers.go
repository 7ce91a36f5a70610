package tool

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/vizta/agent/contract"
	insightx "github.com/tanpawarit/vizta/agent/insight"
	promptx "github.com/tanpawarit/vizta/agent/prompt"
	"github.com/tanpawarit/vizta/pkg/pgstore"
)

const (
	noContextAnswer  = "NONE"
	minAnalysisPosts = 3
	maxAnalysisPosts = 10
)

// PersonalData is the relational view the personal-data tools read from.
type PersonalData interface {
	ListProjects(ctx context.Context, userID, status string, limit int) ([]pgstore.Project, error)
	SearchCodex(ctx context.Context, userID, query string, limit int) ([]pgstore.CodexItem, error)
	ListDecisions(ctx context.Context, userID, projectID string, limit int) ([]pgstore.ProjectDecision, error)
}

type Deps struct {
	Content   contractx.ContentRetriever
	Knowledge contractx.KnowledgeSearcher
	Resolver  contractx.HandleResolver
	Memory    contractx.MemoryStore
	Personal  PersonalData
	// Analyst is the secondary model that summarises a profile's posts.
	Analyst contractx.KnowledgeSearcher
	Prompts Prompts

	DefaultLocation string
	Now             func() time.Time
}

// Prompts holds the templates for the optional profile enrichment calls.
// An empty template disables its call.
type Prompts struct {
	ProfileContext  string
	ProfileAnalysis string
}

// NewRegistry binds a handler for every tool whose collaborator is set.
func NewRegistry(d Deps) Registry {
	if d.Now == nil {
		d.Now = time.Now
	}
	r := Registry{}
	if d.Content != nil {
		r[contractx.ToolSocialSearch] = socialSearch(d)
		r[contractx.ToolSocialProfile] = socialProfile(d)
	}
	if d.Knowledge != nil {
		r[contractx.ToolWebSearch] = webSearch(d)
	}
	if d.Resolver != nil {
		r[contractx.ToolIdentityResolve] = identityResolve(d)
	}
	if d.Memory != nil {
		r[contractx.ToolMemorySearch] = memorySearch(d)
	}
	if d.Personal != nil {
		r[contractx.ToolProjectsList] = projectsList(d)
		r[contractx.ToolCodexSearch] = codexSearch(d)
		r[contractx.ToolProjectsDecisions] = projectsDecisions(d)
	}
	return r
}

type SocialData struct {
	Query    string                  `json:"query"`
	Location string                  `json:"location"`
	Items    []contractx.ContentItem `json:"items"`
	Insight  insightx.Insight        `json:"insight"`
}

type ProfileData struct {
	Handle        string                  `json:"handle"`
	Items         []contractx.ContentItem `json:"items"`
	PostsPerDay   float64                 `json:"posts_per_day"`
	ActivityLevel string                  `json:"activity_level"`
	Insight       insightx.Insight        `json:"insight"`
	WebContext    string                  `json:"web_context,omitempty"`
	Analysis      string                  `json:"analysis,omitempty"`
}

type WebData struct {
	Query  string `json:"query"`
	Answer string `json:"answer"`
}

type MemoryData struct {
	Query   string                   `json:"query"`
	Records []contractx.MemoryRecord `json:"records"`
}

func socialSearch(d Deps) Handler {
	return func(ctx context.Context, args map[string]any) (contractx.ToolResult, error) {
		query := argString(args, "query")
		if query == "" {
			return failed(contractx.ToolSocialSearch, "query es requerido"), nil
		}
		location := argString(args, "location")
		if location == "" {
			location = d.DefaultLocation
		}

		items, err := d.Content.FetchByQuery(ctx, query, location, argInt(args, "limit", 15))
		if err != nil {
			return contractx.ToolResult{}, err
		}
		if len(items) == 0 {
			return failed(contractx.ToolSocialSearch, fmt.Sprintf("no se encontraron publicaciones para %q", query)), nil
		}
		return contractx.ToolResult{
			Tool:    contractx.ToolSocialSearch,
			Success: true,
			Data:    SocialData{Query: query, Location: location, Items: items, Insight: insightx.Analyze(items)},
			Summary: fmt.Sprintf("%d publicaciones sobre %q", len(items), query),
		}, nil
	}
}

func socialProfile(d Deps) Handler {
	return func(ctx context.Context, args map[string]any) (contractx.ToolResult, error) {
		handle := strings.TrimPrefix(argString(args, "username"), "@")
		if handle == "" {
			handle = strings.TrimPrefix(argString(args, "handle"), "@")
		}
		if handle == "" {
			return failed(contractx.ToolSocialProfile, "username es requerido"), nil
		}

		items, err := d.Content.FetchByHandle(ctx, handle, argInt(args, "limit", 20))
		if err != nil {
			return contractx.ToolResult{}, err
		}
		if len(items) == 0 {
			return failed(contractx.ToolSocialProfile, fmt.Sprintf("@%s no tiene publicaciones recientes", handle)), nil
		}

		perDay := PostsPerDay(items, d.Now())
		level := ActivityLevel(perDay)
		data := ProfileData{
			Handle:        handle,
			Items:         items,
			PostsPerDay:   perDay,
			ActivityLevel: level,
			Insight:       insightx.Analyze(items),
			WebContext:    profileContext(ctx, d, handle),
			Analysis:      profileAnalysis(ctx, d, handle, items),
		}
		return contractx.ToolResult{
			Tool:    contractx.ToolSocialProfile,
			Success: true,
			Data:    data,
			Summary: fmt.Sprintf("%d publicaciones recientes de @%s (actividad %s)", len(items), handle, level),
		}, nil
	}
}

// profileContext asks the knowledge searcher who the account is. Failures
// leave the profile without context.
func profileContext(ctx context.Context, d Deps, handle string) string {
	if d.Knowledge == nil || d.Prompts.ProfileContext == "" {
		return ""
	}
	query, err := promptx.RenderText(ctx, d.Prompts.ProfileContext, map[string]any{
		"handle":   handle,
		"location": d.DefaultLocation,
	})
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("handle", handle).Msg("render profile context prompt")
		return ""
	}
	answer, err := d.Knowledge.Search(ctx, query)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("handle", handle).Msg("profile context lookup failed")
		return ""
	}
	answer = strings.TrimSpace(answer)
	if strings.EqualFold(answer, noContextAnswer) {
		return ""
	}
	return answer
}

// profileAnalysis has the secondary model summarise recent posts when there
// are enough of them to say something.
func profileAnalysis(ctx context.Context, d Deps, handle string, items []contractx.ContentItem) string {
	if d.Analyst == nil || d.Prompts.ProfileAnalysis == "" || len(items) < minAnalysisPosts {
		return ""
	}
	var posts strings.Builder
	for i, it := range items {
		if i == maxAnalysisPosts {
			break
		}
		fmt.Fprintf(&posts, "- %s\n", strings.TrimSpace(it.Text))
	}
	query, err := promptx.RenderText(ctx, d.Prompts.ProfileAnalysis, map[string]any{
		"handle": handle,
		"posts":  strings.TrimSpace(posts.String()),
	})
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("handle", handle).Msg("render profile analysis prompt")
		return ""
	}
	answer, err := d.Analyst.Search(ctx, query)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("handle", handle).Msg("profile analysis failed")
		return ""
	}
	return strings.TrimSpace(answer)
}

func webSearch(d Deps) Handler {
	return func(ctx context.Context, args map[string]any) (contractx.ToolResult, error) {
		query := argString(args, "query")
		if query == "" {
			return failed(contractx.ToolWebSearch, "query es requerido"), nil
		}
		answer, err := d.Knowledge.Search(ctx, query)
		if err != nil {
			return contractx.ToolResult{}, err
		}
		answer = strings.TrimSpace(answer)
		if answer == "" {
			return contractx.ToolResult{}, errors.New("web search returned an empty answer")
		}
		return contractx.ToolResult{
			Tool:    contractx.ToolWebSearch,
			Success: true,
			Data:    WebData{Query: query, Answer: answer},
			Summary: answer,
		}, nil
	}
}

func identityResolve(d Deps) Handler {
	return func(ctx context.Context, args map[string]any) (contractx.ToolResult, error) {
		name := argString(args, "name")
		if name == "" {
			name = argString(args, "query")
		}
		if name == "" {
			return failed(contractx.ToolIdentityResolve, "name es requerido"), nil
		}

		res, err := d.Resolver.ResolveHandle(ctx, name, argString(args, "context"))
		if err != nil {
			return contractx.ToolResult{}, err
		}
		if !res.Found {
			return contractx.ToolResult{
				Tool:  contractx.ToolIdentityResolve,
				Data:  res,
				Error: fmt.Sprintf("no se pudo resolver el handle de %s", name),
			}, nil
		}
		return contractx.ToolResult{
			Tool:    contractx.ToolIdentityResolve,
			Success: true,
			Data:    res,
			Summary: fmt.Sprintf("%s es @%s (confianza %d/10, %s)", name, res.Handle, res.Confidence, res.Method),
		}, nil
	}
}

func memorySearch(d Deps) Handler {
	return func(ctx context.Context, args map[string]any) (contractx.ToolResult, error) {
		query := argString(args, "query")
		if query == "" {
			return failed(contractx.ToolMemorySearch, "query es requerido"), nil
		}
		records, err := d.Memory.Search(ctx, query, argInt(args, "limit", 5))
		if err != nil {
			return contractx.ToolResult{}, err
		}
		if len(records) == 0 {
			return failed(contractx.ToolMemorySearch, "no hay registros en memoria"), nil
		}
		return contractx.ToolResult{
			Tool:    contractx.ToolMemorySearch,
			Success: true,
			Data:    MemoryData{Query: query, Records: records},
			Summary: fmt.Sprintf("%d registros de memoria", len(records)),
		}, nil
	}
}

func projectsList(d Deps) Handler {
	return func(ctx context.Context, args map[string]any) (contractx.ToolResult, error) {
		userID := argString(args, "user_id")
		if userID == "" {
			return failed(contractx.ToolProjectsList, "user_id es requerido"), nil
		}
		projects, err := d.Personal.ListProjects(ctx, userID, argString(args, "status"), argInt(args, "limit", 10))
		if err != nil {
			return contractx.ToolResult{}, err
		}
		if len(projects) == 0 {
			return failed(contractx.ToolProjectsList, "no tienes proyectos registrados"), nil
		}
		return contractx.ToolResult{
			Tool:    contractx.ToolProjectsList,
			Success: true,
			Data:    projects,
			Summary: fmt.Sprintf("%d proyectos", len(projects)),
		}, nil
	}
}

func codexSearch(d Deps) Handler {
	return func(ctx context.Context, args map[string]any) (contractx.ToolResult, error) {
		userID := argString(args, "user_id")
		if userID == "" {
			return failed(contractx.ToolCodexSearch, "user_id es requerido"), nil
		}
		items, err := d.Personal.SearchCodex(ctx, userID, argString(args, "query"), argInt(args, "limit", 10))
		if err != nil {
			return contractx.ToolResult{}, err
		}
		if len(items) == 0 {
			return failed(contractx.ToolCodexSearch, "no se encontraron elementos en tu codex"), nil
		}
		return contractx.ToolResult{
			Tool:    contractx.ToolCodexSearch,
			Success: true,
			Data:    items,
			Summary: fmt.Sprintf("%d elementos del codex", len(items)),
		}, nil
	}
}

func projectsDecisions(d Deps) Handler {
	return func(ctx context.Context, args map[string]any) (contractx.ToolResult, error) {
		userID := argString(args, "user_id")
		if userID == "" {
			return failed(contractx.ToolProjectsDecisions, "user_id es requerido"), nil
		}
		decisions, err := d.Personal.ListDecisions(ctx, userID, argString(args, "project"), argInt(args, "limit", 10))
		if err != nil {
			return contractx.ToolResult{}, err
		}
		if len(decisions) == 0 {
			return failed(contractx.ToolProjectsDecisions, "no hay decisiones registradas"), nil
		}
		return contractx.ToolResult{
			Tool:    contractx.ToolProjectsDecisions,
			Success: true,
			Data:    decisions,
			Summary: fmt.Sprintf("%d decisiones", len(decisions)),
		}, nil
	}
}

func failed(id contractx.ToolID, msg string) contractx.ToolResult {
	return contractx.ToolResult{Tool: id, Error: msg}
}

// PostsPerDay averages items over the span from the oldest item to now,
// with a one-day floor.
func PostsPerDay(items []contractx.ContentItem, now time.Time) float64 {
	var oldest time.Time
	for _, it := range items {
		if it.Timestamp.IsZero() {
			continue
		}
		if oldest.IsZero() || it.Timestamp.Before(oldest) {
			oldest = it.Timestamp
		}
	}
	days := 1.0
	if !oldest.IsZero() {
		days = math.Max(1, now.Sub(oldest).Hours()/24)
	}
	return math.Round(float64(len(items))/days*100) / 100
}

func ActivityLevel(postsPerDay float64) string {
	switch {
	case postsPerDay >= 5:
		return "alta"
	case postsPerDay >= 1:
		return "media"
	default:
		return "baja"
	}
}
