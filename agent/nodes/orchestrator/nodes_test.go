package orchestratornode

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	contractx "github.com/tanpawarit/vizta/agent/contract"
	statex "github.com/tanpawarit/vizta/agent/state"
)

type countingHistory struct {
	reads   int
	appends int
}

func (h *countingHistory) Recent(context.Context, string, int) ([]statex.Turn, error) {
	h.reads++
	return nil, nil
}

func (h *countingHistory) Append(context.Context, string, ...statex.Turn) error {
	h.appends++
	return nil
}

func (h *countingHistory) Delete(context.Context, string) error { return nil }

func TestMatchPhraseSkipsHistory(t *testing.T) {
	t.Parallel()

	st, err := MatchPhrase(&GraphState{Query: contractx.Query{Text: "¡Hola!", SessionID: "s-1"}})
	if err != nil {
		t.Fatalf("MatchPhrase: %v", err)
	}
	if !Phrased(st) || st.Classification.Intent != contractx.IntentConversational {
		t.Fatalf("classification = %+v, want phrase conversational", st.Classification)
	}

	st, _ = ConversationalReply(st)
	h := &countingHistory{}
	AppendHistory(context.Background(), st, h)
	if h.appends != 0 {
		t.Fatalf("appends = %d, want 0 for a canned reply", h.appends)
	}

	other, _ := MatchPhrase(&GraphState{Query: contractx.Query{Text: "tweets de @CongresoGt", SessionID: "s-1"}})
	if Phrased(other) {
		t.Fatalf("non-phrase query was matched")
	}
	other.Response = contractx.Response{Message: "ok"}
	AppendHistory(context.Background(), other, h)
	if h.appends != 1 {
		t.Fatalf("appends = %d, want 1", h.appends)
	}
}

func TestCannedReply(t *testing.T) {
	t.Parallel()

	cases := map[string]bool{
		"hola":                                   true,
		"¡Hola!":                                 true,
		"  Buenas   tardes. ":                    true,
		"gracias!!":                              true,
		"¿Qué puedes hacer?":                     true,
		"What can you do?":                       true,
		"hola, tweets de @x":                     false,
		"tweets de @CongresoGt":                  false,
		"gracias por los datos de mis proyectos": false,
	}
	for text, want := range cases {
		if _, got := CannedReply(text); got != want {
			t.Errorf("CannedReply(%q) matched = %v, want %v", text, got, want)
		}
	}
}

func TestKeywordAgents(t *testing.T) {
	t.Parallel()

	cases := []struct {
		text string
		want []contractx.AgentName
	}{
		{"tweets de @CongresoGt", []contractx.AgentName{contractx.AgentSocial}},
		{"qué dicen del #PresupuestoGT", []contractx.AgentName{contractx.AgentSocial}},
		{"mis proyectos activos", []contractx.AgentName{contractx.AgentPersonal}},
		{"qué opinan en redes sobre mis decisiones", []contractx.AgentName{contractx.AgentSocial, contractx.AgentPersonal}},
		{"resumen de avances", nil},
	}
	for _, tc := range cases {
		got := KeywordAgents(tc.text)
		if len(got) != len(tc.want) {
			t.Fatalf("KeywordAgents(%q) = %v, want %v", tc.text, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("KeywordAgents(%q) = %v, want %v", tc.text, got, tc.want)
			}
		}
	}
}

func TestRouteAgentsUnionsAndFilters(t *testing.T) {
	t.Parallel()

	available := []contractx.AgentName{contractx.AgentSocial, contractx.AgentPersonal}

	st := &GraphState{
		Query:          contractx.Query{Text: "tweets de @CongresoGt"},
		Classification: contractx.Classification{Agents: []contractx.AgentName{contractx.AgentPersonal, "finance"}},
	}
	st, err := RouteAgents(st, available)
	if err != nil {
		t.Fatalf("RouteAgents() error = %v", err)
	}
	if len(st.Agents) != 2 || st.Agents[0] != contractx.AgentSocial || st.Agents[1] != contractx.AgentPersonal {
		t.Fatalf("agents = %v", st.Agents)
	}

	st = &GraphState{Query: contractx.Query{Text: "resumen de avances"}}
	st, _ = RouteAgents(st, []contractx.AgentName{contractx.AgentPersonal})
	if len(st.Agents) != 1 || st.Agents[0] != contractx.AgentPersonal {
		t.Fatalf("agents = %v, want the only available agent", st.Agents)
	}

	if _, err := RouteAgents(&GraphState{}, nil); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("RouteAgents() without agents error = %v", err)
	}
}

type stubClassifier struct {
	out   contractx.Classification
	err   error
	calls int
}

func (s *stubClassifier) Classify(context.Context, contractx.Query, string) (contractx.Classification, error) {
	s.calls++
	return s.out, s.err
}

func TestClassifyPrefersPhrasesThenModelThenRules(t *testing.T) {
	t.Parallel()

	c := &stubClassifier{out: contractx.Classification{Intent: contractx.IntentAgentic}}

	st, _ := Classify(context.Background(), &GraphState{Query: contractx.Query{Text: "gracias"}}, c)
	if st.Classification.Source != SourcePhrase || c.calls != 0 {
		t.Fatalf("phrase classification = %+v, calls = %d", st.Classification, c.calls)
	}

	st, _ = Classify(context.Background(), &GraphState{Query: contractx.Query{Text: "presupuesto"}}, c)
	if st.Classification.Source != SourceModel || c.calls != 1 {
		t.Fatalf("model classification = %+v", st.Classification)
	}

	c.err = errors.New("boom")
	st, _ = Classify(context.Background(), &GraphState{Query: contractx.Query{Text: "mis proyectos"}}, c)
	if st.Classification.Source != SourceRules || st.Classification.Intent != contractx.IntentAgentic {
		t.Fatalf("rules classification = %+v", st.Classification)
	}
	if len(st.Classification.Agents) != 1 || st.Classification.Agents[0] != contractx.AgentPersonal {
		t.Fatalf("rules agents = %v", st.Classification.Agents)
	}
}

func TestMergeResults(t *testing.T) {
	t.Parallel()

	t.Run("single success verbatim", func(t *testing.T) {
		t.Parallel()
		st, _ := MergeResults(&GraphState{Results: []contractx.AgentResult{
			{AgentName: contractx.AgentSocial, Error: "timeout"},
			{AgentName: contractx.AgentPersonal, Success: true, Message: "  Tus proyectos.  ", RelevanceScore: 3},
		}})
		if !st.Response.Success || st.Response.Message != "Tus proyectos." {
			t.Fatalf("response = %+v", st.Response)
		}
	})

	t.Run("several ordered by relevance", func(t *testing.T) {
		t.Parallel()
		st, _ := MergeResults(&GraphState{Results: []contractx.AgentResult{
			{AgentName: contractx.AgentSocial, Success: true, Message: "A", RelevanceScore: 5},
			{AgentName: contractx.AgentPersonal, Success: true, Message: "B", RelevanceScore: 9},
		}})
		want := "**Tus datos** (relevancia 9/10)\nB\n\n**Redes y web** (relevancia 5/10)\nA"
		if st.Response.Message != want {
			t.Fatalf("message = %q, want %q", st.Response.Message, want)
		}
	})

	t.Run("all failed explains first error", func(t *testing.T) {
		t.Parallel()
		st, _ := MergeResults(&GraphState{Results: []contractx.AgentResult{
			{AgentName: contractx.AgentSocial, Error: "reasoning unavailable: primary: x; fallback: y"},
			{AgentName: contractx.AgentPersonal, Error: "second"},
		}})
		if st.Response.Success {
			t.Fatalf("expected failure")
		}
		if st.Response.Diagnostic != "reasoning unavailable: primary: x; fallback: y" {
			t.Fatalf("diagnostic = %q", st.Response.Diagnostic)
		}
		if st.Response.Message != "No pude completar tu consulta: reasoning unavailable: primary: x; fallback: y" {
			t.Fatalf("message = %q", st.Response.Message)
		}
	})
}

type slowSpecialist struct {
	name    contractx.AgentName
	delay   time.Duration
	running *atomic.Int32
	peak    *atomic.Int32
}

func (s *slowSpecialist) Name() contractx.AgentName { return s.name }
func (s *slowSpecialist) Tools() []contractx.ToolID { return nil }

func (s *slowSpecialist) Handle(ctx context.Context, _ contractx.AgentTask) (contractx.AgentResult, error) {
	n := s.running.Add(1)
	defer s.running.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	select {
	case <-time.After(s.delay):
		return contractx.AgentResult{Success: true, Message: string(s.name)}, nil
	case <-ctx.Done():
		return contractx.AgentResult{}, ctx.Err()
	}
}

func TestDispatchAgentsRunsConcurrently(t *testing.T) {
	t.Parallel()

	running, peak := &atomic.Int32{}, &atomic.Int32{}
	specialists := map[contractx.AgentName]contractx.Specialist{
		contractx.AgentSocial:   &slowSpecialist{name: contractx.AgentSocial, delay: 50 * time.Millisecond, running: running, peak: peak},
		contractx.AgentPersonal: &slowSpecialist{name: contractx.AgentPersonal, delay: 50 * time.Millisecond, running: running, peak: peak},
	}
	st := &GraphState{
		Query:  contractx.Query{Text: "x"},
		Agents: []contractx.AgentName{contractx.AgentSocial, contractx.AgentPersonal},
	}

	st, err := DispatchAgents(context.Background(), st, specialists, time.Second)
	if err != nil {
		t.Fatalf("DispatchAgents() error = %v", err)
	}
	if peak.Load() != 2 {
		t.Fatalf("peak concurrency = %d, want 2", peak.Load())
	}
	if st.Results[0].Message != "social" || st.Results[1].Message != "personal" {
		t.Fatalf("results out of order: %+v", st.Results)
	}
}

func TestDispatchAgentsTimeoutAndMissingAgent(t *testing.T) {
	t.Parallel()

	running, peak := &atomic.Int32{}, &atomic.Int32{}
	specialists := map[contractx.AgentName]contractx.Specialist{
		contractx.AgentSocial: &slowSpecialist{name: contractx.AgentSocial, delay: time.Second, running: running, peak: peak},
	}
	st := &GraphState{
		Query:  contractx.Query{Text: "x"},
		Agents: []contractx.AgentName{contractx.AgentSocial, contractx.AgentPersonal},
	}

	st, _ = DispatchAgents(context.Background(), st, specialists, 20*time.Millisecond)
	if st.Results[0].Success || st.Results[0].Error != context.DeadlineExceeded.Error() {
		t.Fatalf("timed out result = %+v", st.Results[0])
	}
	if st.Results[0].AgentName != contractx.AgentSocial {
		t.Fatalf("agent name = %q", st.Results[0].AgentName)
	}
	if st.Results[1].Success || st.Results[1].Error == "" {
		t.Fatalf("missing agent result = %+v", st.Results[1])
	}
}

func TestFinalizeAndTelemetryEvent(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	st := &GraphState{
		Query:   contractx.Query{Text: "x", SessionID: "s-1", UserID: "u-1"},
		Started: start,
		Response: contractx.Response{
			Success: true,
			Intent:  contractx.IntentAgentic,
			Agents:  []contractx.AgentName{contractx.AgentSocial},
			Contributions: []contractx.AgentResult{
				{Tools: []contractx.ToolID{contractx.ToolIdentityResolve, contractx.ToolSocialProfile}},
			},
		},
	}
	resp, err := Finalize(st, start.Add(1500*time.Millisecond))
	if err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	if resp.SessionID != "s-1" || resp.Latency != 1500*time.Millisecond {
		t.Fatalf("response = %+v", resp)
	}

	ev := TelemetryEvent(st.Query, resp)
	if ev.ID == "" || ev.UserID != "u-1" || len(ev.Tools) != 2 || !ev.Success || ev.Error != "" {
		t.Fatalf("event = %+v", ev)
	}
}
