package dialogue

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/spigell/smartintern/internal/ai"
	"github.com/spigell/smartintern/internal/errs"
	"github.com/spigell/smartintern/internal/resume"
)

type recordingGenerator struct {
	mu       sync.Mutex
	answer   string
	err      error
	requests []ai.Request
}

func (g *recordingGenerator) Model() string { return "recording" }

func (g *recordingGenerator) Generate(_ context.Context, req ai.Request) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	return g.answer, g.err
}

func (g *recordingGenerator) last(t *testing.T) ai.Request {
	t.Helper()
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.requests) == 0 {
		t.Fatalf("generator was not called")
	}
	return g.requests[len(g.requests)-1]
}

func testProfile() resume.CandidateProfile {
	return resume.CandidateProfile{
		Name:     "Jordan Lee",
		Summary:  "Computer science student in India with Go and machine learning projects.",
		Projects: []string{"Resume ranker"},
		Country:  "India",
	}
}

func TestSessionStateMachine(t *testing.T) {
	s := NewSession()
	if s.State() != AwaitingResume {
		t.Fatalf("expected %s, got %s", AwaitingResume, s.State())
	}

	if err := s.Append(Turn{Role: RoleUser, Content: "hi"}); !errors.Is(err, errs.ErrInput) {
		t.Fatalf("expected input error before profile, got %v", err)
	}
	if err := s.MarkSearchReady(); !errors.Is(err, errs.ErrInput) {
		t.Fatalf("expected input error before profile, got %v", err)
	}
	if err := s.AttachProfile(resume.CandidateProfile{}); !errors.Is(err, errs.ErrInput) {
		t.Fatalf("expected invalid profile to be rejected, got %v", err)
	}

	if err := s.AttachProfile(testProfile()); err != nil {
		t.Fatalf("AttachProfile returned error: %v", err)
	}
	if s.State() != ProfileReady {
		t.Fatalf("expected %s, got %s", ProfileReady, s.State())
	}

	if err := s.Append(Turn{Role: RoleUser, Content: "hi"}); err != nil {
		t.Fatalf("Append returned error: %v", err)
	}
	if s.State() != GatheringPreferences {
		t.Fatalf("expected %s, got %s", GatheringPreferences, s.State())
	}

	if err := s.MarkSearchReady(); err != nil {
		t.Fatalf("MarkSearchReady returned error: %v", err)
	}
	if s.State() != SearchReady {
		t.Fatalf("expected %s, got %s", SearchReady, s.State())
	}
}

func TestSessionHistoryIsCopy(t *testing.T) {
	s := NewSession()
	if err := s.AttachProfile(testProfile()); err != nil {
		t.Fatalf("AttachProfile returned error: %v", err)
	}
	if err := s.Append(Turn{Role: RoleUser, Content: "one"}); err != nil {
		t.Fatalf("Append returned error: %v", err)
	}

	history := s.History()
	history[0].Content = "changed"

	if got := s.History()[0].Content; got != "one" {
		t.Fatalf("history was mutated through copy: %q", got)
	}
}

func TestFormatHistory(t *testing.T) {
	got := FormatHistory([]Turn{
		{Role: RoleUser, Content: "I want  an [internship]"},
		{Role: RoleAssistant, Content: "Which field?"},
	})
	want := "User: I want an (internship)\nAssistant: Which field?"
	if got != want {
		t.Fatalf("unexpected history:\n%s\nwant:\n%s", got, want)
	}

	if FormatHistory(nil) == "" {
		t.Fatalf("expected placeholder for empty history")
	}
}

func TestRespondPassesProfileAndHistory(t *testing.T) {
	gen := &recordingGenerator{answer: "  You could apply for backend internships.  "}
	history := []Turn{{Role: RoleUser, Content: "I like Go"}, {Role: RoleAssistant, Content: "Noted."}}

	answer, err := NewResponder(gen, nil).Respond(context.Background(), testProfile(), history, "What roles fit me?")
	if err != nil {
		t.Fatalf("Respond returned error: %v", err)
	}
	if answer != "You could apply for backend internships." {
		t.Fatalf("unexpected answer %q", answer)
	}

	req := gen.last(t)
	if req.Temperature != respondTemperature {
		t.Fatalf("unexpected temperature %v", req.Temperature)
	}
	for _, part := range []string{"machine learning projects", "User: I like Go", "Assistant: Noted.", "What roles fit me?"} {
		if !strings.Contains(req.Prompt, part) {
			t.Fatalf("prompt is missing %q:\n%s", part, req.Prompt)
		}
	}
	if !strings.Contains(req.System, "politely decline") || !strings.Contains(req.System, "second person") {
		t.Fatalf("system instruction misses refusal or voice rules:\n%s", req.System)
	}
}

func TestRespondErrors(t *testing.T) {
	cases := map[string]struct {
		gen      *recordingGenerator
		profile  resume.CandidateProfile
		history  []Turn
		question string
		want     error
	}{
		"empty question":   {gen: &recordingGenerator{answer: "x"}, profile: testProfile(), question: "  \n ", want: errs.ErrInput},
		"invalid profile":  {gen: &recordingGenerator{answer: "x"}, question: "hi", want: errs.ErrInput},
		"unknown role":     {gen: &recordingGenerator{answer: "x"}, profile: testProfile(), history: []Turn{{Role: "system", Content: "x"}}, question: "hi", want: errs.ErrInput},
		"empty answer":     {gen: &recordingGenerator{answer: "   "}, profile: testProfile(), question: "hi", want: errs.ErrShape},
		"transport failed": {gen: &recordingGenerator{err: errs.ErrTransport}, profile: testProfile(), question: "hi", want: errs.ErrTransport},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewResponder(tc.gen, nil).Respond(context.Background(), tc.profile, tc.history, tc.question)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestConverseAppendsOnlyOnSuccess(t *testing.T) {
	s := NewSession()
	if err := s.AttachProfile(testProfile()); err != nil {
		t.Fatalf("AttachProfile returned error: %v", err)
	}

	failing := NewResponder(&recordingGenerator{err: errs.ErrTransport}, nil)
	if _, err := failing.Converse(context.Background(), s, "hello"); !errors.Is(err, errs.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if len(s.History()) != 0 {
		t.Fatalf("history grew after failure: %v", s.History())
	}
	if s.State() != ProfileReady {
		t.Fatalf("state changed after failure: %s", s.State())
	}

	gen := &recordingGenerator{answer: "Do you prefer remote roles?"}
	answer, err := NewResponder(gen, nil).Converse(context.Background(), s, " Find me jobs ")
	if err != nil {
		t.Fatalf("Converse returned error: %v", err)
	}

	history := s.History()
	if len(history) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(history))
	}
	if history[0] != (Turn{Role: RoleUser, Content: "Find me jobs"}) || history[1] != (Turn{Role: RoleAssistant, Content: answer}) {
		t.Fatalf("unexpected history: %+v", history)
	}
}

func TestConverseWithoutProfile(t *testing.T) {
	_, err := NewResponder(&recordingGenerator{answer: "x"}, nil).Converse(context.Background(), NewSession(), "hi")
	if !errors.Is(err, errs.ErrInput) {
		t.Fatalf("expected input error, got %v", err)
	}
}

func TestQueryBuilderNormalizesOutput(t *testing.T) {
	cases := map[string]string{
		"\"entry-level AI jobs\"":              "entry-level AI jobs",
		"\n  Query: internship in   ML\nextra": "internship in ML",
		"- 'senior developer jobs'":            "senior developer jobs",
	}

	for raw, want := range cases {
		gen := &recordingGenerator{answer: raw}
		got, err := NewQueryBuilder(gen, nil).Build(context.Background(), testProfile(), []Turn{{Role: RoleUser, Content: "remote please"}})
		if err != nil {
			t.Fatalf("Build(%q) returned error: %v", raw, err)
		}
		if got != want {
			t.Fatalf("Build(%q) = %q, want %q", raw, got, want)
		}

		req := gen.last(t)
		if req.Temperature != queryTemperature || !strings.Contains(req.Prompt, "User: remote please") {
			t.Fatalf("unexpected request: %+v", req)
		}
	}
}

func TestQueryBuilderEmptyOutput(t *testing.T) {
	_, err := NewQueryBuilder(&recordingGenerator{answer: "\"\"\n  "}, nil).Build(context.Background(), testProfile(), nil)
	if !errors.Is(err, errs.ErrShape) {
		t.Fatalf("expected shape error, got %v", err)
	}
}
