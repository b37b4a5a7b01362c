package resume

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/smartintern/internal/ai"
	"github.com/spigell/smartintern/internal/document"
	"github.com/spigell/smartintern/internal/errs"
)

const sampleResume = `Jordan A. Lee
jordan.lee@example.com | +1 415-555-0132
Aspiring data engineer who loves distributed systems.

Education
B.Sc. Computer Science, State University, 2021-2025

Skills:
• Go
• Python
- SQL

Projects
- Realtime chat service in Go
- Resume ranking prototype

Certifications
AWS Cloud Practitioner`

// scriptedGenerator answers assisted and reconciliation calls differently,
// telling them apart by the system instruction.
type scriptedGenerator struct {
	mu        sync.Mutex
	assisted  func(ai.Request) (string, error)
	reconcile func(ai.Request) (string, error)
	requests  []ai.Request
}

func (g *scriptedGenerator) Model() string { return "scripted" }

func (g *scriptedGenerator) Generate(_ context.Context, req ai.Request) (string, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()

	if strings.Contains(req.System, "reconciliation") {
		return g.reconcile(req)
	}
	return g.assisted(req)
}

type stubRecognizer struct {
	entities []Entity
	err      error
	calls    int
}

func (s *stubRecognizer) Entities(string) ([]Entity, error) {
	s.calls++
	return s.entities, s.err
}

func TestRuleExtractorSampleResume(t *testing.T) {
	ner := &stubRecognizer{}
	record := NewRuleExtractor(ner, nil).Extract(sampleResume, "United States")

	require.Equal(t, "Jordan A. Lee", record.Name)
	require.Zero(t, ner.calls, "entity recognizer must not be called when the first line is a name")
	require.Equal(t, "jordan.lee@example.com", record.Email)
	require.Equal(t, "+1 415-555-0132", record.Phone)
	require.Equal(t, "United States", record.Country)

	require.Equal(t, []string{
		"Jordan A. Lee",
		"jordan.lee@example.com | +1 415-555-0132",
		"Aspiring data engineer who loves distributed systems.",
	}, record.Summary)
	require.Equal(t, []string{"B.Sc. Computer Science, State University, 2021-2025"}, record.Education)
	require.Equal(t, []string{"Go", "Python", "SQL"}, record.Skills)
	require.Equal(t, []string{"Realtime chat service in Go", "Resume ranking prototype"}, record.Projects)
	require.Equal(t, []string{"AWS Cloud Practitioner"}, record.Certifications)
	require.Empty(t, record.Experience)
	require.Empty(t, record.Internships)
	require.Empty(t, record.Achievements)
}

func TestRuleExtractorWithoutHeaders(t *testing.T) {
	record := NewRuleExtractor(nil, nil).Extract("Jane Doe\nI like building things.\nReach me anytime.", "India")

	require.Equal(t, "Jane Doe", record.Name)
	require.Empty(t, record.Summary)
	require.Empty(t, record.Education)
	require.Empty(t, record.Experience)
	require.Empty(t, record.Skills)
	require.Empty(t, record.Projects)
	require.Empty(t, record.Internships)
	require.Empty(t, record.Certifications)
	require.Empty(t, record.Achievements)
	require.Empty(t, record.Email)
	require.Empty(t, record.Phone)
}

func TestRuleExtractorNameFallback(t *testing.T) {
	text := "Curriculum vitae of a very motivated engineer\nAlex Morgan lives in Berlin"

	cases := []struct {
		name     string
		ner      *stubRecognizer
		expected string
	}{
		{
			name: "first person entity",
			ner: &stubRecognizer{entities: []Entity{
				{Text: "Berlin", Label: "GPE"},
				{Text: "Alex Morgan", Label: LabelPerson},
				{Text: "Sam Lee", Label: LabelPerson},
			}},
			expected: "Alex Morgan",
		},
		{
			name: "person beyond the first five entities",
			ner: &stubRecognizer{entities: []Entity{
				{Text: "A", Label: "ORG"}, {Text: "B", Label: "ORG"}, {Text: "C", Label: "ORG"},
				{Text: "D", Label: "ORG"}, {Text: "E", Label: "ORG"}, {Text: "Alex Morgan", Label: LabelPerson},
			}},
			expected: "",
		},
		{
			name:     "recognizer failure",
			ner:      &stubRecognizer{err: errors.New("model unavailable")},
			expected: "",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			record := NewRuleExtractor(tc.ner, nil).Extract(text, "Germany")
			require.Equal(t, tc.expected, record.Name)
			require.Equal(t, 1, tc.ner.calls)
		})
	}
}

func TestFindPhoneRequiresEightDigits(t *testing.T) {
	require.Equal(t, "", findPhone("Room 12-34 567"))
	require.Equal(t, "98765 43210", findPhone("Call 2024 or 98765 43210"))
}

func TestSectionBoundedByNearestNextHeader(t *testing.T) {
	text := "Experience:\n- Intern at Acme\nCertifications - none\nSkills\n- Go"
	record := NewRuleExtractor(nil, nil).Extract(text, "India")

	require.Equal(t, []string{"Intern at Acme"}, record.Experience)
	require.Equal(t, []string{"Go"}, record.Skills)
}

func TestAssistedExtractorParsesLooseJSON(t *testing.T) {
	gen := &scriptedGenerator{assisted: func(req ai.Request) (string, error) {
		return "```json\n{\"Name\": \"Jordan A. Lee\", \"summary\": \"Data engineer\", \"work_experience\": [{\"company\": \"Acme\"}], \"skills\": [\"Go\", \"\"], \"country\": null}\n```", nil
	}}

	extraction := NewAssistedExtractor(gen, nil).Extract(context.Background(), sampleResume, "Canada")

	require.False(t, extraction.Failed())
	require.Equal(t, "Jordan A. Lee", extraction.Record.Name)
	require.Equal(t, []string{"Data engineer"}, extraction.Record.Summary)
	require.Equal(t, []string{`{"company":"Acme"}`}, extraction.Record.Experience)
	require.Equal(t, []string{"Go"}, extraction.Record.Skills)
	require.Equal(t, "Canada", extraction.Record.Country)

	require.Len(t, gen.requests, 1)
	require.InDelta(t, 0.2, gen.requests[0].Temperature, 1e-6)
	require.Contains(t, gen.requests[0].Prompt, "User provided country: Canada")
}

func TestAssistedExtractorFailures(t *testing.T) {
	cases := []struct {
		name   string
		answer func(ai.Request) (string, error)
		kind   error
	}{
		{name: "malformed", answer: func(ai.Request) (string, error) { return "Sure! Name: Jordan", nil }, kind: errs.ErrShape},
		{name: "json array", answer: func(ai.Request) (string, error) { return `["a", "b"]`, nil }, kind: errs.ErrShape},
		{name: "null", answer: func(ai.Request) (string, error) { return "null", nil }, kind: errs.ErrShape},
		{name: "transport", answer: func(ai.Request) (string, error) { return "", errors.New("status 503") }, kind: errs.ErrTransport},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			extraction := NewAssistedExtractor(&scriptedGenerator{assisted: tc.answer}, nil).Extract(context.Background(), "text", "India")

			require.True(t, extraction.Failed())
			require.ErrorIs(t, extraction.Error(), tc.kind)
			require.True(t, extraction.RecordOrEmpty().IsEmpty())

			var extractionErr *ExtractionError
			require.ErrorAs(t, extraction.Error(), &extractionErr)
			require.Equal(t, "assisted", extractionErr.Source)
		})
	}
}

func longSummary(country string) string {
	return strings.Repeat("Experienced Go developer building resilient services. ", 60) + "Based in " + country + "."
}

func TestReconcileOverridesCountry(t *testing.T) {
	gen := &scriptedGenerator{reconcile: func(ai.Request) (string, error) {
		return `{"Name": "Jordan A. Lee", "Summary": "A short summary.", "Projects": ["Chat service"], "Country": "Atlantis"}`, nil
	}}

	profile, err := NewReconciler(gen, nil).Reconcile(context.Background(), Record{Name: "Jordan A. Lee"}, Extraction{Record: Record{Name: "J. Lee"}}, "Canada")
	require.NoError(t, err)

	require.Equal(t, "Canada", profile.Country)
	require.Equal(t, "Jordan A. Lee", profile.Name)
	require.Equal(t, []string{"Chat service"}, profile.Projects)
	require.True(t, strings.HasSuffix(profile.Summary, "The candidate is looking for opportunities in Canada."))

	req := gen.requests[0]
	require.InDelta(t, 0.3, req.Temperature, 1e-6)
	require.Contains(t, req.System, `"Canada"`)
	require.Contains(t, req.Prompt, `"name": "J. Lee"`)
}

func TestReconcileWarnsOnShortSummary(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	gen := &scriptedGenerator{reconcile: func(ai.Request) (string, error) {
		return `{"name": "", "summary": "Go developer in India.", "projects": [], "country": "India"}`, nil
	}}

	_, err := NewReconciler(gen, zap.New(core)).Reconcile(context.Background(), Record{}, Extraction{}, "India")
	require.NoError(t, err)
	require.Equal(t, 1, logs.FilterMessage("reconciled summary is shorter than expected").Len())

	logs.TakeAll()
	gen.reconcile = func(ai.Request) (string, error) {
		return `{"name": "", "summary": "` + longSummary("India") + `", "projects": [], "country": "India"}`, nil
	}
	_, err = NewReconciler(gen, zap.New(core)).Reconcile(context.Background(), Record{}, Extraction{}, "India")
	require.NoError(t, err)
	require.Zero(t, logs.Len())
}

func TestReconcileRejectsWrongShape(t *testing.T) {
	cases := map[string]string{
		"extra key":     `{"name": "A", "summary": "S in India", "projects": [], "country": "India", "email": "a@b.c"}`,
		"missing key":   `{"name": "A", "summary": "S in India", "country": "India"}`,
		"empty summary": `{"name": "A", "summary": "  ", "projects": [], "country": "India"}`,
		"not json":      `Here is the merged profile: Name A`,
	}

	for name, answer := range cases {
		t.Run(name, func(t *testing.T) {
			gen := &scriptedGenerator{reconcile: func(ai.Request) (string, error) { return answer, nil }}

			_, err := NewReconciler(gen, nil).Reconcile(context.Background(), Record{}, Extraction{}, "India")
			require.ErrorIs(t, err, errs.ErrShape)
		})
	}
}

func TestReconcileTransportFailure(t *testing.T) {
	gen := &scriptedGenerator{reconcile: func(ai.Request) (string, error) {
		return "", errors.Join(errs.ErrTransport, errors.New("quota"))
	}}

	_, err := NewReconciler(gen, nil).Reconcile(context.Background(), Record{}, Extraction{}, "India")
	require.ErrorIs(t, err, errs.ErrTransport)
}

type stubDocuments struct {
	text string
	err  error
}

func (s stubDocuments) Extract(context.Context, document.Raw) (string, error) {
	return s.text, s.err
}

func newTestParser(gen ai.Generator, docs stubDocuments) *Parser {
	return NewParser(docs, NewRuleExtractor(nil, nil), NewAssistedExtractor(gen, nil), NewReconciler(gen, nil), nil)
}

func TestParserProceedsWhenAssistedOutputIsMalformed(t *testing.T) {
	emptyRecord, err := json.MarshalIndent(Record{}, "", "  ")
	require.NoError(t, err)

	var reconcilePrompt string
	gen := &scriptedGenerator{
		assisted: func(ai.Request) (string, error) { return "I could not parse this resume, sorry", nil },
		reconcile: func(req ai.Request) (string, error) {
			reconcilePrompt = req.Prompt
			if !strings.Contains(req.Prompt, "Realtime chat service in Go") {
				return "", errors.New("rule based record missing from prompt")
			}
			return `{"name": "Jordan A. Lee", "summary": "` + longSummary("United States") + `", "projects": ["Realtime chat service in Go"], "country": "United States"}`, nil
		},
	}

	result, err := newTestParser(gen, stubDocuments{text: sampleResume}).Parse(context.Background(), document.Raw{Data: []byte("pdf"), Format: document.FormatPDF}, "United States")
	require.NoError(t, err)

	require.Equal(t, "Jordan A. Lee", result.Profile.Name)
	require.Equal(t, "United States", result.Profile.Country)
	require.NotEmpty(t, result.Profile.Summary)
	require.ErrorIs(t, result.AssistedError(), errs.ErrShape)
	require.Equal(t, "Jordan A. Lee", result.Rules.Name)
	require.Contains(t, reconcilePrompt, "Language Model Parsed Resume:\n"+string(emptyRecord)+"\n\nReconciled Final Output:")
}

func TestParserInputErrors(t *testing.T) {
	gen := &scriptedGenerator{}

	_, err := newTestParser(gen, stubDocuments{}).ParseText(context.Background(), "   ", "India")
	require.ErrorIs(t, err, errs.ErrInput)

	_, err = newTestParser(gen, stubDocuments{}).ParseText(context.Background(), sampleResume, " ")
	require.ErrorIs(t, err, errs.ErrInput)

	_, err = newTestParser(gen, stubDocuments{err: errs.ErrInput}).Parse(context.Background(), document.Raw{}, "India")
	require.ErrorIs(t, err, errs.ErrInput)

	require.Empty(t, gen.requests)
}

func TestProfileValidate(t *testing.T) {
	require.NoError(t, CandidateProfile{Summary: "s", Country: "India"}.Validate())
	require.ErrorIs(t, CandidateProfile{}.Validate(), errs.ErrInput)
}
