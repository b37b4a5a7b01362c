package resume

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/smartintern/internal/ai"
	"github.com/spigell/smartintern/internal/errs"
	"github.com/spigell/smartintern/internal/logger"
	"github.com/spigell/smartintern/internal/utils"
)

//go:embed reconcile_prompt.md
var reconcileTemplate string

const (
	reconcileTemperature = 0.3
	minSummaryWords      = 300
)

var profileKeys = []string{"country", "name", "projects", "summary"}

// Reconciler merges the rule based and assisted records into one profile.
type Reconciler struct {
	generator ai.Generator
	logger    *zap.Logger
}

// NewReconciler creates a Reconciler.
func NewReconciler(generator ai.Generator, log *zap.Logger) *Reconciler {
	return &Reconciler{
		generator: generator,
		logger:    logger.ForOperation(log, "reconciliation"),
	}
}

// Reconcile produces exactly one profile or an error. A failed assisted
// extraction is reconciled as an empty record.
func (r *Reconciler) Reconcile(ctx context.Context, rules Record, assisted Extraction, country string) (CandidateProfile, error) {
	country = strings.TrimSpace(country)
	if country == "" {
		return CandidateProfile{}, fmt.Errorf("%w: target country is required", errs.ErrInput)
	}

	if assisted.Failed() {
		r.logger.Info("reconciling without assisted record", zap.Error(assisted.Err))
	}

	rulesJSON, err := json.MarshalIndent(rules, "", "  ")
	if err != nil {
		return CandidateProfile{}, fmt.Errorf("marshal rule based record: %w", err)
	}
	assistedJSON, err := json.MarshalIndent(assisted.RecordOrEmpty(), "", "  ")
	if err != nil {
		return CandidateProfile{}, fmt.Errorf("marshal assisted record: %w", err)
	}

	prompt := fmt.Sprintf("Rule Based Parsed Resume:\n%s\n\nLanguage Model Parsed Resume:\n%s\n\nReconciled Final Output:",
		rulesJSON, assistedJSON)

	raw, err := r.generator.Generate(ctx, ai.Request{
		System:      strings.ReplaceAll(reconcileTemplate, "{{COUNTRY}}", country),
		Prompt:      prompt,
		Temperature: reconcileTemperature,
	})
	if err != nil {
		return CandidateProfile{}, fmt.Errorf("reconcile resume: %w", err)
	}

	profile, err := parseProfile(raw, country)
	if err != nil {
		r.logger.Debug("reconciliation output rejected",
			zap.String("response_preview", utils.TruncateForLog(raw, 200)),
			zap.Error(err),
		)
		return CandidateProfile{}, fmt.Errorf("reconcile resume: %w", err)
	}

	if words := utils.WordCount(profile.Summary); words < minSummaryWords {
		r.logger.Warn("reconciled summary is shorter than expected",
			zap.Int("words", words),
			zap.Int("expected", minSummaryWords),
		)
	}

	return profile, nil
}

// parseProfile accepts only an object with exactly the four profile keys.
// The declared country always replaces whatever the model returned.
func parseProfile(raw, country string) (CandidateProfile, error) {
	var data map[string]any
	if err := json.Unmarshal([]byte(ai.ExtractJSON(raw)), &data); err != nil {
		return CandidateProfile{}, fmt.Errorf("%w: reconciliation output is not a JSON object: %w", errs.ErrShape, err)
	}

	fields := make(map[string]any, len(data))
	for k, v := range data {
		fields[strings.ToLower(strings.TrimSpace(k))] = v
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if strings.Join(keys, ",") != strings.Join(profileKeys, ",") {
		return CandidateProfile{}, fmt.Errorf("%w: reconciliation output has keys [%s], want [%s]",
			errs.ErrShape, strings.Join(keys, ", "), strings.Join(profileKeys, ", "))
	}

	summary := ai.CoerceString(fields["summary"])
	if list, ok := fields["summary"].([]any); ok {
		summary = strings.Join(ai.CoerceStringList(list), " ")
	}
	if summary == "" {
		return CandidateProfile{}, fmt.Errorf("%w: reconciled summary is empty", errs.ErrShape)
	}

	if !strings.Contains(strings.ToLower(summary), strings.ToLower(country)) {
		summary = strings.TrimRight(summary, " ") + fmt.Sprintf(" The candidate is looking for opportunities in %s.", country)
	}

	return CandidateProfile{
		Name:     ai.CoerceString(fields["name"]),
		Summary:  summary,
		Projects: ai.CoerceStringList(fields["projects"]),
		Country:  country,
	}, nil
}
