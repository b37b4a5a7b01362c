// Package coverletter drafts cover letters for a candidate and a posting.
package coverletter

import (
	"context"
	"fmt"
	"strings"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/smartintern/internal/ai"
	"github.com/spigell/smartintern/internal/errs"
	"github.com/spigell/smartintern/internal/jobs"
	"github.com/spigell/smartintern/internal/logger"
	"github.com/spigell/smartintern/internal/resume"
	"github.com/spigell/smartintern/internal/utils"
)

//go:embed prompt.md
var promptTemplate string

const (
	systemInstruction = "You are an expert cover letter writer."
	temperature       = 0.7

	minWords = 300
	maxWords = 400

	maxDescriptionRunes = 6000
)

// Writer drafts cover letters with a generator.
type Writer struct {
	generator ai.Generator
	logger    *zap.Logger
}

// NewWriter creates a Writer.
func NewWriter(generator ai.Generator, log *zap.Logger) *Writer {
	return &Writer{
		generator: generator,
		logger:    logger.ForOperation(log, "cover_letter"),
	}
}

// Write drafts a letter for profile applying to posting.
func (w *Writer) Write(ctx context.Context, profile resume.CandidateProfile, posting jobs.Posting) (string, error) {
	if err := profile.Validate(); err != nil {
		return "", err
	}
	if strings.TrimSpace(posting.Title) == "" {
		return "", fmt.Errorf("%w: job title is required", errs.ErrInput)
	}

	prompt := strings.NewReplacer(
		"{{CANDIDATE}}", formatCandidate(profile),
		"{{POSITION}}", formatPosting(posting),
	).Replace(promptTemplate)

	letter, err := w.generator.Generate(ctx, ai.Request{
		System:      systemInstruction,
		Prompt:      prompt,
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("generate cover letter: %w", err)
	}

	letter = strings.TrimSpace(letter)
	if letter == "" {
		return "", fmt.Errorf("%w: empty cover letter", errs.ErrShape)
	}

	words := utils.WordCount(letter)
	if words < minWords || words > maxWords {
		w.logger.Info("cover letter length is outside the guideline",
			zap.Int("words", words),
			zap.String("job_title", posting.Title),
		)
	}

	return letter, nil
}

func formatCandidate(p resume.CandidateProfile) string {
	projects := "N/A"
	if len(p.Projects) > 0 {
		projects = ai.SanitizeLine(strings.Join(p.Projects, ", "))
	}

	return fmt.Sprintf("Name: %s\nCurrent Location: %s\n\nProfessional Background:\n%s\n\nNotable Projects:\n%s",
		orNA(p.Name), orNA(p.Country), strings.TrimSpace(p.Summary), projects)
}

func formatPosting(p jobs.Posting) string {
	return fmt.Sprintf("Role: %s\nCompany: %s\nLocation: %s\nEmployment Type: %s\n\nJob Description:\n%s",
		orNA(ai.SanitizeLine(p.Title)),
		orNA(ai.SanitizeLine(p.Publisher)),
		orNA(ai.SanitizeLine(p.Location)),
		orNA(ai.SanitizeLine(p.EmploymentType)),
		orNA(ai.SanitizeBlock(p.Description, maxDescriptionRunes)),
	)
}

func orNA(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "N/A"
	}
	return s
}
