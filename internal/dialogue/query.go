package dialogue

import (
	"context"
	"fmt"
	"strings"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/smartintern/internal/ai"
	"github.com/spigell/smartintern/internal/errs"
	"github.com/spigell/smartintern/internal/logger"
	"github.com/spigell/smartintern/internal/resume"
	"github.com/spigell/smartintern/internal/utils"
)

//go:embed query_prompt.md
var queryInstruction string

const queryTemperature = 0.3

// QueryBuilder turns a profile and conversation into a job search query.
type QueryBuilder struct {
	generator ai.Generator
	logger    *zap.Logger
}

// NewQueryBuilder creates a QueryBuilder.
func NewQueryBuilder(generator ai.Generator, log *zap.Logger) *QueryBuilder {
	return &QueryBuilder{
		generator: generator,
		logger:    logger.ForOperation(log, "query_generation"),
	}
}

// Build returns a short one-line search query.
func (b *QueryBuilder) Build(ctx context.Context, profile resume.CandidateProfile, history []Turn) (string, error) {
	if err := profile.Validate(); err != nil {
		return "", err
	}
	if err := ValidateHistory(history); err != nil {
		return "", err
	}

	prompt := fmt.Sprintf("Resume Summary:\n%s\n\nConversation:\n%s\n\nSearch query:",
		strings.TrimSpace(profile.Summary), FormatHistory(history))

	raw, err := b.generator.Generate(ctx, ai.Request{
		System:      queryInstruction,
		Prompt:      prompt,
		Temperature: queryTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("generate search query: %w", err)
	}

	query := normalizeQuery(raw)
	if query == "" {
		return "", fmt.Errorf("%w: empty search query", errs.ErrShape)
	}

	b.logger.Info("search query generated", zap.String("query", query))
	return query, nil
}

// normalizeQuery keeps the first non-empty line without quotes or a label.
func normalizeQuery(raw string) string {
	for _, line := range strings.Split(raw, "\n") {
		line = utils.SingleLine(line)
		line = strings.TrimPrefix(line, "- ")
		if idx := strings.Index(strings.ToLower(line), "query:"); idx == 0 {
			line = strings.TrimSpace(line[len("query:"):])
		}
		line = strings.Trim(line, "\"'`“” ")
		if line != "" {
			return line
		}
	}
	return ""
}
