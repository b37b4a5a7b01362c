package resume

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/smartintern/internal/ai"
	"github.com/spigell/smartintern/internal/errs"
	"github.com/spigell/smartintern/internal/logger"
)

//go:embed assisted_prompt.md
var assistedSystemPrompt string

const (
	assistedSource      = "assisted"
	assistedTemperature = 0.2
)

// AssistedExtractor asks a generative model for a structured record.
type AssistedExtractor struct {
	generator ai.Generator
	logger    *zap.Logger
}

// NewAssistedExtractor creates an AssistedExtractor.
func NewAssistedExtractor(generator ai.Generator, log *zap.Logger) *AssistedExtractor {
	return &AssistedExtractor{
		generator: generator,
		logger:    logger.ForOperation(log, "assisted_extraction"),
	}
}

// Extract never returns a partially guessed record: any failure yields an
// Extraction carrying an ExtractionError.
func (x *AssistedExtractor) Extract(ctx context.Context, text, country string) Extraction {
	prompt := fmt.Sprintf("User provided country: %s\n\nResume Text:\n%s", strings.TrimSpace(country), text)

	raw, err := x.generator.Generate(ctx, ai.Request{
		System:      assistedSystemPrompt,
		Prompt:      prompt,
		Temperature: assistedTemperature,
	})
	if err != nil {
		if !errors.Is(err, errs.ErrTransport) && !errors.Is(err, errs.ErrShape) {
			err = fmt.Errorf("%w: %w", errs.ErrTransport, err)
		}
		return failed(err)
	}

	record, err := parseAssisted(raw, country)
	if err != nil {
		x.logger.Debug("assisted output rejected", zap.Error(err))
		return failed(err)
	}

	return Extraction{Record: record}
}

func failed(err error) Extraction {
	return Extraction{Err: &ExtractionError{Source: assistedSource, Err: err}}
}

func parseAssisted(raw, country string) (Record, error) {
	var data map[string]any
	if err := json.Unmarshal([]byte(ai.ExtractJSON(raw)), &data); err != nil {
		return Record{}, fmt.Errorf("%w: assisted output is not a JSON object: %w", errs.ErrShape, err)
	}
	if data == nil {
		return Record{}, fmt.Errorf("%w: assisted output is null", errs.ErrShape)
	}

	fields := make(map[string]any, len(data))
	for k, v := range data {
		fields[strings.ToLower(strings.TrimSpace(k))] = v
	}

	experience := fields["work_experience"]
	if experience == nil {
		experience = fields["experience"]
	}

	record := Record{
		Name:           ai.CoerceString(fields["name"]),
		Email:          ai.CoerceString(fields["email"]),
		Phone:          ai.CoerceString(fields["phone"]),
		Country:        ai.CoerceString(fields["country"]),
		Summary:        ai.CoerceStringList(fields["summary"]),
		Education:      ai.CoerceStringList(fields["education"]),
		Experience:     ai.CoerceStringList(experience),
		Skills:         ai.CoerceStringList(fields["skills"]),
		Projects:       ai.CoerceStringList(fields["projects"]),
		Internships:    ai.CoerceStringList(fields["internships"]),
		Certifications: ai.CoerceStringList(fields["certifications"]),
		Achievements:   ai.CoerceStringList(fields["achievements"]),
	}

	if record.Country == "" {
		record.Country = strings.TrimSpace(country)
	}

	return record, nil
}
