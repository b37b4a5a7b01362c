// Package matching retrieves postings for a candidate and ranks them by
// semantic similarity to the profile and conversation.
package matching

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/smartintern/internal/dialogue"
	"github.com/spigell/smartintern/internal/embedding"
	"github.com/spigell/smartintern/internal/errs"
	"github.com/spigell/smartintern/internal/filtering"
	"github.com/spigell/smartintern/internal/jobs"
	"github.com/spigell/smartintern/internal/ranking"
	"github.com/spigell/smartintern/internal/resume"
)

// QueryGenerator builds a job search query from the profile and history.
type QueryGenerator interface {
	Build(ctx context.Context, profile resume.CandidateProfile, history []dialogue.Turn) (string, error)
}

// JobSource searches postings.
type JobSource interface {
	Search(ctx context.Context, q jobs.Query) (*jobs.Postings, error)
}

// Config holds matching settings.
type Config struct {
	Filters filtering.Config
	// Disabled lists filter names to skip.
	Disabled []string
}

// Retrieval is the outcome of one job search.
type Retrieval struct {
	Query    string
	Postings []jobs.Posting
}

// Service wires query generation, the job source, filters and ranking.
type Service struct {
	queries   QueryGenerator
	source    JobSource
	embedder  embedding.Embedder
	filters   []filtering.Filter
	filterCfg filtering.Config
	logger    *zap.Logger
}

// NewService creates a Service running every default filter except the disabled ones.
func NewService(queries QueryGenerator, source JobSource, embedder embedding.Embedder, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}

	filters := filtering.Default()
	for _, name := range cfg.Disabled {
		filtering.DisableByName(filters, name, "disabled in config")
	}

	return &Service{
		queries:   queries,
		source:    source,
		embedder:  embedder,
		filters:   filters,
		filterCfg: cfg.Filters,
		logger:    logger,
	}
}

// Filters reports the state of the configured filters.
func (s *Service) Filters() []filtering.Status {
	return filtering.Describe(s.filters)
}

// Retrieve generates a query, searches postings in country and filters them.
// An empty country falls back to the profile country; an unknown one searches globally.
func (s *Service) Retrieve(ctx context.Context, profile resume.CandidateProfile, history []dialogue.Turn, country string) (Retrieval, error) {
	if err := profile.Validate(); err != nil {
		return Retrieval{}, err
	}

	country = strings.TrimSpace(country)
	if country == "" {
		country = profile.Country
	}

	code, ok := jobs.CountryCode(country)
	if !ok {
		s.logger.Warn("unknown country, searching globally", zap.String("country", country))
	}

	query, err := s.queries.Build(ctx, profile, history)
	if err != nil {
		return Retrieval{}, err
	}

	postings, err := s.source.Search(ctx, jobs.Query{Text: query, Country: code})
	if err != nil {
		return Retrieval{}, fmt.Errorf("search jobs: %w", err)
	}

	postings, err = filtering.Run(ctx, &s.filterCfg, filtering.Deps{Logger: s.logger}, s.filters, postings)
	if err != nil {
		return Retrieval{}, fmt.Errorf("filter jobs: %w", err)
	}

	return Retrieval{Query: query, Postings: postings.Values()}, nil
}

// Rank orders postings by similarity to the candidate and returns the topK best.
func (s *Service) Rank(ctx context.Context, profile resume.CandidateProfile, history []dialogue.Turn, postings []jobs.Posting, topK int) ([]ranking.Match[jobs.Posting], error) {
	if topK < 0 {
		return nil, fmt.Errorf("%w: top_k must not be negative, got %d", errs.ErrInput, topK)
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	if err := dialogue.ValidateHistory(history); err != nil {
		return nil, err
	}
	if len(postings) == 0 || topK == 0 {
		return []ranking.Match[jobs.Posting]{}, nil
	}

	texts := make([]string, 0, len(postings)+1)
	texts = append(texts, CandidateText(profile, history))
	for i := range postings {
		texts = append(texts, postings[i].Text())
	}

	started := time.Now()
	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed texts: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", errs.ErrShape, len(vectors), len(texts))
	}

	candidate := vectors[0]
	for i, vec := range vectors[1:] {
		if len(vec) != len(candidate) {
			return nil, fmt.Errorf("%w: posting %d embedding has %d dimensions, candidate has %d",
				errs.ErrInput, i, len(vec), len(candidate))
		}
	}

	matches, err := ranking.Rank(candidate, vectors[1:], postings, topK)
	if err != nil {
		return nil, err
	}

	s.logger.Info("postings ranked",
		zap.Int("postings", len(postings)),
		zap.Int("returned", len(matches)),
		zap.String("model", s.embedder.Model()),
		zap.Duration("elapsed", time.Since(started)),
	)

	return matches, nil
}

// CandidateText renders the profile and conversation as one document for embedding.
func CandidateText(profile resume.CandidateProfile, history []dialogue.Turn) string {
	text := profile.SearchText()
	if len(history) == 0 {
		return text
	}
	return text + "\n\nConversation:\n" + dialogue.FormatHistory(history)
}
