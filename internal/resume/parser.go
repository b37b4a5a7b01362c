package resume

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/smartintern/internal/document"
	"github.com/spigell/smartintern/internal/errs"
)

type textExtractor interface {
	Extract(ctx context.Context, raw document.Raw) (string, error)
}

// ParseResult is the reconciled profile plus both intermediate extractions.
type ParseResult struct {
	Profile  CandidateProfile
	Rules    Record
	Assisted Extraction
}

// AssistedError returns the assisted extraction failure, if any.
func (r ParseResult) AssistedError() error {
	return r.Assisted.Error()
}

// Parser runs document extraction, both record extractors and reconciliation.
type Parser struct {
	documents  textExtractor
	rules      *RuleExtractor
	assisted   *AssistedExtractor
	reconciler *Reconciler
	logger     *zap.Logger
}

// NewParser wires the parsing pipeline.
func NewParser(documents textExtractor, rules *RuleExtractor, assisted *AssistedExtractor, reconciler *Reconciler, logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{
		documents:  documents,
		rules:      rules,
		assisted:   assisted,
		reconciler: reconciler,
		logger:     logger,
	}
}

// Parse extracts text from raw and parses it.
func (p *Parser) Parse(ctx context.Context, raw document.Raw, country string) (ParseResult, error) {
	text, err := p.documents.Extract(ctx, raw)
	if err != nil {
		return ParseResult{}, fmt.Errorf("extract document text: %w", err)
	}
	return p.ParseText(ctx, text, country)
}

// ParseText runs the rule based and assisted extractors concurrently and
// reconciles their results once both are done.
func (p *Parser) ParseText(ctx context.Context, text, country string) (ParseResult, error) {
	if strings.TrimSpace(text) == "" {
		return ParseResult{}, fmt.Errorf("%w: resume text is empty", errs.ErrInput)
	}
	if strings.TrimSpace(country) == "" {
		return ParseResult{}, fmt.Errorf("%w: target country is required", errs.ErrInput)
	}

	started := time.Now()

	var (
		wg       sync.WaitGroup
		rules    Record
		assisted Extraction
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		rules = p.rules.Extract(text, country)
	}()
	go func() {
		defer wg.Done()
		assisted = p.assisted.Extract(ctx, text, country)
	}()
	wg.Wait()

	if assisted.Failed() {
		p.logger.Warn("assisted extraction failed, continuing with rule based record", zap.Error(assisted.Err))
	}

	profile, err := p.reconciler.Reconcile(ctx, rules, assisted, country)
	if err != nil {
		return ParseResult{Rules: rules, Assisted: assisted}, err
	}

	p.logger.Info("resume parsed",
		zap.String("country", profile.Country),
		zap.Int("projects", len(profile.Projects)),
		zap.Bool("assisted_ok", !assisted.Failed()),
		zap.Duration("took", time.Since(started)),
	)

	return ParseResult{Profile: profile, Rules: rules, Assisted: assisted}, nil
}
