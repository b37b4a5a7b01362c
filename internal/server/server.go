// Package server exposes the parsing, chat, matching and cover letter
// pipelines over a stateless JSON HTTP API.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/spigell/smartintern/internal/dialogue"
	"github.com/spigell/smartintern/internal/document"
	"github.com/spigell/smartintern/internal/jobs"
	"github.com/spigell/smartintern/internal/matching"
	"github.com/spigell/smartintern/internal/metrics"
	"github.com/spigell/smartintern/internal/ranking"
	"github.com/spigell/smartintern/internal/resume"
)

const (
	defaultMaxUploadBytes = 10 << 20
	defaultTopK           = 5
)

// ResumeParser parses uploaded resumes into profiles.
type ResumeParser interface {
	Parse(ctx context.Context, raw document.Raw, country string) (resume.ParseResult, error)
}

// Responder answers candidate questions.
type Responder interface {
	Respond(ctx context.Context, profile resume.CandidateProfile, history []dialogue.Turn, question string) (string, error)
}

// Matcher retrieves and ranks postings.
type Matcher interface {
	Retrieve(ctx context.Context, profile resume.CandidateProfile, history []dialogue.Turn, country string) (matching.Retrieval, error)
	Rank(ctx context.Context, profile resume.CandidateProfile, history []dialogue.Turn, postings []jobs.Posting, topK int) ([]ranking.Match[jobs.Posting], error)
}

// LetterWriter drafts cover letters.
type LetterWriter interface {
	Write(ctx context.Context, profile resume.CandidateProfile, posting jobs.Posting) (string, error)
}

// Config holds HTTP settings.
type Config struct {
	Address         string        `mapstructure:"address"`
	ReadTimeout     time.Duration `mapstructure:"read-timeout"`
	WriteTimeout    time.Duration `mapstructure:"write-timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout"`
	MaxUploadBytes  int64         `mapstructure:"max-upload-bytes"`
}

// Server holds the HTTP handlers.
type Server struct {
	parser    ResumeParser
	responder Responder
	matcher   Matcher
	letters   LetterWriter

	maxUploadBytes int64
	topK           int
	logger         *zap.Logger
}

// New creates a Server. topK is used when a ranking request does not set one.
func New(parser ResumeParser, responder Responder, matcher Matcher, letters LetterWriter, cfg Config, topK int, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	if topK <= 0 {
		topK = defaultTopK
	}

	return &Server{
		parser:         parser,
		responder:      responder,
		matcher:        matcher,
		letters:        letters,
		maxUploadBytes: cfg.MaxUploadBytes,
		topK:           topK,
		logger:         logger,
	}
}

// Handler returns the router with every route and middleware attached.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(metrics.Middleware())

	r.Get("/healthz", s.health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Post("/parse_resume", s.parseResume)
	r.Post("/chat", s.chat)
	r.Post("/retrieve_jobs", s.retrieveJobs)
	r.Post("/filter_jobs", s.filterJobs)
	r.Post("/cover_letter", s.coverLetter)

	return r
}
