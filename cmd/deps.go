package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/smartintern/internal/ai"
	"github.com/spigell/smartintern/internal/ai/gemini"
	"github.com/spigell/smartintern/internal/ai/openai"
	"github.com/spigell/smartintern/internal/coverletter"
	"github.com/spigell/smartintern/internal/dialogue"
	"github.com/spigell/smartintern/internal/document"
	"github.com/spigell/smartintern/internal/embedding"
	"github.com/spigell/smartintern/internal/jobs"
	"github.com/spigell/smartintern/internal/kv"
	"github.com/spigell/smartintern/internal/matching"
	"github.com/spigell/smartintern/internal/metrics"
	"github.com/spigell/smartintern/internal/resume"
	"github.com/spigell/smartintern/internal/secrets"
)

const cachePingTimeout = 3 * time.Second

// services holds every pipeline built from the config.
type services struct {
	parser    *resume.Parser
	responder *dialogue.Responder
	matcher   *matching.Service
	letters   *coverletter.Writer

	closers []func()
}

func (s *services) Close() {
	for _, c := range s.closers {
		c()
	}
}

func newServices(ctx context.Context, config *Config, log *zap.Logger) (*services, error) {
	s := &services{}

	generator, err := newGenerator(ctx, config.AI, log)
	if err != nil {
		return nil, fmt.Errorf("building text generator: %w", err)
	}

	embedder, err := newEmbedder(ctx, s, config, log)
	if err != nil {
		return nil, fmt.Errorf("building embedder: %w", err)
	}

	s.parser = resume.NewParser(
		document.NewExtractor(log),
		resume.NewRuleExtractor(resume.ProseRecognizer{}, log),
		resume.NewAssistedExtractor(generator, log),
		resume.NewReconciler(generator, log),
		log,
	)
	s.responder = dialogue.NewResponder(generator, log)
	s.letters = coverletter.NewWriter(generator, log)
	s.matcher = matching.NewService(
		dialogue.NewQueryBuilder(generator, log),
		newJobsClient(config.Jobs, log),
		embedder,
		matching.Config{Filters: config.Filters.Config, Disabled: config.Filters.Disabled},
		log,
	)

	return s, nil
}

func newGenerator(ctx context.Context, cfg AIConfig, log *zap.Logger) (ai.Generator, error) {
	switch provider := strings.ToLower(strings.TrimSpace(cfg.Provider)); provider {
	case "", "gemini":
		apiKey, err := secrets.Load(secrets.Source{
			Name: "gemini api key",
			File: cfg.Gemini.APIKeyFile,
			Env:  "GEMINI_API_KEY",
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
		}

		client, err := gemini.NewClient(ctx, apiKey)
		if err != nil {
			return nil, err
		}

		return gemini.NewGenerator(client, gemini.Config{
			Model:        cfg.Gemini.Model,
			MaxRetries:   cfg.Gemini.MaxRetries,
			Timeout:      cfg.RequestTimeout,
			MaxLogLength: cfg.MaxLogLength,
		}, log)
	case "openai":
		apiKey, err := secrets.Load(secrets.Source{
			Name: "openai api key",
			File: cfg.OpenAI.APIKeyFile,
			Env:  "OPENAI_API_KEY",
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set ai.openai.api-key-file or OPENAI_API_KEY_FILE)", err)
		}

		client, err := openai.NewClient(apiKey, cfg.OpenAI.BaseURL)
		if err != nil {
			return nil, err
		}

		return openai.NewChatGenerator(client, cfg.OpenAI.Model, cfg.RequestTimeout, cfg.MaxLogLength, log), nil
	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
}

func newEmbedder(ctx context.Context, s *services, config *Config, log *zap.Logger) (embedding.Embedder, error) {
	cfg := config.Embedding
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.AI.RequestTimeout
	}

	var base embedding.Embedder
	switch provider := strings.ToLower(strings.TrimSpace(cfg.Provider)); provider {
	case "", "openai":
		apiKey, err := secrets.Load(secrets.Source{
			Name: "openai api key",
			File: config.AI.OpenAI.APIKeyFile,
			Env:  "OPENAI_API_KEY",
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set ai.openai.api-key-file or OPENAI_API_KEY_FILE)", err)
		}

		client, err := openai.NewClient(apiKey, config.AI.OpenAI.BaseURL)
		if err != nil {
			return nil, err
		}
		base = openai.NewEmbedder(client, cfg.Model, cfg.Dimensions, timeout)
	case "gemini":
		apiKey, err := secrets.Load(secrets.Source{
			Name: "gemini api key",
			File: config.AI.Gemini.APIKeyFile,
			Env:  "GEMINI_API_KEY",
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
		}

		client, err := gemini.NewClient(ctx, apiKey)
		if err != nil {
			return nil, err
		}
		if base, err = gemini.NewEmbedder(client, cfg.Model, cfg.Dimensions, timeout); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}

	if !cfg.Cache.Enabled {
		return base, nil
	}

	store, err := kv.NewStore(kv.Config{
		Addrs:    cfg.Cache.Addrs,
		Username: cfg.Cache.Username,
		Password: cfg.Cache.Password,
		DB:       cfg.Cache.DB,
	})
	if err != nil {
		log.Warn("embedding cache disabled", zap.Error(err))
		return base, nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, cachePingTimeout)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		store.Close()
		log.Warn("embedding cache disabled", zap.Strings("addrs", cfg.Cache.Addrs), zap.Error(err))
		return base, nil
	}

	s.closers = append(s.closers, store.Close)
	log.Info("embedding cache enabled", zap.Strings("addrs", cfg.Cache.Addrs), zap.Duration("ttl", cfg.Cache.TTL))

	return embedding.NewCached(base, store, cfg.Cache.TTL, metrics.EmbeddingCacheTotal, log), nil
}

func newJobsClient(cfg JobsConfig, log *zap.Logger) *jobs.Client {
	apiKey, err := secrets.Load(secrets.Source{
		Name: "jsearch api key",
		File: cfg.APIKeyFile,
		Env:  "JSEARCH_API_KEY",
	})
	if err != nil {
		// Parsing and chatting work without the job source.
		log.Warn("job search is unavailable",
			zap.Error(err),
			zap.String("hint", "set JSEARCH_API_KEY_FILE environment variable or the 'jobs.api-key-file' key in the configuration file"),
		)
	}

	return jobs.New(log, jobs.Config{
		APIKey:     apiKey,
		BaseURL:    cfg.BaseURL,
		Host:       cfg.Host,
		NumPages:   cfg.NumPages,
		DatePosted: cfg.DatePosted,
		Timeout:    cfg.Timeout,
	})
}
