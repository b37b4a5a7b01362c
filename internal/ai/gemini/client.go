package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spigell/smartintern/internal/ai"
	"github.com/spigell/smartintern/internal/errs"
	"github.com/spigell/smartintern/internal/logger"
	"github.com/spigell/smartintern/internal/metrics"
	"github.com/spigell/smartintern/internal/utils"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	provider = "gemini"

	defaultModel        = "gemini-2.5-flash"
	defaultMaxRetries   = 1
	defaultMaxLogLength = 200

	retryBaseDelay = 2 * time.Second
	maxQuotaDelay  = 30 * time.Second
)

var (
	wait = utils.WaitFor

	retryAfterPattern = regexp.MustCompile(`(?i)retry (?:after|in) (\d+(?:\.\d+)?)\s*s`)
)

type chatSession interface {
	SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type chatCreator interface {
	Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error)
}

type genaiChats struct {
	chats *genai.Chats
}

func (c genaiChats) Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error) {
	chat, err := c.chats.Create(ctx, model, config, history)
	if err != nil {
		return nil, err
	}
	return chat, nil
}

// Config holds Gemini generator settings.
type Config struct {
	Model        string
	MaxRetries   int
	Timeout      time.Duration
	MaxLogLength int
}

// Generator sends single-turn chat requests with a system instruction to Gemini.
type Generator struct {
	chats      chatCreator
	model      string
	maxRetries int
	timeout    time.Duration
	maxLogLen  int
	logger     *zap.Logger
}

// NewClient creates a Google GenAI client for the Gemini API backend.
func NewClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return client, nil
}

// NewGenerator wraps client chats into an ai.Generator.
func NewGenerator(client *genai.Client, cfg Config, log *zap.Logger) (*Generator, error) {
	if client == nil || client.Chats == nil {
		return nil, errors.New("gemini client is required")
	}

	return newGenerator(genaiChats{chats: client.Chats}, cfg, log), nil
}

func newGenerator(chats chatCreator, cfg Config, log *zap.Logger) *Generator {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}

	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = defaultMaxRetries
	}

	maxLogLen := cfg.MaxLogLength
	if maxLogLen <= 0 {
		maxLogLen = defaultMaxLogLength
	}

	return &Generator{
		chats:      chats,
		model:      model,
		maxRetries: retries,
		timeout:    cfg.Timeout,
		maxLogLen:  maxLogLen,
		logger:     logger.WithCommonFields(log, provider, model),
	}
}

// Model returns the configured model name.
func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}

// Generate sends req to Gemini, retrying temporary failures up to maxRetries attempts in total.
func (g *Generator) Generate(ctx context.Context, req ai.Request) (string, error) {
	if g == nil || g.chats == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return "", fmt.Errorf("%w: prompt must not be empty", errs.ErrInput)
	}

	log := g.logger
	if log == nil {
		log = zap.NewNop()
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(req.Temperature),
	}
	if system := strings.TrimSpace(req.System); system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	log.Debug("gemini generate request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, g.maxLogLen)),
		zap.Float32("temperature", req.Temperature),
	)

	var lastErr error
	for attempt := 1; attempt <= g.maxRetries; attempt++ {
		output, err := g.send(ctx, config, prompt)
		if err == nil {
			log.Debug("gemini generate response",
				zap.Int("attempt", attempt),
				zap.Int("response_length", utf8.RuneCountInString(output)),
				zap.String("response_preview", utils.TruncateForLog(output, g.maxLogLen)),
			)
			return output, nil
		}
		lastErr = err

		delay, retry := retryDelay(err, attempt)
		if !retry || attempt == g.maxRetries || ctx.Err() != nil {
			break
		}

		log.Warn("gemini request failed, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", g.maxRetries),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if err := wait(ctx, delay); err != nil {
			break
		}
	}

	return "", lastErr
}

func (g *Generator) send(ctx context.Context, config *genai.GenerateContentConfig, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	started := time.Now()

	chat, err := g.chats.Create(ctx, g.model, config, nil)
	if err != nil {
		metrics.ObserveLLM(provider, g.model, started, err)
		return "", fmt.Errorf("%w: create gemini chat: %w", errs.ErrTransport, err)
	}

	resp, err := chat.SendMessage(ctx, genai.Part{Text: prompt})
	metrics.ObserveLLM(provider, g.model, started, err)
	if err != nil {
		return "", fmt.Errorf("%w: gemini send message: %w", errs.ErrTransport, err)
	}

	output := responseText(resp)
	if output == "" {
		return "", fmt.Errorf("%w: gemini api returned empty response", errs.ErrShape)
	}

	return output, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	return strings.TrimSpace(builder.String())
}

// retryDelay reports whether err is worth another attempt and how long to wait.
func retryDelay(err error, attempt int) (time.Duration, bool) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, errs.ErrShape) {
		return 0, false
	}

	backoff := retryBaseDelay * time.Duration(attempt)

	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return backoff, true
	}

	switch {
	case apiErr.Code == http.StatusTooManyRequests:
		if delay, ok := parseRetryAfter(apiErr.Message); ok {
			if delay > maxQuotaDelay {
				return 0, false
			}
			return delay, true
		}
		return backoff, true
	case apiErr.Code >= http.StatusInternalServerError:
		return backoff, true
	default:
		return 0, false
	}
}

func parseRetryAfter(message string) (time.Duration, bool) {
	match := retryAfterPattern.FindStringSubmatch(message)
	if len(match) != 2 {
		return 0, false
	}

	seconds, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, false
	}

	return time.Duration(seconds * float64(time.Second)), true
}
