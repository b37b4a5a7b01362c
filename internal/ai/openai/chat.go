package openai

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/spigell/smartintern/internal/ai"
	"github.com/spigell/smartintern/internal/errs"
	"github.com/spigell/smartintern/internal/logger"
	"github.com/spigell/smartintern/internal/metrics"
	"github.com/spigell/smartintern/internal/utils"
)

const defaultChatModel = openai.GPT4oMini

// ChatGenerator implements ai.Generator over the chat completions API.
type ChatGenerator struct {
	client    *openai.Client
	model     string
	timeout   time.Duration
	maxLogLen int
	logger    *zap.Logger
}

// NewChatGenerator wraps client. timeout bounds every request when positive.
func NewChatGenerator(client *openai.Client, model string, timeout time.Duration, maxLogLen int, log *zap.Logger) *ChatGenerator {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultChatModel
	}
	if maxLogLen <= 0 {
		maxLogLen = 200
	}

	return &ChatGenerator{
		client:    client,
		model:     model,
		timeout:   timeout,
		maxLogLen: maxLogLen,
		logger:    logger.WithCommonFields(log, provider, model),
	}
}

// Model returns the chat model name.
func (g *ChatGenerator) Model() string { return g.model }

// Generate sends the system instruction and prompt as a two-message conversation.
func (g *ChatGenerator) Generate(ctx context.Context, req ai.Request) (string, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return "", fmt.Errorf("%w: prompt must not be empty", errs.ErrInput)
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if system := strings.TrimSpace(req.System); system != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	g.logger.Debug("openai chat request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, g.maxLogLen)),
	)

	started := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    messages,
		Temperature: req.Temperature,
	})
	metrics.ObserveLLM(provider, g.model, started, err)
	if err != nil {
		return "", parseAPIError("chat completion", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: openai returned no choices", errs.ErrShape)
	}

	output := strings.TrimSpace(resp.Choices[0].Message.Content)
	if output == "" {
		return "", fmt.Errorf("%w: openai returned empty response", errs.ErrShape)
	}

	g.logger.Debug("openai chat response",
		zap.Int("response_length", utf8.RuneCountInString(output)),
		zap.String("response_preview", utils.TruncateForLog(output, g.maxLogLen)),
	)

	return output, nil
}
