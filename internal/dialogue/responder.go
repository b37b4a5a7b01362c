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

//go:embed responder_prompt.md
var responderInstruction string

const (
	respondTemperature = 0.3
	maxQuestionRunes   = 2000
)

// Responder answers candidate questions grounded in the profile and history.
type Responder struct {
	generator ai.Generator
	logger    *zap.Logger
}

// NewResponder creates a Responder.
func NewResponder(generator ai.Generator, log *zap.Logger) *Responder {
	return &Responder{
		generator: generator,
		logger:    logger.ForOperation(log, "chat"),
	}
}

// Respond produces one answer, a refusal or a clarifying question.
func (r *Responder) Respond(ctx context.Context, profile resume.CandidateProfile, history []Turn, question string) (string, error) {
	if err := profile.Validate(); err != nil {
		return "", err
	}
	if err := ValidateHistory(history); err != nil {
		return "", err
	}

	question = ai.SanitizeBlock(question, maxQuestionRunes)
	if question == "" {
		return "", fmt.Errorf("%w: question is empty", errs.ErrInput)
	}

	prompt := fmt.Sprintf("Resume Summary:\n%s\n\nConversation so far:\n%s\n\nQuestion:\n%s\n\nAnswer:",
		profile.SearchText(), FormatHistory(history), question)

	answer, err := r.generator.Generate(ctx, ai.Request{
		System:      responderInstruction,
		Prompt:      prompt,
		Temperature: respondTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("answer question: %w", err)
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", fmt.Errorf("%w: empty answer", errs.ErrShape)
	}

	r.logger.Debug("question answered",
		zap.Int("history_turns", len(history)),
		zap.String("answer_preview", utils.TruncateForLog(answer, 120)),
	)

	return answer, nil
}

// Converse answers question within the session and records both turns.
// Nothing is recorded when answering fails.
func (r *Responder) Converse(ctx context.Context, s *Session, question string) (string, error) {
	profile, ok := s.Profile()
	if !ok {
		return "", fmt.Errorf("%w: upload a resume before chatting", errs.ErrInput)
	}

	answer, err := r.Respond(ctx, profile, s.History(), question)
	if err != nil {
		return "", err
	}

	if err := s.Append(
		Turn{Role: RoleUser, Content: strings.TrimSpace(question)},
		Turn{Role: RoleAssistant, Content: answer},
	); err != nil {
		return "", err
	}

	return answer, nil
}
