// Package dialogue keeps the conversation with a candidate and generates
// answers and job search queries from it.
package dialogue

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spigell/smartintern/internal/ai"
	"github.com/spigell/smartintern/internal/errs"
	"github.com/spigell/smartintern/internal/resume"
)

// State is the position of a session in the conversation.
type State int

const (
	AwaitingResume State = iota
	ProfileReady
	GatheringPreferences
	SearchReady
)

func (s State) String() string {
	switch s {
	case AwaitingResume:
		return "awaiting-resume"
	case ProfileReady:
		return "profile-ready"
	case GatheringPreferences:
		return "gathering-preferences"
	case SearchReady:
		return "search-ready"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Role names the author of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message of the conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Session holds the profile and the append-only history of one candidate.
type Session struct {
	mu      sync.Mutex
	state   State
	profile resume.CandidateProfile
	history []Turn
}

// NewSession returns a session waiting for a resume.
func NewSession() *Session {
	return &Session{state: AwaitingResume}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// AttachProfile stores a parsed profile and moves the session to ProfileReady.
// History collected so far is kept.
func (s *Session) AttachProfile(p resume.CandidateProfile) error {
	if err := p.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = p
	s.state = ProfileReady
	return nil
}

// Profile returns the attached profile and whether one is present.
func (s *Session) Profile() (resume.CandidateProfile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile, s.state != AwaitingResume
}

// Append adds turns to the history. A session without a profile rejects turns.
func (s *Session) Append(turns ...Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == AwaitingResume {
		return fmt.Errorf("%w: upload a resume before chatting", errs.ErrInput)
	}

	s.history = append(s.history, turns...)
	s.state = GatheringPreferences
	return nil
}

// MarkSearchReady records that the caller decided to run a search.
func (s *Session) MarkSearchReady() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == AwaitingResume {
		return fmt.Errorf("%w: upload a resume before searching", errs.ErrInput)
	}
	s.state = SearchReady
	return nil
}

// History returns a copy of the conversation so far.
func (s *Session) History() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Turn, len(s.history))
	copy(out, s.history)
	return out
}

// FormatHistory renders turns as "User: ..." lines for prompts.
func FormatHistory(history []Turn) string {
	if len(history) == 0 {
		return "(no conversation yet)"
	}

	lines := make([]string, 0, len(history))
	for _, turn := range history {
		role := string(turn.Role)
		if role == "" {
			role = string(RoleUser)
		}
		lines = append(lines, strings.ToUpper(role[:1])+role[1:]+": "+ai.SanitizeLine(turn.Content))
	}
	return strings.Join(lines, "\n")
}

// ValidateHistory checks turns received from a client.
func ValidateHistory(history []Turn) error {
	for i, turn := range history {
		if turn.Role != RoleUser && turn.Role != RoleAssistant {
			return fmt.Errorf("%w: history turn %d has unknown role %q", errs.ErrInput, i, turn.Role)
		}
	}
	return nil
}
