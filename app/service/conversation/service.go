package conversation

import (
	"context"
	"log/slog"
	"sync"

	"phoenix/app/client/rest"
	"phoenix/app/config"
	"phoenix/app/service/session"

	"github.com/samber/do"
)

// fallbackReply is what the user hears when the companion backend is down.
// Raw transport errors are never spoken.
const fallbackReply = "There was an error processing your request. Please try again."

// Service keeps the rolling conversation with the AI companion. History is
// capped, the oldest exchange falls off once the window is full.
type Service struct {
	cfg     *config.Config
	rest    *rest.Client
	session *session.Service

	mu      sync.Mutex
	history History
}

func New(di *do.Injector) (*Service, error) {
	return &Service{
		cfg:     do.MustInvoke[*config.Config](di),
		rest:    do.MustInvoke[*rest.Client](di),
		session: do.MustInvoke[*session.Service](di),
	}, nil
}

// NewWithClient builds the service outside the injector, used by tests.
func NewWithClient(cfg *config.Config, client *rest.Client, sess *session.Service) *Service {
	return &Service{cfg: cfg, rest: client, session: sess}
}

// Ask sends the transcript to the companion together with the conversation
// window and the user's personality and voice preferences. Both turns are
// recorded only on success, a failed exchange must not poison the history.
func (s *Service) Ask(ctx context.Context, transcript string) string {
	voice, _, personality := s.session.Preferences()
	if voice == "" {
		voice = s.cfg.Voice.Voice
	}
	if personality == "" {
		personality = s.cfg.Voice.Personality
	}

	s.mu.Lock()
	window := s.history.snapshot()
	s.mu.Unlock()

	reply, err := s.rest.CompanionChat(ctx, rest.ChatRequest{
		Message:             transcript,
		ConversationHistory: window,
		Personality:         personality,
		Voice:               voice,
	})
	if err != nil {
		slog.Error("Companion chat failed", "error", err)
		return fallbackReply
	}

	text := reply.Text()
	if text == "" {
		return fallbackReply
	}

	s.mu.Lock()
	s.history.add("user", transcript)
	s.history.add("assistant", text)
	s.mu.Unlock()

	if reply.FollowUp != "" {
		text += " " + reply.FollowUp
	}

	return text
}

// HistoryLen reports the current conversation window size.
func (s *Service) HistoryLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.history.Len()
}
