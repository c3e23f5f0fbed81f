package butler

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"phoenix/app/client/rest"
	"phoenix/app/config"
	"phoenix/app/service/listen"

	"github.com/elliotchance/pie/v2"
	"github.com/samber/do"
)

// Speaker voices butler feedback to the user.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Listener captures one confirmation reply.
type Listener interface {
	Listen(ctx context.Context) (string, error)
}

// Service executes real-world butler actions. Every action goes through a
// spoken confirmation first, and silence means no: an unanswered prompt
// cancels the action after the confirmation timeout.
type Service struct {
	cfg      *config.Config
	rest     *rest.Client
	speaker  Speaker
	listener Listener
}

func New(di *do.Injector) (*Service, error) {
	return &Service{
		cfg:      do.MustInvoke[*config.Config](di),
		rest:     do.MustInvoke[*rest.Client](di),
		speaker:  do.MustInvoke[Speaker](di),
		listener: do.MustInvoke[Listener](di),
	}, nil
}

// NewWithDeps builds the service outside the injector, used by tests.
func NewWithDeps(cfg *config.Config, client *rest.Client, speaker Speaker, listener Listener) *Service {
	return &Service{cfg: cfg, rest: client, speaker: speaker, listener: listener}
}

// Execute confirms and runs one classified action, voicing the outcome.
// Backend errors never reach the user verbatim.
func (s *Service) Execute(ctx context.Context, cls rest.Classification) error {
	confirmed, err := s.confirm(ctx, cls)
	if err != nil {
		return err
	}

	if !confirmed {
		return s.speaker.Speak(ctx, "Okay, cancelled.")
	}

	_ = s.speaker.Speak(ctx, "Executing...")

	result, err := s.rest.ExecuteButlerAction(ctx, cls)
	if err != nil {
		slog.Error("Butler action failed", "actionType", cls.ActionType, "error", err)
		return s.speaker.Speak(ctx, "Sorry, I had trouble completing that action.")
	}

	if !result.Success {
		message := result.UserMessage
		if message == "" {
			message = "Sorry, that action failed."
		}
		return s.speaker.Speak(ctx, message)
	}

	message := result.ConfirmationMessage
	if message == "" {
		message = "Done!"
	}

	return s.speaker.Speak(ctx, message)
}

// confirm speaks the confirmation prompt and listens for a yes or a no.
// Ambiguous replies are retried until the confirmation window closes, then
// the action is treated as cancelled.
func (s *Service) confirm(ctx context.Context, cls rest.Classification) (bool, error) {
	prompt := cls.ConfirmationMessage
	if prompt == "" {
		prompt = "Should I proceed?"
	}

	if err := s.speaker.Speak(ctx, prompt); err != nil {
		return false, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Speech.ConfirmTimeout)
	defer cancel()

	for {
		reply, err := s.listener.Listen(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, listen.ErrNoSpeech) {
				slog.Info("Confirmation window closed without an answer, cancelling")
				return false, nil
			}

			return false, err
		}

		confirmed, recognized := ParseConfirmation(reply)
		if recognized {
			return confirmed, nil
		}

		if ctx.Err() != nil {
			return false, nil
		}
	}
}

var (
	affirmativeTokens = []string{"yes", "yeah", "sure", "do it", "go ahead", "proceed"}
	negativeTokens    = []string{"no", "cancel", "stop", "nevermind"}
)

// ParseConfirmation interprets a spoken confirmation reply. The second
// return value is false when the reply matches neither token set.
func ParseConfirmation(reply string) (confirmed, recognized bool) {
	msg := strings.ToLower(reply)

	contains := func(token string) bool {
		return strings.Contains(msg, token)
	}

	if pie.Any(affirmativeTokens, contains) {
		return true, true
	}
	if pie.Any(negativeTokens, contains) {
		return false, true
	}

	return false, false
}
