package command

import (
	"context"
	"log/slog"
	"strings"

	"phoenix/app/client/rest"

	"github.com/samber/do"
)

// Service classifies spoken transcripts. Cheap local rules run first, the
// backend classifier is consulted only when nothing matches locally, and any
// classifier failure degrades to a plain conversation rather than an error.
type Service struct {
	rest *rest.Client
}

func New(di *do.Injector) (*Service, error) {
	return &Service{
		rest: do.MustInvoke[*rest.Client](di),
	}, nil
}

// NewWithClient builds the service outside the injector, used by tests.
func NewWithClient(client *rest.Client) *Service {
	return &Service{rest: client}
}

// Classify resolves a transcript into an Intent. Local rule order matters
// and mirrors the handler priority: workspace, reflex, domain, capability.
func (s *Service) Classify(ctx context.Context, transcript string) Intent {
	msg := strings.ToLower(transcript)

	if intent, ok := ClassifyLocal(msg); ok {
		return intent
	}

	cls, err := s.rest.ClassifyCommand(ctx, transcript)
	if err != nil {
		slog.Warn("Command classification failed, routing to conversation", "error", err)
		return Intent{Kind: KindConversation}
	}

	if cls.Category != "butler_action" {
		return Intent{Kind: KindConversation}
	}

	return Intent{Kind: KindAction, Action: cls}
}

// ClassifyLocal runs only the network-free rules. Exported so callers can
// test routing without a backend.
func ClassifyLocal(msg string) (Intent, bool) {
	for _, match := range []func(string) (Intent, bool){
		matchWorkspace,
		matchReflex,
		matchDomain,
		matchCapability,
	} {
		if intent, ok := match(msg); ok {
			return intent, true
		}
	}

	return Intent{}, false
}
