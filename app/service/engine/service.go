package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"phoenix/app/client/push"
	"phoenix/app/config"
	"phoenix/app/service/butler"
	"phoenix/app/service/command"
	"phoenix/app/service/conversation"
	"phoenix/app/service/dashboard"
	"phoenix/app/service/listen"
	"phoenix/app/service/queue"
	"phoenix/app/service/session"
	"phoenix/app/service/speech"
	"phoenix/app/service/widget"

	"github.com/elliotchance/pie/v2"
	"github.com/samber/do"
	"golang.org/x/sync/errgroup"
)

const iterationRetryDelay = 5 * time.Second

// Service is the voice loop: listen, classify, route, speak, repeat. One
// command is in flight at a time, queued announcements are voiced between
// commands, and the push stream feeds audio and widgets in the background.
type Service struct {
	cfg             *config.Config
	listenSvc       *listen.Service
	commandSvc      *command.Service
	conversationSvc *conversation.Service
	butlerSvc       *butler.Service
	speechSvc       *speech.Service
	dashboardSvc    *dashboard.Service
	widgetSvc       *widget.Service
	queueSvc        *queue.Service
	sessionSvc      *session.Service
	pushClient      *push.Client
}

func New(di *do.Injector) (*Service, error) {
	return &Service{
		cfg:             do.MustInvoke[*config.Config](di),
		listenSvc:       do.MustInvoke[*listen.Service](di),
		commandSvc:      do.MustInvoke[*command.Service](di),
		conversationSvc: do.MustInvoke[*conversation.Service](di),
		butlerSvc:       do.MustInvoke[*butler.Service](di),
		speechSvc:       do.MustInvoke[*speech.Service](di),
		dashboardSvc:    do.MustInvoke[*dashboard.Service](di),
		widgetSvc:       do.MustInvoke[*widget.Service](di),
		queueSvc:        do.MustInvoke[*queue.Service](di),
		sessionSvc:      do.MustInvoke[*session.Service](di),
		pushClient:      do.MustInvoke[*push.Client](di),
	}, nil
}

func (s *Service) Run(ctx context.Context) {
	s.pushClient.SetHandlers(push.Handlers{
		AudioChunk: func(ctx context.Context, sequence int, audio []byte) {
			s.speechSvc.EnqueueChunk(ctx, speech.AudioChunk{Sequence: sequence, Data: audio})
		},
		WidgetCreate:   s.widgetSvc.Create,
		WidgetUpdate:   s.widgetSvc.Update,
		WidgetComplete: s.onWidgetComplete,
		ProcessingStatus: func(status string) {
			slog.Info("Backend processing status", "status", status)
		},
	})

	if s.sessionSvc.Authenticated() {
		s.queueSvc.Add(s.dashboardSvc.Greeting(ctx))
	}

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return s.pushClient.Run(ctx)
	})
	group.Go(func() error {
		s.loop(ctx)
		return ctx.Err()
	})

	_ = group.Wait()
}

func (s *Service) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := s.runIteration(ctx); err != nil && ctx.Err() == nil {
			slog.Error("Error running iteration", "error", err)
			time.Sleep(iterationRetryDelay)
		}
	}
}

// runIteration voices any pending announcement, then handles one spoken
// command end to end.
func (s *Service) runIteration(ctx context.Context) error {
	select {
	case announcement, ok := <-s.queueSvc.Channel():
		if !ok {
			return context.Canceled
		}

		return s.speechSvc.Speak(ctx, announcement.Text)
	default:
	}

	transcript, err := s.listenSvc.Listen(ctx)
	if err != nil {
		if errors.Is(err, listen.ErrNoSpeech) {
			return nil
		}
		if errors.Is(err, listen.ErrBusy) {
			time.Sleep(time.Second)
			return nil
		}

		return err
	}

	start := time.Now()
	s.process(ctx, transcript)
	slog.Info("Processed command", "transcript", transcript, "duration", time.Since(start))

	return nil
}

func (s *Service) process(ctx context.Context, transcript string) {
	intent := s.commandSvc.Classify(ctx, transcript)

	var err error

	switch intent.Kind {
	case command.KindReflex:
		err = s.speechSvc.Speak(ctx, intent.Reply)

	case command.KindCapability:
		s.showCapabilityPreviews()
		err = s.speechSvc.Speak(ctx, intent.Reply)

	case command.KindWorkspace:
		briefing := s.dashboardSvc.WorkspaceBriefing(ctx, intent.Workspace)
		s.showBriefing(briefing)
		err = s.speechSvc.Speak(ctx, briefing.Text)

	case command.KindDomain:
		briefing := s.dashboardSvc.DomainBriefing(ctx, intent.Domain)
		s.showBriefing(briefing)
		err = s.speechSvc.Speak(ctx, briefing.Text)

	case command.KindAction:
		err = s.butlerSvc.Execute(ctx, *intent.Action)

	default:
		if planet, ok := planetNavigation(transcript); ok {
			if overview, oerr := s.dashboardSvc.Overview(ctx, planet); oerr == nil {
				s.widgetSvc.Show(planet, overview)
				err = s.speechSvc.Speak(ctx, fmt.Sprintf("Here's your %s view.", planet))
				break
			}
		}

		reply := s.conversationSvc.Ask(ctx, transcript)
		err = s.speechSvc.Speak(ctx, reply)
	}

	if err != nil && ctx.Err() == nil {
		slog.Error("Command handling failed", "transcript", transcript, "error", err)
		_ = s.speechSvc.Speak(ctx, "Sorry, I encountered an error processing that.")
	}
}

var navigationVerbs = []string{"show", "open", "go to", "take me", "bring up", "navigate"}

// planetNavigation matches "show me mercury" style view requests. It only
// runs after the classifier declared the transcript conversational, so
// workspace and domain intercepts always win first.
func planetNavigation(transcript string) (string, bool) {
	lower := strings.ToLower(transcript)

	if !pie.Any(navigationVerbs, func(verb string) bool {
		return strings.Contains(lower, verb)
	}) {
		return "", false
	}

	return dashboard.PlanetFor(lower)
}

func (s *Service) showBriefing(briefing dashboard.Briefing) {
	if briefing.Widget != "" {
		s.widgetSvc.Show(briefing.Widget, briefing.Payload)
	}
}

func (s *Service) showCapabilityPreviews() {
	for _, category := range []string{"preview-health", "preview-finance", "preview-calendar", "preview-fitness"} {
		s.widgetSvc.Show(category, nil)
	}
}

func (s *Service) onWidgetComplete(id, category, message string, data json.RawMessage) {
	s.widgetSvc.Complete(id, category, data)

	if message == "" {
		message = "Complete!"
	}
	s.queueSvc.Add(message)
}
