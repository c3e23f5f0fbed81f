package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"phoenix/app/client/rest"
)

const greetingKey = "proactive_greeting"

// Greeting assembles the proactive briefing spoken once per day on startup:
// a time-of-day opener plus whatever context is actually available. Returns
// empty when today's greeting was already delivered.
func (s *Service) Greeting(ctx context.Context) string {
	if s.session.SpokenToday(greetingKey) {
		return ""
	}

	parts := []string{timeGreeting(time.Now())}

	if summary, err := s.rest.HealthSummary(ctx); err == nil && summary.RecoveryScore != nil {
		switch score := *summary.RecoveryScore; {
		case score < 60:
			parts = append(parts, fmt.Sprintf("Your recovery score is %d percent. You might want to take it easy today.", score))
		case score > 80:
			parts = append(parts, fmt.Sprintf("You're at %d percent recovery. You're primed for a great day.", score))
		}
	}

	if items, err := s.rest.FetchWorkspace(ctx, rest.WorkspaceCalendar); err == nil {
		if count := items.Size(); count > 0 {
			parts = append(parts, fmt.Sprintf("You have %d %s on your calendar today.", count, plural(count, "event")))
		}
	}

	if len(parts) == 1 {
		parts = append(parts, "How can I help you today?")
	}

	if err := s.session.MarkSpokenToday(greetingKey); err != nil {
		slog.Warn("Failed to persist greeting flag", "error", err)
	}

	return strings.Join(parts, " ")
}

func timeGreeting(now time.Time) string {
	switch hour := now.Hour(); {
	case hour < 12:
		return "Good morning!"
	case hour < 18:
		return "Good afternoon!"
	default:
		return "Good evening!"
	}
}

func plural(count int, noun string) string {
	if count == 1 {
		return noun
	}

	return noun + "s"
}
