package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"phoenix/app/client/rest"
	"phoenix/app/service/command"
)

// Briefing is one spoken data summary plus the widget that visualizes it.
// Widget payloads use the raw backend data, preview widgets carry none.
type Briefing struct {
	Text    string
	Widget  string
	Payload any
}

// DomainBriefing builds the spoken summary for a locally handled domain.
// A backend that has no data yet answers with setup guidance, never with an
// error: a missing wearable is an onboarding state, not a failure.
func (s *Service) DomainBriefing(ctx context.Context, domain command.Domain) Briefing {
	switch domain {
	case command.DomainHealth:
		return s.healthBriefing(ctx)
	case command.DomainFinance:
		return s.financeBriefing(ctx)
	case command.DomainGoals:
		return s.goalsBriefing(ctx)
	}

	return Briefing{Text: "I'm not sure how to help with that yet."}
}

func (s *Service) healthBriefing(ctx context.Context) Briefing {
	summary, err := s.rest.HealthSummary(ctx)
	if err != nil {
		return Briefing{
			Text:   "Connect a wearable device to track your health metrics. I can monitor your recovery, HRV, and sleep quality.",
			Widget: "preview-health",
		}
	}

	score := "not available"
	if summary.RecoveryScore != nil {
		score = strconv.Itoa(*summary.RecoveryScore)
	}

	readiness := summary.Readiness
	if readiness == "" {
		readiness = "Check your wearable for more details."
	}

	return Briefing{
		Text:    fmt.Sprintf("Your recovery is at %s. %s", score, readiness),
		Widget:  "health",
		Payload: summary,
	}
}

func (s *Service) financeBriefing(ctx context.Context) Briefing {
	summary, err := s.rest.FinanceSummary(ctx)
	if err != nil {
		return Briefing{
			Text:   "Connect your bank or budgeting app to track your finances. I can help you manage budgets and savings goals.",
			Widget: "preview-finance",
		}
	}

	remaining := "no data"
	if summary.BudgetRemaining != nil {
		remaining = strconv.FormatFloat(*summary.BudgetRemaining, 'f', -1, 64)
	}

	return Briefing{
		Text:    fmt.Sprintf("You have %s dollars remaining this month.", remaining),
		Widget:  "finance",
		Payload: summary,
	}
}

func (s *Service) goalsBriefing(ctx context.Context) Briefing {
	goals, err := s.rest.ActiveGoals(ctx)
	if err != nil || len(goals) == 0 {
		return Briefing{
			Text:   "Set up your goals and I'll help you track your progress and build streaks.",
			Widget: "preview-goals",
		}
	}

	first := goals[0]

	return Briefing{
		Text:    fmt.Sprintf("You're at %.0f percent on %s.", first.Progress, first.Name),
		Widget:  "goals",
		Payload: goals,
	}
}

// WorkspaceBriefing fetches one Google workspace integration and summarizes
// it. Auth and connection problems turn into connect-your-account guidance.
func (s *Service) WorkspaceBriefing(ctx context.Context, kind rest.WorkspaceKind) Briefing {
	items, err := s.rest.FetchWorkspace(ctx, kind)
	if err != nil {
		if errors.Is(err, rest.ErrAuthentication) {
			return Briefing{Text: fmt.Sprintf("To access your %s, please connect your Google account.", kind)}
		}

		return Briefing{Text: "I couldn't fetch your workspace data. Please check your Google connection."}
	}

	if items.Error != "" && strings.Contains(items.Error, "not connected") {
		return Briefing{Text: fmt.Sprintf("To access your %s, please connect your Google account.", kind)}
	}

	return Briefing{
		Text:    fmt.Sprintf("Here are your %d %s.", items.Size(), kind),
		Widget:  string(kind),
		Payload: items,
	}
}
