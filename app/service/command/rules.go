package command

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"phoenix/app/client/rest"

	"github.com/elliotchance/pie/v2"
)

// Local rules run in a fixed order before anything touches the network.
// Workspace keywords are checked first: "schedule a meeting about my budget"
// is a calendar command, not a finance question, even though both clusters
// match it.

var workspaceKeywords = []struct {
	kind     rest.WorkspaceKind
	keywords []string
}{
	{rest.WorkspaceEmail, []string{"email", "inbox", "mail"}},
	{rest.WorkspaceCalendar, []string{"calendar", "schedule", "event", "meeting"}},
	{rest.WorkspaceTasks, []string{"task", "todo", "reminder"}},
	{rest.WorkspaceContacts, []string{"contact", "people"}},
	{rest.WorkspaceDrive, []string{"drive", "file", "document"}},
}

func matchWorkspace(msg string) (Intent, bool) {
	for _, group := range workspaceKeywords {
		if containsAny(msg, group.keywords) {
			return Intent{Kind: KindWorkspace, Workspace: group.kind}, true
		}
	}

	return Intent{}, false
}

// reflexReplies maps exact normalized phrases to instant answers, skipping
// the AI entirely for small talk.
var reflexReplies = map[string]func() string{
	"hey":         static("Hey! What's up?"),
	"hello":       static("Hello! How can I help?"),
	"hi":          static("Hi there! What do you need?"),
	"hey phoenix": static("I'm here. What do you need?"),
	"hi phoenix":  static("Hey! What can I do for you?"),
	"what time is it": func() string {
		return fmt.Sprintf("It's %s", time.Now().Format("3:04 PM"))
	},
	"what's the time": func() string {
		return fmt.Sprintf("It's %s", time.Now().Format("3:04 PM"))
	},
	"good morning": static("Good morning! Ready to conquer the day?"),
	"good night":   static("Good night! Rest well."),
	"good evening": static("Good evening! How can I help?"),
	"thank you":    static("You're welcome!"),
	"thanks":       static("Anytime!"),
}

func static(reply string) func() string {
	return func() string { return reply }
}

func matchReflex(msg string) (Intent, bool) {
	reply, ok := reflexReplies[strings.TrimSpace(msg)]
	if !ok {
		return Intent{}, false
	}

	return Intent{Kind: KindReflex, Reply: reply()}, true
}

var domainKeywords = []struct {
	domain   Domain
	keywords []string
}{
	{DomainHealth, []string{"health", "recovery", "hrv", "sleep", "heart rate", "fitness", "workout", "exercise"}},
	{DomainFinance, []string{"budget", "finance", "spending", "money", "expense", "savings"}},
	{DomainGoals, []string{"goal", "progress", "habit", "streak", "tracking"}},
}

func matchDomain(msg string) (Intent, bool) {
	for _, group := range domainKeywords {
		if containsAny(msg, group.keywords) {
			return Intent{Kind: KindDomain, Domain: group.domain}, true
		}
	}

	return Intent{}, false
}

var capabilityRe = regexp.MustCompile(`what can you do|what are your capabilities|help me|what do you do`)

const capabilityReply = "I'm Phoenix, your personal AI butler. I can manage your workspace - emails, calendar, " +
	"tasks, contacts, and files. I track your health metrics, help with goals, handle finances, and automate " +
	"daily routines. Just ask me anything or say \"show me my emails\" to get started."

func matchCapability(msg string) (Intent, bool) {
	if !capabilityRe.MatchString(msg) {
		return Intent{}, false
	}

	return Intent{Kind: KindCapability, Reply: capabilityReply}, true
}

func containsAny(msg string, keywords []string) bool {
	return pie.Any(keywords, func(keyword string) bool {
		return strings.Contains(msg, keyword)
	})
}
