package command

import "phoenix/app/client/rest"

// Kind routes a recognized transcript to its handler.
type Kind string

const (
	// KindReflex is an instant canned reply, no network round-trip at all.
	KindReflex Kind = "reflex"
	// KindWorkspace fetches one of the Google workspace integrations.
	KindWorkspace Kind = "workspace"
	// KindDomain reads a local data domain: health, finance or goals.
	KindDomain Kind = "domain"
	// KindCapability answers "what can you do" with the feature tour.
	KindCapability Kind = "capability"
	// KindAction is a real-world butler action requiring confirmation.
	KindAction Kind = "action"
	// KindConversation falls through to the AI companion.
	KindConversation Kind = "conversation"
)

// Domain names a locally handled data domain.
type Domain string

const (
	DomainHealth  Domain = "health"
	DomainFinance Domain = "finance"
	DomainGoals   Domain = "goals"
)

// Intent is the classified form of one spoken command.
type Intent struct {
	Kind      Kind
	Reply     string
	Workspace rest.WorkspaceKind
	Domain    Domain

	// Action carries the backend classification for KindAction.
	Action *rest.Classification
}
