package command

import (
	"testing"

	"phoenix/app/client/rest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkspaceBeatsDomainClusters(t *testing.T) {
	// "budget" alone is a finance question, but the calendar keyword wins.
	intent, ok := ClassifyLocal("schedule a meeting about my budget")

	require.True(t, ok)
	assert.Equal(t, KindWorkspace, intent.Kind)
	assert.Equal(t, rest.WorkspaceCalendar, intent.Workspace)
}

func TestWorkspaceKinds(t *testing.T) {
	cases := map[string]rest.WorkspaceKind{
		"show me my emails":        rest.WorkspaceEmail,
		"check my inbox":           rest.WorkspaceEmail,
		"what tasks do i have":     rest.WorkspaceTasks,
		"find the contact for sam": rest.WorkspaceContacts,
		"open my drive files":      rest.WorkspaceDrive,
	}

	for phrase, want := range cases {
		intent, ok := ClassifyLocal(phrase)
		require.True(t, ok, phrase)
		assert.Equal(t, KindWorkspace, intent.Kind, phrase)
		assert.Equal(t, want, intent.Workspace, phrase)
	}
}

func TestReflexExactMatch(t *testing.T) {
	intent, ok := ClassifyLocal("hey")

	require.True(t, ok)
	assert.Equal(t, KindReflex, intent.Kind)
	assert.Equal(t, "Hey! What's up?", intent.Reply)
}

func TestReflexRequiresExactPhrase(t *testing.T) {
	_, ok := ClassifyLocal("hey how are things going over there")

	assert.False(t, ok)
}

func TestDomainClusters(t *testing.T) {
	cases := map[string]Domain{
		"how is my recovery today":  DomainHealth,
		"did i sleep well":          DomainHealth,
		"how much money do i have":  DomainFinance,
		"what about my savings":     DomainFinance,
		"how are my goals going":    DomainGoals,
		"am i keeping up my streak": DomainGoals,
	}

	for phrase, want := range cases {
		intent, ok := ClassifyLocal(phrase)
		require.True(t, ok, phrase)
		assert.Equal(t, KindDomain, intent.Kind, phrase)
		assert.Equal(t, want, intent.Domain, phrase)
	}
}

func TestCapabilityQuestion(t *testing.T) {
	intent, ok := ClassifyLocal("what can you do")

	require.True(t, ok)
	assert.Equal(t, KindCapability, intent.Kind)
	assert.Contains(t, intent.Reply, "workspace")
}

func TestUnmatchedPhraseFallsThrough(t *testing.T) {
	_, ok := ClassifyLocal("tell me something interesting")

	assert.False(t, ok)
}
