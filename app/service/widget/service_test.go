package widget

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) *Service {
	t.Helper()

	svc, err := New(nil)
	require.NoError(t, err)

	return svc
}

func TestPushLifecycle(t *testing.T) {
	svc := newService(t)

	svc.Create("w1", "report", "Weekly report", nil)

	w, ok := svc.Get("w1")
	require.True(t, ok)
	assert.Equal(t, StatusGenerating, w.Status)
	assert.Equal(t, "Weekly report", w.Title)

	svc.Update("w1", 40, "spending", json.RawMessage(`{"rows":3}`))

	w, _ = svc.Get("w1")
	assert.Equal(t, 40, w.Progress)
	assert.Equal(t, "spending", w.Section)

	svc.Complete("w1", "report", json.RawMessage(`{"rows":7}`))

	w, _ = svc.Get("w1")
	assert.Equal(t, StatusComplete, w.Status)
	assert.Equal(t, 100, w.Progress)
}

func TestUpdateForUnknownWidgetCreatesIt(t *testing.T) {
	svc := newService(t)

	svc.Update("ghost", 10, "intro", nil)

	w, ok := svc.Get("ghost")
	require.True(t, ok)
	assert.Equal(t, StatusGenerating, w.Status)
}

func TestShowReplacesSameCategory(t *testing.T) {
	svc := newService(t)

	svc.Show("health", map[string]int{"recoveryScore": 42})
	svc.Show("health", map[string]int{"recoveryScore": 61})

	assert.Len(t, svc.Active(), 1)
}

func TestListenerObservesChanges(t *testing.T) {
	svc := newService(t)

	var seen []string
	svc.OnChange(func(w Widget) {
		seen = append(seen, w.ID+":"+w.Status)
	})

	svc.Create("w1", "report", "", nil)
	svc.Complete("w1", "report", nil)

	assert.Equal(t, []string{"w1:generating", "w1:complete"}, seen)
}

func TestRemove(t *testing.T) {
	svc := newService(t)

	svc.Show("finance", nil)
	svc.Remove("finance")

	_, ok := svc.Get("finance")
	assert.False(t, ok)
	assert.Empty(t, svc.Active())
}
