package conversation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"phoenix/app/client/rest"
	"phoenix/app/config"
	"phoenix/app/service/cache"
	"phoenix/app/service/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, handler http.Handler) *Service {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	sess, err := session.NewAt(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)
	require.NoError(t, sess.SetCredentials("token", "u1"))

	cfg := &config.Config{
		Backend: config.Backend{
			BaseURL:        server.URL,
			RequestTimeout: 5 * time.Second,
			MaxAttempts:    1,
			RetryBaseDelay: time.Millisecond,
		},
		Voice: config.Voice{Voice: "echo", Personality: "friendly_helpful"},
	}

	cacheSvc, err := cache.New(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cacheSvc.Shutdown() })

	return NewWithClient(cfg, rest.NewClientWithDeps(cfg, sess, cacheSvc), sess)
}

func TestAskRecordsBothTurns(t *testing.T) {
	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rest.ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "friendly_helpful", req.Personality)
		assert.Equal(t, "echo", req.Voice)

		_, _ = w.Write([]byte(`{"message":"Doing great!"}`))
	}))

	reply := svc.Ask(context.Background(), "how are you")

	assert.Equal(t, "Doing great!", reply)
	assert.Equal(t, 2, svc.HistoryLen())
}

func TestAskAppendsFollowUp(t *testing.T) {
	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"message":"Logged it.","followUp":"Want a summary?"}`))
	}))

	reply := svc.Ask(context.Background(), "log my run")

	assert.Equal(t, "Logged it. Want a summary?", reply)
}

func TestFailedExchangeDoesNotPoisonHistory(t *testing.T) {
	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	reply := svc.Ask(context.Background(), "hello")

	assert.Equal(t, fallbackReply, reply)
	assert.Equal(t, 0, svc.HistoryLen())
}

func TestHistorySendsConversationWindow(t *testing.T) {
	var lastWindow int
	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rest.ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		lastWindow = len(req.ConversationHistory)

		_, _ = w.Write([]byte(`{"message":"ok"}`))
	}))

	svc.Ask(context.Background(), "first")
	svc.Ask(context.Background(), "second")

	assert.Equal(t, 2, lastWindow)
}

func TestHistoryEvictsOldestBeyondCap(t *testing.T) {
	var h History

	for i := 0; i < historySize; i++ {
		h.add("user", "old")
	}
	h.add("assistant", "new")

	assert.Equal(t, historySize, h.Len())
	window := h.snapshot()
	assert.Equal(t, "new", window[len(window)-1].Content)
	assert.Equal(t, "assistant", window[len(window)-1].Role)
}
