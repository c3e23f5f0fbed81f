package butler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"phoenix/app/client/rest"
	"phoenix/app/config"
	"phoenix/app/service/cache"
	"phoenix/app/service/listen"
	"phoenix/app/service/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedSpeaker struct {
	spoken []string
}

func (s *scriptedSpeaker) Speak(_ context.Context, text string) error {
	s.spoken = append(s.spoken, text)
	return nil
}

func (s *scriptedSpeaker) last() string {
	if len(s.spoken) == 0 {
		return ""
	}
	return s.spoken[len(s.spoken)-1]
}

type scriptedListener struct {
	replies []string
	err     error
}

func (l *scriptedListener) Listen(ctx context.Context) (string, error) {
	if l.err != nil {
		return "", l.err
	}
	if len(l.replies) == 0 {
		<-ctx.Done()
		return "", ctx.Err()
	}

	reply := l.replies[0]
	l.replies = l.replies[1:]
	return reply, nil
}

func newTestService(t *testing.T, handler http.Handler, listener Listener) (*Service, *scriptedSpeaker) {
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
		Speech: config.Speech{ConfirmTimeout: 100 * time.Millisecond},
	}

	cacheSvc, err := cache.New(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cacheSvc.Shutdown() })

	speaker := &scriptedSpeaker{}
	client := rest.NewClientWithDeps(cfg, sess, cacheSvc)

	return NewWithDeps(cfg, client, speaker, listener), speaker
}

func TestParseConfirmation(t *testing.T) {
	cases := []struct {
		reply      string
		confirmed  bool
		recognized bool
	}{
		{"yes", true, true},
		{"yeah sure", true, true},
		{"go ahead please", true, true},
		{"do it", true, true},
		{"no", false, true},
		{"cancel that", false, true},
		{"nevermind", false, true},
		{"what was that again", false, false},
	}

	for _, c := range cases {
		confirmed, recognized := ParseConfirmation(c.reply)
		assert.Equal(t, c.confirmed, confirmed, c.reply)
		assert.Equal(t, c.recognized, recognized, c.reply)
	}
}

func TestConfirmedActionExecutesAndSpeaksResult(t *testing.T) {
	var executed bool
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/butler/router/execute", r.URL.Path)
		executed = true
		_, _ = w.Write([]byte(`{"success":true,"confirmationMessage":"Table for two booked."}`))
	})

	svc, speaker := newTestService(t, handler, &scriptedListener{replies: []string{"yes please"}})

	err := svc.Execute(context.Background(), rest.Classification{
		ActionType:          "reservation",
		ConfirmationMessage: "Book a table for two?",
	})

	require.NoError(t, err)
	assert.True(t, executed)
	assert.Equal(t, "Book a table for two?", speaker.spoken[0])
	assert.Equal(t, "Table for two booked.", speaker.last())
}

func TestDeclinedActionNeverHitsBackend(t *testing.T) {
	var executed bool
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		executed = true
		_, _ = w.Write([]byte(`{"success":true}`))
	})

	svc, speaker := newTestService(t, handler, &scriptedListener{replies: []string{"no, cancel that"}})

	err := svc.Execute(context.Background(), rest.Classification{ActionType: "purchase"})

	require.NoError(t, err)
	assert.False(t, executed)
	assert.Equal(t, "Okay, cancelled.", speaker.last())
}

func TestSilenceCancelsAfterTimeout(t *testing.T) {
	var executed bool
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		executed = true
	})

	// Listener with no scripted replies blocks until the confirmation
	// window closes.
	svc, speaker := newTestService(t, handler, &scriptedListener{})

	err := svc.Execute(context.Background(), rest.Classification{ActionType: "purchase"})

	require.NoError(t, err)
	assert.False(t, executed)
	assert.Equal(t, "Okay, cancelled.", speaker.last())
}

func TestNoSpeechCancels(t *testing.T) {
	svc, speaker := newTestService(t, http.NotFoundHandler(), &scriptedListener{err: listen.ErrNoSpeech})

	err := svc.Execute(context.Background(), rest.Classification{ActionType: "purchase"})

	require.NoError(t, err)
	assert.Equal(t, "Okay, cancelled.", speaker.last())
}

func TestAmbiguousReplyIsRetried(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"userMessage":"That slot is taken."}`))
	})

	svc, speaker := newTestService(t, handler, &scriptedListener{replies: []string{"hmm let me think", "yes"}})

	err := svc.Execute(context.Background(), rest.Classification{ActionType: "reservation"})

	require.NoError(t, err)
	assert.Equal(t, "That slot is taken.", speaker.last())
}
