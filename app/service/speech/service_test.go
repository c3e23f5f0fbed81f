package speech

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"phoenix/app/client/rest"
	"phoenix/app/config"
	"phoenix/app/service/cache"
	"phoenix/app/service/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlayer struct {
	mu      sync.Mutex
	played  []int
	blocked bool
	err     error
}

func (p *fakePlayer) Play(ctx context.Context, data []byte) error {
	p.mu.Lock()
	if len(data) > 0 {
		p.played = append(p.played, int(data[0]))
	} else {
		p.played = append(p.played, -1)
	}
	blocked := p.blocked
	err := p.err
	p.mu.Unlock()

	if err != nil {
		return err
	}

	if blocked {
		<-ctx.Done()
		return ctx.Err()
	}

	return nil
}

func (p *fakePlayer) playCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.played)
}

func (p *fakePlayer) order() []int {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]int, len(p.played))
	copy(out, p.played)

	return out
}

func newTestService(t *testing.T, player Player) *Service {
	t.Helper()

	// Any synthesis request returns one byte of "audio".
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"audio":"AQ=="}`))
	}))
	t.Cleanup(server.Close)

	sess, err := session.NewAt(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)

	cfg := &config.Config{
		Backend: config.Backend{
			BaseURL:        server.URL,
			RequestTimeout: 5 * time.Second,
			MaxAttempts:    1,
			RetryBaseDelay: time.Millisecond,
		},
		Voice: config.Voice{Voice: "echo", Language: "en"},
	}

	cacheSvc, err := cache.New(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cacheSvc.Shutdown() })

	return NewWithPlayer(cfg, rest.NewClientWithDeps(cfg, sess, cacheSvc), sess, player)
}

func TestSpeakPlaysSynthesizedAudio(t *testing.T) {
	player := &fakePlayer{}
	svc := newTestService(t, player)

	require.NoError(t, svc.Speak(context.Background(), "hello there"))

	assert.Equal(t, 1, player.playCount())
}

func TestSpeakSkipsEmptyText(t *testing.T) {
	player := &fakePlayer{}
	svc := newTestService(t, player)

	require.NoError(t, svc.Speak(context.Background(), "   "))

	assert.Zero(t, player.playCount())
}

func TestNewUtterancePreemptsCurrent(t *testing.T) {
	player := &fakePlayer{blocked: true}
	svc := newTestService(t, player)

	first := make(chan error, 1)
	go func() {
		first <- svc.Speak(context.Background(), "a long announcement")
	}()

	require.Eventually(t, func() bool {
		return player.playCount() == 1
	}, time.Second, time.Millisecond)

	player.mu.Lock()
	player.blocked = false
	player.mu.Unlock()

	require.NoError(t, svc.Speak(context.Background(), "urgent update"))

	// The preempted utterance finishes silently.
	select {
	case err := <-first:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("preempted Speak did not return")
	}

	assert.Equal(t, 2, player.playCount())
}

func TestPlaybackFailureIsNotifiedOnce(t *testing.T) {
	player := &fakePlayer{err: ErrPlaybackUnavailable}
	svc := newTestService(t, player)

	var notifications []string
	svc.SetNotifier(func(message string) {
		notifications = append(notifications, message)
	})

	require.NoError(t, svc.Speak(context.Background(), "one"))
	require.NoError(t, svc.Speak(context.Background(), "two"))

	assert.Len(t, notifications, 1)
}

func TestChunkQueuePlaysPendingChunksInOrder(t *testing.T) {
	player := &fakePlayer{blocked: true}
	svc := newTestService(t, player)

	ctx := context.Background()

	// The first chunk starts playing immediately and blocks.
	svc.EnqueueChunk(ctx, AudioChunk{Sequence: 5, Data: []byte{5}})
	require.Eventually(t, func() bool {
		return player.playCount() == 1
	}, time.Second, time.Millisecond)

	// These arrive out of order while the first one is still playing.
	svc.EnqueueChunk(ctx, AudioChunk{Sequence: 2, Data: []byte{2}})
	svc.EnqueueChunk(ctx, AudioChunk{Sequence: 1, Data: []byte{1}})

	player.mu.Lock()
	player.blocked = false
	player.mu.Unlock()
	svc.Stop()

	require.Eventually(t, func() bool {
		return player.playCount() == 3
	}, time.Second, time.Millisecond)

	assert.Equal(t, []int{5, 1, 2}, player.order())
}
