package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/do"
)

const sweepInterval = time.Minute

var _ do.Shutdownable = (*Service)(nil)

type entry struct {
	value    json.RawMessage
	storedAt time.Time
	ttl      time.Duration
}

func (e entry) expired(now time.Time) bool {
	return now.Sub(e.storedAt) >= e.ttl
}

// Service is a TTL keyed response cache. Entries are evicted lazily on Get
// and eagerly by a background sweep. There is no capacity limit.
type Service struct {
	mu      sync.Mutex
	entries map[string]entry

	stop chan struct{}
	done chan struct{}
}

func New(_ *do.Injector) (*Service, error) {
	s := &Service{
		entries: make(map[string]entry),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	go s.runSweeper(context.Background())

	return s, nil
}

func (s *Service) Set(key string, value json.RawMessage, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = entry{
		value:    value,
		storedAt: time.Now(),
		ttl:      ttl,
	}
}

// Get returns the cached value if it is still within its TTL. An expired
// entry is removed and treated as absent even if the sweeper has not run yet.
func (s *Service) Get(key string) (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}

	if e.expired(time.Now()) {
		delete(s.entries, key)
		return nil, false
	}

	return e.value, true
}

func (s *Service) Invalidate(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
}

func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entries)
}

func (s *Service) runSweeper(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Service) sweep() {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, e := range s.entries {
		if e.expired(now) {
			delete(s.entries, key)
			removed++
		}
	}

	if removed > 0 {
		slog.Debug("Cache sweep removed expired entries", "removed", removed, "remaining", len(s.entries))
	}
}

func (s *Service) Shutdown() error {
	close(s.stop)
	<-s.done

	return nil
}
