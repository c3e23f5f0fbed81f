package listen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"phoenix/app/config"

	"github.com/samber/do"
)

// ErrBusy is returned when a recognition session is already in flight. The
// caller treats it as a no-op, a second tap must not queue a second session.
var ErrBusy = errors.New("recognition already in progress")

// ErrNoSpeech is returned when a session ends without a final transcript.
var ErrNoSpeech = errors.New("no speech detected")

// Result is the normalized output of any speech backend.
type Result struct {
	Transcript string
	Final      bool
	Confidence float64
}

// Stream is one live recognition session.
type Stream interface {
	Recv() (Result, error)
	Close() error
}

// Recognizer abstracts a speech-to-text backend behind a single contract.
type Recognizer interface {
	Start(ctx context.Context, language string) (Stream, error)
}

// Service adapts a Recognizer into the listen/transcribe state machine:
// idle -> listening -> (interim* -> final) -> idle, with error back to idle.
// At most one session is active at a time.
type Service struct {
	cfg        *config.Config
	recognizer Recognizer

	mu         sync.Mutex
	busy       bool
	generation uint64
	cancel     context.CancelFunc

	onInterim func(transcript string)
}

func New(di *do.Injector) (*Service, error) {
	return &Service{
		cfg:        do.MustInvoke[*config.Config](di),
		recognizer: do.MustInvoke[Recognizer](di),
	}, nil
}

// NewWithRecognizer builds the service outside the injector, used by tests
// and by callers composing a custom backend.
func NewWithRecognizer(cfg *config.Config, rec Recognizer) *Service {
	return &Service{cfg: cfg, recognizer: rec}
}

// OnInterim registers a callback for interim transcripts, used for live
// feedback while a session runs.
func (s *Service) OnInterim(fn func(transcript string)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.onInterim = fn
}

// Listen runs one recognition session and returns its final transcript.
// A second concurrent call fails fast with ErrBusy. A session that produces
// no result within the listen timeout self-cancels instead of deadlocking
// the guard, and the guard itself force-resets after the configured lock
// timeout even if the backend never fires a terminal event.
func (s *Service) Listen(ctx context.Context) (string, error) {
	gen, err := s.acquire()
	if err != nil {
		return "", err
	}
	defer s.release(gen)

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Speech.ListenTimeout)
	defer cancel()

	s.mu.Lock()
	s.cancel = cancel
	interim := s.onInterim
	s.mu.Unlock()

	stream, err := s.recognizer.Start(ctx, s.cfg.Voice.Language)
	if err != nil {
		return "", fmt.Errorf("failed to start recognition: %w", err)
	}
	defer stream.Close()

	for {
		result, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return "", ErrNoSpeech
			}

			return "", fmt.Errorf("recognition failed: %w", err)
		}

		if !result.Final {
			if interim != nil && result.Transcript != "" {
				interim(result.Transcript)
			}
			continue
		}

		if result.Transcript == "" {
			return "", ErrNoSpeech
		}

		return result.Transcript, nil
	}
}

// Stop cancels the active session if any. Safe to call when idle.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Listening reports whether a session is in flight.
func (s *Service) Listening() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.busy
}

func (s *Service) acquire() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.busy {
		return 0, ErrBusy
	}

	s.busy = true
	s.generation++
	gen := s.generation

	// Hard reset against a hung native bridge that never delivers a
	// terminal event. The generation check keeps a stale timer from
	// clobbering a newer session.
	time.AfterFunc(s.cfg.Speech.LockTimeout, func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.busy && s.generation == gen {
			slog.Warn("Recognition lock timed out, force-resetting", "timeout", s.cfg.Speech.LockTimeout)
			s.busy = false
			if s.cancel != nil {
				s.cancel()
				s.cancel = nil
			}
		}
	})

	return gen, nil
}

func (s *Service) release(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generation == gen {
		s.busy = false
		s.cancel = nil
	}
}
