package speech

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"phoenix/app/client/rest"
	"phoenix/app/config"
	"phoenix/app/service/session"

	"github.com/samber/do"
)

// Notifier surfaces a one-time visible message when audio cannot play.
type Notifier func(message string)

// Service is the synthesis and playback pipeline. Interactive Speak calls
// are single-slot: a new utterance always preempts the one in progress.
// Push-streamed audio chunks use the opposite policy, they are queued and
// played strictly in sequence order.
type Service struct {
	cfg     *config.Config
	rest    *rest.Client
	session *session.Service
	player  Player

	mu         sync.Mutex
	current    *playback
	generation uint64

	notifyOnce sync.Once
	notifier   Notifier

	chunkMu      sync.Mutex
	chunkQueue   []AudioChunk
	chunkRunning bool
}

type playback struct {
	cancel context.CancelFunc
}

type AudioChunk struct {
	Sequence int
	Data     []byte
}

func New(di *do.Injector) (*Service, error) {
	return &Service{
		cfg:     do.MustInvoke[*config.Config](di),
		rest:    do.MustInvoke[*rest.Client](di),
		session: do.MustInvoke[*session.Service](di),
		player:  do.MustInvoke[Player](di),
	}, nil
}

// NewWithPlayer builds the service outside the injector, used by tests.
func NewWithPlayer(cfg *config.Config, client *rest.Client, sess *session.Service, player Player) *Service {
	return &Service{cfg: cfg, rest: client, session: sess, player: player}
}

func (s *Service) SetNotifier(fn Notifier) {
	s.notifier = fn
}

// Speak sanitizes text, synthesizes it and plays it back, returning when
// playback ends. The playback slot is claimed synchronously before the
// synthesis request goes out: any utterance still playing is stopped and
// released first, so a new Speak always wins. Synthesis failures are logged
// and swallowed, the caller has already surfaced the text.
func (s *Service) Speak(ctx context.Context, text string) error {
	text = Sanitize(text)
	if text == "" {
		return nil
	}

	ctx, gen := s.claimSlot(ctx)
	defer s.releaseSlot(gen)

	voice, language := s.preferences()

	audio, err := s.rest.GenerateSpeech(ctx, rest.SpeechRequest{
		Text:     text,
		Voice:    voice,
		Language: language,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil // preempted by a newer utterance
		}
		slog.Error("Speech synthesis failed", "error", err)
		return nil
	}

	if err = s.player.Play(ctx, audio); err != nil {
		switch {
		case ctx.Err() != nil:
			// Preempted, the newer utterance owns the slot now.
		case errors.Is(err, ErrPlaybackUnavailable):
			s.notifyPlaybackBlocked()
		default:
			slog.Error("Audio playback failed", "error", err)
		}
	}

	return nil
}

// Stop halts the current utterance, if any.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		s.current.cancel()
		s.current = nil
	}
}

// EnqueueChunk adds a push-streamed audio chunk to the ordered queue and
// starts the queue player when idle. Chunks may arrive out of order, the
// queue is kept sorted by sequence number.
func (s *Service) EnqueueChunk(ctx context.Context, chunk AudioChunk) {
	s.chunkMu.Lock()
	s.chunkQueue = append(s.chunkQueue, chunk)
	sort.Slice(s.chunkQueue, func(i, j int) bool {
		return s.chunkQueue[i].Sequence < s.chunkQueue[j].Sequence
	})

	start := !s.chunkRunning
	if start {
		s.chunkRunning = true
	}
	s.chunkMu.Unlock()

	if start {
		go s.playChunkQueue(ctx)
	}
}

func (s *Service) playChunkQueue(ctx context.Context) {
	for {
		s.chunkMu.Lock()
		if len(s.chunkQueue) == 0 || ctx.Err() != nil {
			s.chunkRunning = false
			s.chunkMu.Unlock()
			return
		}

		chunk := s.chunkQueue[0]
		s.chunkQueue = s.chunkQueue[1:]
		s.chunkMu.Unlock()

		playCtx, gen := s.claimSlot(ctx)
		if err := s.player.Play(playCtx, chunk.Data); err != nil && playCtx.Err() == nil {
			// A broken chunk is skipped, the rest of the stream still plays.
			slog.Warn("Audio chunk playback failed", "sequence", chunk.Sequence, "error", err)
		}
		s.releaseSlot(gen)
	}
}

// claimSlot stops the playback in progress and installs a fresh handle. It
// must complete before any network I/O for the new utterance starts.
func (s *Service) claimSlot(ctx context.Context) (context.Context, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		s.current.cancel()
	}

	ctx, cancel := context.WithCancel(ctx)
	s.current = &playback{cancel: cancel}
	s.generation++

	return ctx, s.generation
}

func (s *Service) releaseSlot(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generation == gen && s.current != nil {
		s.current.cancel()
		s.current = nil
	}
}

func (s *Service) preferences() (voice, language string) {
	voice, language, _ = s.session.Preferences()
	if voice == "" {
		voice = s.cfg.Voice.Voice
	}
	if language == "" {
		language = s.cfg.Voice.Language
	}

	return voice, language
}

func (s *Service) notifyPlaybackBlocked() {
	s.notifyOnce.Do(func() {
		slog.Warn("Audio playback is blocked, notifying user visually")
		if s.notifier != nil {
			s.notifier("Audio playback is unavailable. Check your sound output settings.")
		}
	})
}
