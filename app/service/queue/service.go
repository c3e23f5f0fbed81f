package queue

import (
	"log/slog"

	"github.com/samber/do"
)

const bufferSize = 64

var _ do.Shutdownable = (*Service)(nil)

// Service buffers announcements that arrive outside the command loop:
// proactive greetings, push-stream completion messages, status updates.
// The voice loop drains it between commands so an announcement never
// interrupts an exchange in progress.
type Service struct {
	queue chan Announcement
}

type Announcement struct {
	Text string
}

func New(_ *do.Injector) (*Service, error) {
	return &Service{
		queue: make(chan Announcement, bufferSize),
	}, nil
}

// Add enqueues an announcement, dropping it when the queue is full. A send
// on the closed queue during shutdown is swallowed.
func (s *Service) Add(text string) {
	if text == "" {
		return
	}

	defer func() {
		if r := recover(); r != nil {

		}
	}()

	select {
	case s.queue <- Announcement{Text: text}:
	default:
		slog.Warn("announcement queue is full")
	}
}

func (s *Service) Channel() <-chan Announcement {
	return s.queue
}

func (s *Service) Shutdown() error {
	close(s.queue)

	return nil
}
