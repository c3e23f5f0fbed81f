package session

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/samber/do"
)

var dbFilePath = filepath.Join("data", "session.json")

// Service owns the credentials and preferences the browser client kept in
// local storage: bearer token, user id, theme, voice preferences and the
// "already spoken today" flags. State is persisted to a single JSON file.
type Service struct {
	mu   sync.RWMutex
	path string
	data sessionData
}

type sessionData struct {
	Token       string            `json:"token,omitempty"`
	UserID      string            `json:"userId,omitempty"`
	Theme       string            `json:"theme,omitempty"`
	Voice       string            `json:"voice,omitempty"`
	Language    string            `json:"language,omitempty"`
	Personality string            `json:"personality,omitempty"`
	SpokenToday map[string]string `json:"spokenToday,omitempty"`
}

func New(_ *do.Injector) (*Service, error) {
	return NewAt(dbFilePath)
}

// NewAt loads session state from an explicit file path, used by tests.
func NewAt(path string) (*Service, error) {
	_ = os.MkdirAll(filepath.Dir(path), 0755)

	s := &Service{path: path}

	raw, err := os.ReadFile(path)
	if err == nil {
		if err = json.Unmarshal(raw, &s.data); err != nil {
			slog.Warn("Session file is corrupt, starting unauthenticated", "error", err)
			s.data = sessionData{}
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	if s.data.SpokenToday == nil {
		s.data.SpokenToday = make(map[string]string)
	}

	return s, nil
}

func (s *Service) save() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err = os.WriteFile(s.path, raw, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}

	return nil
}

// Token returns the bearer token, empty when unauthenticated.
func (s *Service) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.data.Token
}

func (s *Service) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.data.UserID
}

func (s *Service) Authenticated() bool {
	return s.Token() != ""
}

func (s *Service) SetCredentials(token, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.Token = token
	s.data.UserID = userID

	return s.save()
}

// Clear tears the session down after an irrecoverable auth failure or logout.
func (s *Service) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.Token = ""
	s.data.UserID = ""

	slog.Info("Session cleared, re-authentication required")

	return s.save()
}

func (s *Service) Preferences() (voice, language, personality string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.data.Voice, s.data.Language, s.data.Personality
}

func (s *Service) SetPreferences(voice, language, personality string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if voice != "" {
		s.data.Voice = voice
	}
	if language != "" {
		s.data.Language = language
	}
	if personality != "" {
		s.data.Personality = personality
	}

	return s.save()
}

func (s *Service) Theme() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.data.Theme
}

func (s *Service) SetTheme(theme string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.Theme = theme

	return s.save()
}

// SpokenToday reports whether a proactive message of the given type was
// already delivered today.
func (s *Service) SpokenToday(messageType string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.data.SpokenToday[messageType] == dateKey(time.Now())
}

func (s *Service) MarkSpokenToday(messageType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.SpokenToday[messageType] = dateKey(time.Now())

	return s.save()
}

func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
