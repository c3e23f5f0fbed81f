package widget

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/elliotchance/pie/v2"
	"github.com/samber/do"
)

// Status of a tracked widget.
const (
	StatusGenerating = "generating"
	StatusComplete   = "complete"
)

// Widget is one UI card pushed by the backend or raised by a local briefing.
type Widget struct {
	ID       string
	Category string
	Title    string
	Status   string
	Progress int
	Section  string
	Data     any

	UpdatedAt time.Time
}

// Listener observes widget changes, used by whatever surface renders them.
type Listener func(w Widget)

// Service tracks the live widget set by id. The backend streams widget
// lifecycle frames over the push connection, local briefings raise widgets
// directly, both end up in the same table.
type Service struct {
	mu       sync.RWMutex
	widgets  map[string]Widget
	listener Listener
}

func New(_ *do.Injector) (*Service, error) {
	return &Service{
		widgets: make(map[string]Widget),
	}, nil
}

func (s *Service) OnChange(fn Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.listener = fn
}

// Show raises a widget from a local briefing, replacing any widget of the
// same category. Category doubles as id for locally raised widgets.
func (s *Service) Show(category string, data any) {
	s.upsert(Widget{
		ID:       category,
		Category: category,
		Status:   StatusComplete,
		Data:     data,
	})
}

// Create handles a widget_create push frame.
func (s *Service) Create(id, category, title string, data json.RawMessage) {
	slog.Debug("Widget created", "id", id, "category", category)

	s.upsert(Widget{
		ID:       id,
		Category: category,
		Title:    title,
		Status:   StatusGenerating,
		Data:     data,
	})
}

// Update handles a widget_update push frame. Unknown ids create the widget,
// frames may arrive after a reconnect dropped the create.
func (s *Service) Update(id string, progress int, section string, data json.RawMessage) {
	s.mu.Lock()
	w := s.widgets[id]
	s.mu.Unlock()

	w.ID = id
	w.Status = StatusGenerating
	w.Progress = progress
	w.Section = section
	if len(data) > 0 {
		w.Data = data
	}

	s.upsert(w)
}

// Complete handles a widget_complete push frame.
func (s *Service) Complete(id, category string, data json.RawMessage) {
	s.mu.Lock()
	w := s.widgets[id]
	s.mu.Unlock()

	w.ID = id
	if category != "" {
		w.Category = category
	}
	w.Status = StatusComplete
	w.Progress = 100
	if len(data) > 0 {
		w.Data = data
	}

	s.upsert(w)
}

// Remove drops a widget from the table.
func (s *Service) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.widgets, id)
}

// Get returns a tracked widget by id.
func (s *Service) Get(id string) (Widget, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.widgets[id]

	return w, ok
}

// Active lists tracked widgets, most recently updated first.
func (s *Service) Active() []Widget {
	s.mu.RLock()
	defer s.mu.RUnlock()

	widgets := make([]Widget, 0, len(s.widgets))
	for _, w := range s.widgets {
		widgets = append(widgets, w)
	}

	return pie.SortUsing(widgets, func(a, b Widget) bool {
		return a.UpdatedAt.After(b.UpdatedAt)
	})
}

func (s *Service) upsert(w Widget) {
	w.UpdatedAt = time.Now()

	s.mu.Lock()
	s.widgets[w.ID] = w
	listener := s.listener
	s.mu.Unlock()

	if listener != nil {
		listener(w)
	}
}
