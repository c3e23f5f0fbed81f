package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"phoenix/app/client/rest"
	"phoenix/app/config"
	"phoenix/app/service/session"

	"github.com/elliotchance/pie/v2"
	"github.com/samber/do"
)

// Planets are the six themed dashboard views.
var Planets = []string{"mercury", "venus", "earth", "mars", "jupiter", "saturn"}

// Service drives the planet dashboard views: overview payloads come from the
// backend through the shared client cache, spoken briefings are assembled
// locally from the domain summary endpoints.
type Service struct {
	cfg     *config.Config
	rest    *rest.Client
	session *session.Service
}

func New(di *do.Injector) (*Service, error) {
	return &Service{
		cfg:     do.MustInvoke[*config.Config](di),
		rest:    do.MustInvoke[*rest.Client](di),
		session: do.MustInvoke[*session.Service](di),
	}, nil
}

// NewWithClient builds the service outside the injector, used by tests.
func NewWithClient(cfg *config.Config, client *rest.Client, sess *session.Service) *Service {
	return &Service{cfg: cfg, rest: client, session: sess}
}

// Overview returns the raw dashboard payload for one planet view.
func (s *Service) Overview(ctx context.Context, planet string) (json.RawMessage, error) {
	if !pie.Contains(Planets, planet) {
		return nil, fmt.Errorf("unknown planet %q", planet)
	}

	return s.rest.PlanetOverview(ctx, planet)
}

// PlanetFor maps a spoken view request onto a planet name, by planet name or
// by the themes each view covers.
func PlanetFor(phrase string) (string, bool) {
	themes := map[string][]string{
		"mercury": {"mercury", "biometric", "recovery", "health"},
		"venus":   {"venus", "fitness", "nutrition", "workout", "meal", "food"},
		"earth":   {"earth", "calendar", "schedule", "time", "meeting"},
		"mars":    {"mars", "goal", "habit", "progress"},
		"jupiter": {"jupiter", "finance", "money", "budget", "spending", "expense"},
		"saturn":  {"saturn", "social", "relationship", "people"},
	}

	for _, planet := range Planets {
		if pie.Any(themes[planet], func(theme string) bool {
			return contains(phrase, theme)
		}) {
			return planet, true
		}
	}

	return "", false
}

func contains(phrase, theme string) bool {
	return strings.Contains(strings.ToLower(phrase), theme)
}
