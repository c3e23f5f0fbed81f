package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanetNavigationNeedsAVerb(t *testing.T) {
	_, ok := planetNavigation("mercury is the closest planet to the sun")

	assert.False(t, ok)
}

func TestPlanetNavigationMatchesThemedViews(t *testing.T) {
	cases := map[string]string{
		"show me mercury":          "mercury",
		"open the nutrition view":  "venus",
		"take me to my finances":   "jupiter",
		"bring up my social circle": "saturn",
	}

	for phrase, want := range cases {
		planet, ok := planetNavigation(phrase)
		require.True(t, ok, phrase)
		assert.Equal(t, want, planet, phrase)
	}
}
