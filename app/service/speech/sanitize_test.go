package speech

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeStripsMetadataBlob(t *testing.T) {
	in := `Great workout today! {"confidence_score": 0.92, "mood": "energetic"}`

	assert.Equal(t, "Great workout today!", Sanitize(in))
}

func TestSanitizeStripsStackedMetadataBlobs(t *testing.T) {
	in := `Done. {"action_taken": "log_workout"} {"mood": "happy"}`

	assert.Equal(t, "Done.", Sanitize(in))
}

func TestSanitizeStripsUIDecorations(t *testing.T) {
	in := "▪️ Item one ━━━ [hidden note] item two"

	assert.Equal(t, "Item one item two", Sanitize(in))
}

func TestSanitizeLowercasesCapsHeaders(t *testing.T) {
	assert.Equal(t, "daily summary follows", Sanitize("DAILY_SUMMARY follows"))
}

func TestSanitizeKeepsShortRepliesIntact(t *testing.T) {
	in := "You have three meetings today and your first one starts at nine."

	assert.Equal(t, in, Sanitize(in))
}

func TestSanitizeTruncatesOverlongReplies(t *testing.T) {
	words := make([]string, 0, 30)
	for i := 0; i < 30; i++ {
		words = append(words, "word")
	}
	in := strings.Join(words, " ") + "."

	out := Sanitize(in)

	outWords := strings.Fields(out)
	assert.Len(t, outWords, maxSpokenWords)
	assert.True(t, strings.HasSuffix(out, "."))
	assert.False(t, strings.HasSuffix(out, ".."))
}

func TestSanitizeLeavesThresholdLengthAlone(t *testing.T) {
	words := make([]string, truncateThreshold)
	for i := range words {
		words[i] = "w"
	}
	in := strings.Join(words, " ")

	assert.Equal(t, in, Sanitize(in))
}
