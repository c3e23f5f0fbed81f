package speech

import (
	"regexp"
	"strings"
)

// Spoken replies are kept conversational: anything over truncateThreshold
// words is cut down to maxSpokenWords. This is deliberate product behavior,
// long dashboard dumps are unbearable when read aloud.
const (
	maxSpokenWords    = 15
	truncateThreshold = 20
)

var (
	metadataBlobRe = regexp.MustCompile(`(?i)\s*\{[\s\S]*?"(?:confidence_score|mood|action_taken)"[\s\S]*?\}\s*$`)
	bracketRe      = regexp.MustCompile(`\[[^\]]*\]`)
	separatorRe    = regexp.MustCompile(`━+`)
	bulletRe       = regexp.MustCompile(`▪️|•`)
	capsHeaderRe   = regexp.MustCompile(`[A-Z_]{3,}`)
	whitespaceRe   = regexp.MustCompile(`\s+`)

	uiJargonRe = regexp.MustCompile(`(?i)PROTOCOL INITIATED|USER ENGAGEMENT|SYSTEM STATUS|PRIMARY DOMAINS:|CURRENT STATUS:`)
)

// Sanitize converts UI-formatted reply text into something speakable:
// trailing JSON metadata, bracketed annotations, decorative separators and
// shouting headers are stripped, whitespace collapsed, and overlong replies
// truncated to a fixed word ceiling ending in a period.
func Sanitize(text string) string {
	for {
		stripped := metadataBlobRe.ReplaceAllString(text, "")
		if stripped == text {
			break
		}
		text = stripped
	}

	text = bracketRe.ReplaceAllString(text, "")
	text = separatorRe.ReplaceAllString(text, "")
	text = bulletRe.ReplaceAllString(text, "")

	text = capsHeaderRe.ReplaceAllStringFunc(text, func(match string) string {
		return strings.ReplaceAll(strings.ToLower(match), "_", " ")
	})

	text = uiJargonRe.ReplaceAllString(text, "")

	text = strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))

	words := strings.Split(text, " ")
	if len(words) > truncateThreshold {
		text = strings.Join(words[:maxSpokenWords], " ")
		text = strings.TrimRight(text, ".,;:!?") + "."
	}

	return text
}
