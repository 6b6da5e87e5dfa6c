// Package adapter rewrites a Telegram channel post into its Zen variant:
// Telegram-specific markup goes away, a leading attention glyph is enforced
// and the text is capped at the Zen length limit.
package adapter

import (
	"regexp"
	"strings"
)

const (
	// Zen post length cap, counted in runes (the content is Cyrillic)
	maxLength = 250
	ellipsis  = "..."
)

var (
	// \w does not cover Cyrillic in RE2, so spell the word class out
	mentionRegex = regexp.MustCompile(`@[\p{L}\p{N}_]+`)
	hashtagRegex = regexp.MustCompile(`#([\p{L}\p{N}_]+)`)
)

// attentionGlyphs are the accepted leading glyphs; a post starting with
// none of them gets the default one prepended.
var attentionGlyphs = []string{"🔥", "💥", "📌", "❗"}

const defaultGlyph = "🔥 "

// Adapt transforms a Telegram post into its Zen form. Deterministic and
// pure: same input, same output.
func Adapt(text string) string {
	text = mentionRegex.ReplaceAllString(text, "")
	text = hashtagRegex.ReplaceAllString(text, "$1")
	text = strings.TrimSpace(text)

	if !hasAttentionGlyph(text) {
		text = defaultGlyph + text
	}

	runes := []rune(text)
	if len(runes) > maxLength {
		text = string(runes[:maxLength-len(ellipsis)]) + ellipsis
	}

	return text
}

func hasAttentionGlyph(text string) bool {
	for _, glyph := range attentionGlyphs {
		if strings.HasPrefix(text, glyph) {
			return true
		}
	}
	return false
}
