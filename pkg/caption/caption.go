// Package caption prepares the text that accompanies a post. When the
// request carries no caption a themed fallback is used, and a couple of
// hashtags derived from the caption's key words are appended.
package caption

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// DefaultTheme is used when the request names no theme
const DefaultTheme = "positivity"

// fallbacks are the stock affirmations used when no caption is supplied
var fallbacks = map[string]string{
	"positivity":  "You are filled with unlimited potential. Every day brings new opportunities for growth.",
	"motivation":  "You have the strength to overcome any challenge. Keep pushing forward toward your dreams.",
	"success":     "Your hard work is creating the success you deserve. Celebrate each step of your journey.",
	"happiness":   "Joy lives within you, not in external circumstances. You deserve to be happy right now.",
	"gratitude":   "Your life is filled with blessings worth celebrating. Take a moment to appreciate all that you have.",
	"self-love":   "You are worthy of love and respect exactly as you are. Embrace your unique qualities.",
	"mindfulness": "This present moment is a gift. Breathe deeply and connect with the peace that's always within you.",
}

const genericFallback = "You are capable of amazing things. Today is full of possibilities."

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "but": {}, "is": {}, "are": {},
	"was": {}, "were": {}, "be": {}, "been": {}, "being": {}, "have": {}, "has": {},
	"had": {}, "do": {}, "does": {}, "did": {}, "to": {}, "from": {}, "in": {},
	"out": {}, "on": {}, "off": {}, "over": {}, "under": {}, "again": {},
	"further": {}, "then": {}, "once": {}, "here": {}, "there": {}, "when": {},
	"where": {}, "why": {}, "how": {}, "all": {}, "any": {}, "both": {}, "each": {},
	"few": {}, "more": {}, "most": {}, "other": {}, "some": {}, "such": {}, "no": {},
	"nor": {}, "not": {}, "only": {}, "own": {}, "same": {}, "so": {}, "than": {},
	"too": {}, "very": {}, "can": {}, "will": {}, "just": {}, "should": {},
	"now": {}, "of": {}, "with": {}, "for": {}, "that": {}, "this": {},
	"these": {}, "those": {}, "your": {}, "you": {}, "yours": {},
}

var wordPattern = regexp.MustCompile(`[a-zA-Z0-9]+`)

// Fallback returns the stock affirmation for a theme
func Fallback(theme string) string {
	if theme == "" {
		theme = DefaultTheme
	}
	if text, ok := fallbacks[strings.ToLower(theme)]; ok {
		return text
	}
	return genericFallback
}

// Themes lists the known fallback themes in sorted order
func Themes() []string {
	names := make([]string, 0, len(fallbacks))
	for name := range fallbacks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Keywords extracts up to n key words from the text, most frequent first.
// Stop words and words of three characters or less are skipped.
func Keywords(text string, n int) []string {
	counts := make(map[string]int)
	var order []string

	for _, word := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		if len(word) <= 3 {
			continue
		}
		if _, skip := stopWords[word]; skip {
			continue
		}
		if counts[word] == 0 {
			order = append(order, word)
		}
		counts[word]++
	}

	// Stable sort keeps first-seen order among equally frequent words
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	if len(order) > n {
		order = order[:n]
	}
	return order
}

// Compose builds the final caption. An empty caption falls back to the
// themed affirmation, and up to two keyword hashtags are appended.
func Compose(text, theme string) string {
	if strings.TrimSpace(text) == "" {
		text = Fallback(theme)
	}
	text = strings.TrimSpace(text)

	tags := Keywords(text, 2)
	if len(tags) == 0 {
		return text
	}

	var b strings.Builder
	b.WriteString(text)
	b.WriteString("\n\n")
	for i, tag := range tags {
		if i > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "#%s", tag)
	}
	return b.String()
}
