// Package scoring holds the category keyword tables and the weighted
// component formula used to rate a video from its viewer comments. The
// keyword lists and constants were carried over from the tool this service
// replaced; they are tuned values, not derived ones.
package scoring

import (
	"strings"

	"github.com/clipscout/clipscout/internal/models"
)

// Rules is the per-category scoring table. One instance per category lives in
// the *_rules.go files.
type Rules struct {
	// SearchPhrases is the static pool the collector draws queries from.
	SearchPhrases []string

	// TitleKeywords gate collection: a candidate's title or description must
	// contain at least one.
	TitleKeywords []string

	// Comment keyword sets, one per score component.
	ValidationKeywords   []string
	EmotionalKeywords    []string
	AuthenticityKeywords []string
	EngagementKeywords   []string

	// BaseScore is the category's starting score before components.
	BaseScore float64

	// Per-component k constants for the hit-ratio formula
	// min(hits / max(comments*k, 1), 1).
	ValidationK   float64
	EmotionalK    float64
	AuthenticityK float64
	EngagementK   float64
}

var rulesByCategory = map[models.Category]*Rules{
	models.CategoryHeartwarming: heartwarmingRules,
	models.CategoryFunny:        funnyRules,
	models.CategoryTraumatic:    traumaticRules,
}

// RulesFor returns the scoring table for a category. Unknown categories fall
// back to the heartwarming table so a corrupt queue record still scores
// deterministically instead of panicking.
func RulesFor(category models.Category) *Rules {
	if r, ok := rulesByCategory[category]; ok {
		return r
	}
	return heartwarmingRules
}

// MatchesTitle reports whether the title or description contains at least one
// of the category's title keywords, and returns the first keyword that hit.
func (r *Rules) MatchesTitle(title, description string) (string, bool) {
	haystack := strings.ToLower(title + " " + description)
	for _, kw := range r.TitleKeywords {
		if strings.Contains(haystack, kw) {
			return kw, true
		}
	}
	return "", false
}

// countMatches counts how many texts contain at least one of the keywords.
// Matching is case-insensitive substring matching, same as the original
// heuristic — no stemming, no tokenization.
func countMatches(texts []string, keywords []string) int {
	matches := 0
	for _, text := range texts {
		lower := strings.ToLower(text)
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				matches++
				break
			}
		}
	}
	return matches
}

// KeywordHits counts, for one text, how many of the keywords it contains.
func KeywordHits(text string, keywords []string) int {
	lower := strings.ToLower(text)
	hits := 0
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			hits++
		}
	}
	return hits
}
