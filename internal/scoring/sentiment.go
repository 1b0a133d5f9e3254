package scoring

import (
	"strings"

	"github.com/clipscout/clipscout/internal/models"
)

// Naive sentiment word lists, carried over as-is. The tag is a keyword-count
// comparison, not real sentiment analysis.
var (
	positiveWords = []string{
		"love", "amazing", "beautiful", "awesome", "great", "best",
		"incredible", "wonderful", "touching", "wholesome", "perfect",
		"happy", "heartwarming", "brilliant", "fantastic",
	}
	negativeWords = []string{
		"fake", "staged", "hate", "boring", "awful", "terrible", "worst",
		"scripted", "cringe", "annoying", "clickbait", "disgusting",
	}
)

// ClassifySentiment tags one comment: more positive-keyword hits than
// negative means positive, more negative means negative, ties are neutral.
func ClassifySentiment(text string) models.Sentiment {
	lower := strings.ToLower(text)

	positive := 0
	for _, w := range positiveWords {
		if strings.Contains(lower, w) {
			positive++
		}
	}
	negative := 0
	for _, w := range negativeWords {
		if strings.Contains(lower, w) {
			negative++
		}
	}

	switch {
	case positive > negative:
		return models.SentimentPositive
	case negative > positive:
		return models.SentimentNegative
	default:
		return models.SentimentNeutral
	}
}
