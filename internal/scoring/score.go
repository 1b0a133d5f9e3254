package scoring

import (
	"math"
	"time"

	"github.com/clipscout/clipscout/internal/models"
)

// MaxScore bounds the final score.
const MaxScore = 10.0

// Weights are the fixed combination weights. The comment-analysis component
// dominates; the remaining inputs are smaller metadata-derived contributions.
type Weights struct {
	CommentAnalysis  float64
	Engagement       float64
	ContentMatch     float64
	ChannelAuthority float64
	TechnicalQuality float64

	// Component mix inside the comment-analysis score.
	Validation   float64
	Emotional    float64
	Authenticity float64
	EngagementQ  float64

	// ValidationBonus is added flat when category validation is at or above
	// ValidationBonusFloor.
	ValidationBonus      float64
	ValidationBonusFloor float64
	// AuthenticityPenalty multiplies the score down when authenticity
	// support falls below AuthenticityFloor.
	AuthenticityPenalty float64
	AuthenticityFloor   float64
}

// DefaultWeights returns the tuned weight set.
func DefaultWeights() Weights {
	return Weights{
		CommentAnalysis:  6.0,
		Engagement:       1.5,
		ContentMatch:     1.0,
		ChannelAuthority: 0.75,
		TechnicalQuality: 0.75,

		Validation:   0.40,
		Emotional:    0.25,
		Authenticity: 0.20,
		EngagementQ:  0.15,

		ValidationBonus:      0.5,
		ValidationBonusFloor: 0.8,
		AuthenticityPenalty:  0.85,
		AuthenticityFloor:    0.2,
	}
}

// componentScore is the shared hit-ratio formula: the fraction of an expected
// hit budget (comments*k) that actually matched, clamped to [0,1].
func componentScore(hits, commentCount int, k float64) float64 {
	expected := float64(commentCount) * k
	if expected < 1 {
		expected = 1
	}
	score := float64(hits) / expected
	if score > 1 {
		score = 1
	}
	return score
}

// Components derives the four comment-analysis sub-scores for a category
// from the deduplicated comment texts.
func Components(category models.Category, texts []string) models.ComponentScores {
	rules := RulesFor(category)
	n := len(texts)

	return models.ComponentScores{
		CategoryValidation:  componentScore(countMatches(texts, rules.ValidationKeywords), n, rules.ValidationK),
		EmotionalAlignment:  componentScore(countMatches(texts, rules.EmotionalKeywords), n, rules.EmotionalK),
		AuthenticitySupport: componentScore(countMatches(texts, rules.AuthenticityKeywords), n, rules.AuthenticityK),
		EngagementQuality:   componentScore(countMatches(texts, rules.EngagementKeywords), n, rules.EngagementK),
	}
}

// MetadataInputs are the non-comment score contributions, all in [0,1].
type MetadataInputs struct {
	Engagement       float64
	ContentMatch     float64
	ChannelAuthority float64
	TechnicalQuality float64
}

// MetadataInputsFor derives the metadata contributions from a candidate.
func MetadataInputsFor(candidate models.VideoCandidate) MetadataInputs {
	rules := RulesFor(candidate.Category)

	var engagement float64
	if candidate.ViewCount > 0 {
		engagement = clamp01(20 * float64(candidate.LikeCount) / float64(candidate.ViewCount))
	}

	haystack := candidate.Title + " " + candidate.Description
	for _, tag := range candidate.Tags {
		haystack += " " + tag
	}
	contentMatch := clamp01(float64(KeywordHits(haystack, rules.TitleKeywords)) / 3)

	var authority float64
	if candidate.ViewCount > 0 {
		authority = clamp01(math.Log10(float64(candidate.ViewCount)) / 7)
	}

	quality := 0.5
	if candidate.HasCaptions {
		quality += 0.25
	}
	switch candidate.Quality {
	case "hd", "1080p", "1440p", "2160p", "4k":
		quality += 0.25
	}

	return MetadataInputs{
		Engagement:       engagement,
		ContentMatch:     contentMatch,
		ChannelAuthority: authority,
		TechnicalQuality: clamp01(quality),
	}
}

// Score combines everything into a final ScoreResult. confidenceTarget is the
// comment count at which confidence saturates at 1.0.
func Score(candidate models.VideoCandidate, sample models.CommentSample, weights Weights, confidenceTarget int, now time.Time) models.ScoreResult {
	texts := sample.Texts()
	components := Components(candidate.Category, texts)
	inputs := MetadataInputsFor(candidate)
	rules := RulesFor(candidate.Category)

	commentScore := weights.Validation*components.CategoryValidation +
		weights.Emotional*components.EmotionalAlignment +
		weights.Authenticity*components.AuthenticitySupport +
		weights.EngagementQ*components.EngagementQuality

	final := rules.BaseScore +
		weights.CommentAnalysis*commentScore +
		weights.Engagement*inputs.Engagement +
		weights.ContentMatch*inputs.ContentMatch +
		weights.ChannelAuthority*inputs.ChannelAuthority +
		weights.TechnicalQuality*inputs.TechnicalQuality

	if components.CategoryValidation >= weights.ValidationBonusFloor {
		final += weights.ValidationBonus
	}
	if components.AuthenticitySupport < weights.AuthenticityFloor {
		final *= weights.AuthenticityPenalty
	}

	if final > MaxScore {
		final = MaxScore
	}
	if final < 0 {
		final = 0
	}

	if confidenceTarget <= 0 {
		confidenceTarget = 200
	}
	confidence := clamp01(float64(len(texts)) / float64(confidenceTarget))

	return models.ScoreResult{
		VideoID:      candidate.VideoID,
		FinalScore:   final,
		Confidence:   confidence,
		Components:   components,
		CommentCount: len(texts),
		AnalyzedAt:   now,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
