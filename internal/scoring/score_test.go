package scoring_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipscout/clipscout/internal/models"
	"github.com/clipscout/clipscout/internal/scoring"
)

func sampleOf(texts ...string) models.CommentSample {
	comments := make([]models.SampledComment, 0, len(texts))
	for _, t := range texts {
		comments = append(comments, models.SampledComment{
			Text:      t,
			Sentiment: scoring.ClassifySentiment(t),
		})
	}
	return models.CommentSample{Comments: comments, FetchedCount: len(texts)}
}

func fillerSample(matching []string, total int) models.CommentSample {
	texts := make([]string, 0, total)
	texts = append(texts, matching...)
	for i := len(texts); i < total; i++ {
		texts = append(texts, "zzz filler zzz")
	}
	return sampleOf(texts...)
}

func TestComponentsValidationRatio(t *testing.T) {
	// 30 matching comments out of 400 with k=0.05 saturates the component:
	// 30 / (400*0.05) = 1.5, clamped to 1.0.
	matching := make([]string, 30)
	for i := range matching {
		matching[i] = "this is so touching"
	}
	sample := fillerSample(matching, 400)

	components := scoring.Components(models.CategoryHeartwarming, sample.Texts())
	assert.InDelta(t, 1.0, components.CategoryValidation, 1e-9)
	assert.Zero(t, components.EmotionalAlignment)
	assert.Zero(t, components.AuthenticitySupport)
	assert.Zero(t, components.EngagementQuality)
}

func TestComponentsPartialRatio(t *testing.T) {
	// 10 of 400 with k=0.05: 10 / 20 = 0.5, no clamping.
	matching := make([]string, 10)
	for i := range matching {
		matching[i] = "crying right now"
	}
	sample := fillerSample(matching, 400)

	components := scoring.Components(models.CategoryHeartwarming, sample.Texts())
	assert.InDelta(t, 0.5, components.CategoryValidation, 1e-9)
}

func TestComponentsSmallSampleFloor(t *testing.T) {
	// With 5 comments the expected-hit budget 5*0.05 = 0.25 is floored to 1,
	// so a single hit already saturates.
	sample := fillerSample([]string{"touching moment"}, 5)

	components := scoring.Components(models.CategoryHeartwarming, sample.Texts())
	assert.InDelta(t, 1.0, components.CategoryValidation, 1e-9)
}

func TestComponentsCountCommentsNotKeywords(t *testing.T) {
	// A comment matching several validation keywords still counts once.
	sample := fillerSample([]string{"touching, crying, beautiful and wholesome"}, 400)

	components := scoring.Components(models.CategoryHeartwarming, sample.Texts())
	assert.InDelta(t, 1.0/20.0, components.CategoryValidation, 1e-9)
}

func TestScoreClampedToMax(t *testing.T) {
	candidate := models.VideoCandidate{
		VideoID:     "clamp01",
		Title:       "Heartwarming emotional reunion surprise",
		Category:    models.CategoryHeartwarming,
		ViewCount:   100000,
		LikeCount:   10000,
		Quality:     "hd",
		HasCaptions: true,
	}
	matching := make([]string, 400)
	for i := range matching {
		matching[i] = "touching, cried real tears, so genuine, watched this again"
	}
	sample := fillerSample(matching, 400)

	result := scoring.Score(candidate, sample, scoring.DefaultWeights(), 200, time.Now())
	assert.InDelta(t, scoring.MaxScore, result.FinalScore, 1e-9)
}

func TestScoreAuthenticityPenalty(t *testing.T) {
	candidate := models.VideoCandidate{
		VideoID:  "penalty1",
		Title:    "zzz",
		Category: models.CategoryHeartwarming,
	}
	matching := make([]string, 30)
	for i := range matching {
		matching[i] = "so touching"
	}
	sample := fillerSample(matching, 400)

	result := scoring.Score(candidate, sample, scoring.DefaultWeights(), 200, time.Now())

	// base 2.0 + 6.0*0.4 (validation only) + 0.75*0.5 technical floor,
	// +0.5 validation bonus, then *0.85 for zero authenticity support.
	require.Zero(t, result.Components.AuthenticitySupport)
	assert.InDelta(t, (2.0+2.4+0.375+0.5)*0.85, result.FinalScore, 1e-9)
}

func TestScoreConfidence(t *testing.T) {
	candidate := models.VideoCandidate{VideoID: "conf1", Category: models.CategoryFunny}

	half := scoring.Score(candidate, fillerSample(nil, 100), scoring.DefaultWeights(), 200, time.Now())
	assert.InDelta(t, 0.5, half.Confidence, 1e-9)

	full := scoring.Score(candidate, fillerSample(nil, 400), scoring.DefaultWeights(), 200, time.Now())
	assert.InDelta(t, 1.0, full.Confidence, 1e-9)
}

func TestScoreResultCarriesCommentCount(t *testing.T) {
	candidate := models.VideoCandidate{VideoID: "count1", Category: models.CategoryTraumatic}
	analyzedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	result := scoring.Score(candidate, fillerSample(nil, 37), scoring.DefaultWeights(), 200, analyzedAt)
	assert.Equal(t, "count1", result.VideoID)
	assert.Equal(t, 37, result.CommentCount)
	assert.Equal(t, analyzedAt, result.AnalyzedAt)
}

func TestRulesForUnknownCategoryFallsBack(t *testing.T) {
	rules := scoring.RulesFor(models.Category("bogus"))
	require.NotNil(t, rules)
	assert.Equal(t, scoring.RulesFor(models.CategoryHeartwarming), rules)
}

func TestMatchesTitle(t *testing.T) {
	rules := scoring.RulesFor(models.CategoryHeartwarming)

	kw, ok := rules.MatchesTitle("Soldier's Emotional Homecoming", "")
	require.True(t, ok)
	assert.Equal(t, "emotional", kw)

	_, ok = rules.MatchesTitle("Top 10 keyboard shortcuts", "productivity tips")
	assert.False(t, ok)

	// Description alone can satisfy the gate.
	_, ok = rules.MatchesTitle("Watch until the end", "the sweetest reunion you will ever see")
	assert.True(t, ok)
}

func TestClassifySentiment(t *testing.T) {
	tests := []struct {
		name string
		text string
		want models.Sentiment
	}{
		{"positive", "this is amazing and beautiful", models.SentimentPositive},
		{"negative", "fake and staged clickbait", models.SentimentNegative},
		{"neutral no hits", "posted at 3pm on a tuesday", models.SentimentNeutral},
		{"neutral tie", "love it but feels staged", models.SentimentNeutral},
		{"case insensitive", "ABSOLUTELY WONDERFUL", models.SentimentPositive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, scoring.ClassifySentiment(tt.text))
		})
	}
}
