package models

import "time"

// ComponentScores are the named sub-scores derived from comment analysis.
// Each is clamped to [0,1].
type ComponentScores struct {
	CategoryValidation  float64 `json:"category_validation"`
	EmotionalAlignment  float64 `json:"emotional_alignment"`
	AuthenticitySupport float64 `json:"authenticity_support"`
	EngagementQuality   float64 `json:"engagement_quality"`
}

// ScoreResult is the outcome of scoring one queued video.
type ScoreResult struct {
	VideoID    string          `json:"video_id"`
	FinalScore float64         `json:"final_score"`
	Confidence float64         `json:"confidence"`
	Components ComponentScores `json:"components"`
	// CommentCount is the number of distinct comments the confidence was
	// derived from.
	CommentCount int       `json:"comment_count"`
	MomentCount  int       `json:"moment_count"`
	Accepted     bool      `json:"accepted"`
	AnalyzedAt   time.Time `json:"analyzed_at"`
}

// Moment is a timestamped comment that matched category keywords. Accepted
// videos have their moments persisted alongside the score.
type Moment struct {
	VideoID         string    `json:"video_id"`
	URL             string    `json:"url"`
	Comment         string    `json:"comment"`
	Timestamp       string    `json:"timestamp"`
	CategoryMatches int       `json:"category_matches"`
	RelevanceScore  float64   `json:"relevance_score"`
	Sentiment       Sentiment `json:"sentiment"`
}

// RatedVideo pairs a candidate with its score for persistence to the
// accepted destination.
type RatedVideo struct {
	VideoCandidate
	Score ScoreResult `json:"score"`
}
