package models

import "time"

// Provenance records which upstream API produced a metadata record.
type Provenance string

const (
	// ProvenancePrimary marks records answered by the mirror-pool scraping API.
	ProvenancePrimary Provenance = "primary"
	// ProvenanceFallback marks records answered by the official API.
	ProvenanceFallback Provenance = "fallback"
)

// SearchHit is a single result from a video search. Only the fields needed to
// decide whether a full metadata fetch is worthwhile are carried.
type SearchHit struct {
	VideoID       string
	Title         string
	Author        string
	LengthSeconds int
	Description   string
}

// VideoMetadata is the canonical full-detail record for a video. Both the
// primary and fallback adapters produce this shape.
type VideoMetadata struct {
	VideoID         string
	Title           string
	DurationSeconds int
	ViewCount       int64
	LikeCount       int64
	CommentCount    int64
	PublishedAt     time.Time
	ChannelTitle    string
	Tags            []string
	Description     string
	Quality         string
	HasCaptions     bool
	Provenance      Provenance
}

// URL returns the canonical watch URL for the video.
func (m VideoMetadata) URL() string {
	return WatchURL(m.VideoID)
}

// WatchURL builds the canonical watch URL for a video ID.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// VideoCandidate is a validated video queued for rating. Immutable once
// written to the raw queue; consumed exactly once by the rating pipeline.
type VideoCandidate struct {
	VideoID         string     `json:"video_id"`
	Title           string     `json:"title"`
	URL             string     `json:"url"`
	Category        Category   `json:"category"`
	SearchQuery     string     `json:"search_query"`
	DurationSeconds int        `json:"duration_seconds"`
	ViewCount       int64      `json:"view_count"`
	LikeCount       int64      `json:"like_count"`
	CommentCount    int64      `json:"comment_count"`
	PublishedAt     time.Time  `json:"published_at"`
	ChannelTitle    string     `json:"channel_title"`
	Tags            []string   `json:"tags,omitempty"`
	Description     string     `json:"description,omitempty"`
	Quality         string     `json:"quality,omitempty"`
	HasCaptions     bool       `json:"has_captions"`
	Provenance      Provenance `json:"provenance"`
	CollectedAt     time.Time  `json:"collected_at"`
	CollectionRunID string     `json:"collection_run_id,omitempty"`
}

// CandidateFromMetadata builds a queue-ready candidate from validated metadata.
func CandidateFromMetadata(m VideoMetadata, category Category, query, runID string, now time.Time) VideoCandidate {
	return VideoCandidate{
		VideoID:         m.VideoID,
		Title:           m.Title,
		URL:             m.URL(),
		Category:        category,
		SearchQuery:     query,
		DurationSeconds: m.DurationSeconds,
		ViewCount:       m.ViewCount,
		LikeCount:       m.LikeCount,
		CommentCount:    m.CommentCount,
		PublishedAt:     m.PublishedAt,
		ChannelTitle:    m.ChannelTitle,
		Tags:            m.Tags,
		Description:     m.Description,
		Quality:         m.Quality,
		HasCaptions:     m.HasCaptions,
		Provenance:      m.Provenance,
		CollectedAt:     now,
		CollectionRunID: runID,
	}
}
