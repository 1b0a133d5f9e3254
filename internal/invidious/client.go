// Package invidious adapts the primary mirror-pool scraping API to the
// canonical domain types. All requests go through the resilient client, so
// instance selection, retries, and rate limiting are already handled here.
package invidious

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/clipscout/clipscout/internal/apiclient"
	"github.com/clipscout/clipscout/internal/logger"
	"github.com/clipscout/clipscout/internal/models"
)

// Client wraps the resilient pool client with typed endpoints.
type Client struct {
	api    *apiclient.Client
	logger logger.Logger
}

// New creates an adapter over the resilient client.
func New(api *apiclient.Client, log logger.Logger) *Client {
	return &Client{api: api, logger: log}
}

// searchResult is the wire shape of one mirror search hit.
type searchResult struct {
	Type          string `json:"type"`
	VideoID       string `json:"videoId"`
	Title         string `json:"title"`
	Author        string `json:"author"`
	LengthSeconds int    `json:"lengthSeconds"`
	Description   string `json:"description"`
}

// videoResult is the wire shape of the mirror video-details payload.
type videoResult struct {
	VideoID       string   `json:"videoId"`
	Title         string   `json:"title"`
	Author        string   `json:"author"`
	LengthSeconds int      `json:"lengthSeconds"`
	ViewCount     int64    `json:"viewCount"`
	LikeCount     int64    `json:"likeCount"`
	Published     int64    `json:"published"`
	Keywords      []string `json:"keywords"`
	Description   string   `json:"description"`
	Captions      []struct {
		Label string `json:"label"`
	} `json:"captions"`
	AdaptiveFormats []struct {
		QualityLabel string `json:"qualityLabel"`
	} `json:"adaptiveFormats"`
}

// commentsResult is the wire shape of the mirror comments payload.
type commentsResult struct {
	CommentCount int64 `json:"commentCount"`
	Comments     []struct {
		Author    string `json:"author"`
		Content   string `json:"content"`
		LikeCount int64  `json:"likeCount"`
	} `json:"comments"`
	Continuation string `json:"continuation"`
}

// Search runs a video search across the mirror pool.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]models.SearchHit, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("type", "video")
	params.Set("sort_by", "relevance")

	payload, err := c.api.GetJSON(ctx, "/api/v1/search", params)
	if err != nil {
		return nil, fmt.Errorf("primary search: %w", err)
	}

	var results []searchResult
	if err := json.Unmarshal(payload, &results); err != nil {
		return nil, models.NewParseError("invidious.search", "(root)", err.Error())
	}

	hits := make([]models.SearchHit, 0, len(results))
	for _, r := range results {
		if r.Type != "" && r.Type != "video" {
			continue
		}
		if r.VideoID == "" {
			// Skip malformed entries rather than failing the whole page.
			c.logger.Debug("skipping search hit without videoId",
				logger.String("title", r.Title))
			continue
		}
		hits = append(hits, models.SearchHit{
			VideoID:       r.VideoID,
			Title:         r.Title,
			Author:        r.Author,
			LengthSeconds: r.LengthSeconds,
			Description:   r.Description,
		})
		if maxResults > 0 && len(hits) >= maxResults {
			break
		}
	}
	return hits, nil
}

// VideoDetails fetches full metadata for one video.
func (c *Client) VideoDetails(ctx context.Context, videoID string) (models.VideoMetadata, error) {
	payload, err := c.api.GetJSON(ctx, "/api/v1/videos/"+url.PathEscape(videoID), nil)
	if err != nil {
		return models.VideoMetadata{}, mapNotFound(err, fmt.Errorf("primary video details: %w", err))
	}

	var result videoResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return models.VideoMetadata{}, models.NewParseError("invidious.videos", "(root)", err.Error())
	}
	return metadataFromPrimary(result)
}

// Comments fetches one page of comments. pageToken is the continuation token
// from a previous page, empty for the first page.
func (c *Client) Comments(ctx context.Context, videoID string, order models.CommentOrder, pageToken string) (models.CommentPage, error) {
	params := url.Values{}
	switch order {
	case models.OrderRecent:
		params.Set("sort_by", "new")
	default:
		params.Set("sort_by", "top")
	}
	if pageToken != "" {
		params.Set("continuation", pageToken)
	}

	payload, err := c.api.GetJSON(ctx, "/api/v1/comments/"+url.PathEscape(videoID), params)
	if err != nil {
		return models.CommentPage{}, mapNotFound(err, fmt.Errorf("primary comments: %w", err))
	}

	var result commentsResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return models.CommentPage{}, models.NewParseError("invidious.comments", "(root)", err.Error())
	}

	page := models.CommentPage{NextPageToken: result.Continuation}
	for _, item := range result.Comments {
		if item.Content == "" {
			continue
		}
		page.Comments = append(page.Comments, models.Comment{
			Text:      item.Content,
			Author:    item.Author,
			LikeCount: item.LikeCount,
		})
	}
	return page, nil
}

// metadataFromPrimary maps the mirror wire shape onto the canonical metadata
// type. This is the single place the primary schema is interpreted.
func metadataFromPrimary(r videoResult) (models.VideoMetadata, error) {
	if r.VideoID == "" {
		return models.VideoMetadata{}, models.NewParseError("invidious.videos", "videoId", "missing")
	}
	if r.Title == "" {
		return models.VideoMetadata{}, models.NewParseError("invidious.videos", "title", "missing")
	}

	meta := models.VideoMetadata{
		VideoID:         r.VideoID,
		Title:           r.Title,
		DurationSeconds: r.LengthSeconds,
		ViewCount:       r.ViewCount,
		LikeCount:       r.LikeCount,
		ChannelTitle:    r.Author,
		Tags:            r.Keywords,
		Description:     r.Description,
		HasCaptions:     len(r.Captions) > 0,
		Provenance:      models.ProvenancePrimary,
	}
	if r.Published > 0 {
		meta.PublishedAt = time.Unix(r.Published, 0).UTC()
	}
	if len(r.AdaptiveFormats) > 0 {
		meta.Quality = r.AdaptiveFormats[0].QualityLabel
	}
	return meta, nil
}

// mapNotFound turns an upstream 404 into models.ErrNotFound; anything else
// passes through as wrapped.
func mapNotFound(err, wrapped error) error {
	var se *apiclient.StatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
		return models.ErrNotFound
	}
	return wrapped
}
