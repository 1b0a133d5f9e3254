// Package youtube adapts the official Data API, used as the fallback when the
// mirror pool is exhausted. It produces the same canonical types as the
// primary adapter, so pipelines never see which API answered.
package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/clipscout/clipscout/internal/logger"
	"github.com/clipscout/clipscout/internal/models"
	"github.com/clipscout/clipscout/internal/ratelimit"
)

const (
	// DefaultBaseURL is the official API root.
	DefaultBaseURL = "https://www.googleapis.com/youtube/v3"
	// DefaultTimeout bounds one fallback request.
	DefaultTimeout = 12 * time.Second
)

// Config configures the fallback client.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	// PageSize is the comment page size, capped at the API maximum of 100.
	PageSize int
	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// Client calls the official API directly. Unlike the mirror pool there is a
// single endpoint, so failures surface to the caller without failover.
type Client struct {
	apiKey   string
	baseURL  string
	pageSize int
	client   *http.Client
	limiter  *ratelimit.Limiter
	logger   logger.Logger
}

// New creates a fallback client. The API key must be non-empty; callers gate
// fallback use on Enabled().
func New(cfg Config, lim *ratelimit.Limiter, log logger.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.PageSize <= 0 || cfg.PageSize > 100 {
		cfg.PageSize = 100
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		apiKey:   cfg.APIKey,
		baseURL:  cfg.BaseURL,
		pageSize: cfg.PageSize,
		client:   client,
		limiter:  lim,
		logger:   log,
	}
}

// Enabled reports whether a key was configured.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if !c.Enabled() {
		return fmt.Errorf("fallback API not configured")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	params.Set("key", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("fallback request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return models.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("fallback API status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return models.NewParseError("youtube"+path, "(root)", err.Error())
	}
	return nil
}

type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			ChannelTitle string `json:"channelTitle"`
			Description  string `json:"description"`
		} `json:"snippet"`
	} `json:"items"`
}

// Search runs a video search against the official API.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]models.SearchHit, error) {
	if maxResults <= 0 {
		maxResults = 20
	}
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("q", query)
	params.Set("type", "video")
	params.Set("maxResults", strconv.Itoa(maxResults))

	var resp searchResponse
	if err := c.get(ctx, "/search", params, &resp); err != nil {
		return nil, fmt.Errorf("fallback search: %w", err)
	}

	hits := make([]models.SearchHit, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.ID.VideoID == "" {
			continue
		}
		hits = append(hits, models.SearchHit{
			VideoID:     item.ID.VideoID,
			Title:       item.Snippet.Title,
			Author:      item.Snippet.ChannelTitle,
			Description: item.Snippet.Description,
		})
	}
	return hits, nil
}

type videosResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title        string    `json:"title"`
			ChannelTitle string    `json:"channelTitle"`
			Description  string    `json:"description"`
			PublishedAt  time.Time `json:"publishedAt"`
			Tags         []string  `json:"tags"`
		} `json:"snippet"`
		ContentDetails struct {
			Duration   string `json:"duration"`
			Caption    string `json:"caption"`
			Definition string `json:"definition"`
		} `json:"contentDetails"`
		Statistics struct {
			ViewCount    string `json:"viewCount"`
			LikeCount    string `json:"likeCount"`
			CommentCount string `json:"commentCount"`
		} `json:"statistics"`
	} `json:"items"`
}

// VideoDetails fetches full metadata for one video from the official API.
func (c *Client) VideoDetails(ctx context.Context, videoID string) (models.VideoMetadata, error) {
	params := url.Values{}
	params.Set("part", "snippet,contentDetails,statistics")
	params.Set("id", videoID)

	var resp videosResponse
	if err := c.get(ctx, "/videos", params, &resp); err != nil {
		return models.VideoMetadata{}, fmt.Errorf("fallback video details: %w", err)
	}
	if len(resp.Items) == 0 {
		return models.VideoMetadata{}, models.ErrNotFound
	}
	return metadataFromFallback(resp)
}

// metadataFromFallback maps the official API shape onto the canonical
// metadata type. This is the single place the fallback schema is interpreted.
func metadataFromFallback(resp videosResponse) (models.VideoMetadata, error) {
	item := resp.Items[0]
	if item.ID == "" {
		return models.VideoMetadata{}, models.NewParseError("youtube.videos", "id", "missing")
	}
	if item.Snippet.Title == "" {
		return models.VideoMetadata{}, models.NewParseError("youtube.videos", "snippet.title", "missing")
	}

	duration, err := ParseISODuration(item.ContentDetails.Duration)
	if err != nil {
		return models.VideoMetadata{}, models.NewParseError("youtube.videos", "contentDetails.duration", err.Error())
	}

	return models.VideoMetadata{
		VideoID:         item.ID,
		Title:           item.Snippet.Title,
		DurationSeconds: int(duration / time.Second),
		ViewCount:       parseCount(item.Statistics.ViewCount),
		LikeCount:       parseCount(item.Statistics.LikeCount),
		CommentCount:    parseCount(item.Statistics.CommentCount),
		PublishedAt:     item.Snippet.PublishedAt,
		ChannelTitle:    item.Snippet.ChannelTitle,
		Tags:            item.Snippet.Tags,
		Description:     item.Snippet.Description,
		Quality:         item.ContentDetails.Definition,
		HasCaptions:     item.ContentDetails.Caption == "true",
		Provenance:      models.ProvenanceFallback,
	}, nil
}

// parseCount parses the official API's string-typed counters. Missing or
// malformed counters read as zero; callers treat zero as "unknown".
func parseCount(s string) int64 {
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

type commentThreadsResponse struct {
	Items []struct {
		Snippet struct {
			TopLevelComment struct {
				Snippet struct {
					TextDisplay       string `json:"textDisplay"`
					AuthorDisplayName string `json:"authorDisplayName"`
					LikeCount         int64  `json:"likeCount"`
				} `json:"snippet"`
			} `json:"topLevelComment"`
		} `json:"snippet"`
	} `json:"items"`
	NextPageToken string `json:"nextPageToken"`
}

// Comments fetches one page of top-level comments from the official API.
func (c *Client) Comments(ctx context.Context, videoID string, order models.CommentOrder, pageToken string) (models.CommentPage, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("videoId", videoID)
	params.Set("maxResults", strconv.Itoa(c.pageSize))
	params.Set("textFormat", "plainText")
	switch order {
	case models.OrderRecent:
		params.Set("order", "time")
	default:
		params.Set("order", "relevance")
	}
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}

	var resp commentThreadsResponse
	if err := c.get(ctx, "/commentThreads", params, &resp); err != nil {
		return models.CommentPage{}, fmt.Errorf("fallback comments: %w", err)
	}

	page := models.CommentPage{NextPageToken: resp.NextPageToken}
	for _, item := range resp.Items {
		snippet := item.Snippet.TopLevelComment.Snippet
		if snippet.TextDisplay == "" {
			continue
		}
		page.Comments = append(page.Comments, models.Comment{
			Text:      snippet.TextDisplay,
			Author:    snippet.AuthorDisplayName,
			LikeCount: snippet.LikeCount,
		})
	}
	return page, nil
}
