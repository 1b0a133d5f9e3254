// Package rater implements the rating pipeline: pull the next queued
// candidate, sample its comments, score it against the category rules, and
// persist the verdict. The queue record is only removed after the verdict
// has been written, so a crash mid-rating re-processes instead of losing
// the video.
package rater

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/clipscout/clipscout/internal/config"
	"github.com/clipscout/clipscout/internal/logger"
	"github.com/clipscout/clipscout/internal/models"
	"github.com/clipscout/clipscout/internal/pipeline"
	"github.com/clipscout/clipscout/internal/queue"
	"github.com/clipscout/clipscout/internal/scoring"
)

// CommentSource lists comments for a video. Both upstream adapters satisfy it.
type CommentSource interface {
	Comments(ctx context.Context, videoID string, order models.CommentOrder, pageToken string) (models.CommentPage, error)
}

// DiscardTracker remembers URLs rejected by earlier rating passes.
type DiscardTracker interface {
	WasDiscarded(ctx context.Context, url string) bool
	MarkDiscarded(ctx context.Context, url string) error
}

// Recorder receives rating outcomes, implemented by the metrics package.
type Recorder interface {
	ObserveScore(category string, score float64, accepted bool)
}

// maxCommentPages bounds the pagination loop per ordering pass.
const maxCommentPages = 10

// MomentLimit caps how many moments are persisted per accepted video.
const MomentLimit = 10

// Result is the outcome of one RateNext call.
type Result struct {
	VideoID    string              `json:"video_id"`
	URL        string              `json:"url"`
	Category   models.Category     `json:"category"`
	Skipped    bool                `json:"skipped"`
	SkipReason string              `json:"skip_reason,omitempty"`
	Accepted   bool                `json:"accepted"`
	Score      *models.ScoreResult `json:"score,omitempty"`
}

// DiscardRecord is what gets written to the discarded destination when
// discard recording is enabled.
type DiscardRecord struct {
	models.VideoCandidate
	Score       models.ScoreResult `json:"score"`
	DiscardedAt time.Time          `json:"discarded_at"`
}

// Pipeline rates queued candidates one at a time.
type Pipeline struct {
	store    queue.Store
	primary  CommentSource
	fallback CommentSource
	tracker  DiscardTracker
	run      *pipeline.Context
	recorder Recorder
	cfg      config.RaterConfig
	weights  scoring.Weights
	logger   logger.Logger
	now      func() time.Time
}

// New builds a rating pipeline. fallback, tracker and recorder may be nil.
func New(
	store queue.Store,
	primary CommentSource,
	fallback CommentSource,
	tracker DiscardTracker,
	run *pipeline.Context,
	recorder Recorder,
	cfg config.RaterConfig,
	log logger.Logger,
) *Pipeline {
	return &Pipeline{
		store:    store,
		primary:  primary,
		fallback: fallback,
		tracker:  tracker,
		run:      run,
		recorder: recorder,
		cfg:      cfg,
		weights:  scoring.DefaultWeights(),
		logger:   log,
		now:      time.Now,
	}
}

// RateNext processes the oldest queued candidate. queue.ErrEmpty when there
// is nothing to rate. A comment-fetch failure leaves the record queued and
// returns the error, so the next call retries it.
func (p *Pipeline) RateNext(ctx context.Context) (*Result, error) {
	item, err := p.store.DequeueNext(ctx, queue.DestinationRaw)
	if err != nil {
		return nil, err
	}

	var candidate models.VideoCandidate
	if err := json.Unmarshal(item.Payload, &candidate); err != nil {
		// A corrupt record would wedge the queue head forever; drop it.
		p.run.Log("rater", "error", fmt.Sprintf("dropping corrupt queue record: %v", err))
		p.logger.Error("corrupt queue record", logger.Error(err))
		if removeErr := p.store.Remove(ctx, queue.DestinationRaw, item); removeErr != nil {
			return nil, fmt.Errorf("remove corrupt record: %w", removeErr)
		}
		return nil, fmt.Errorf("corrupt queue record: %w", err)
	}

	p.run.SetStatus(fmt.Sprintf("rating %s (%s)", candidate.VideoID, candidate.Category))

	if p.tracker != nil && p.tracker.WasDiscarded(ctx, candidate.URL) {
		p.run.Log("rater", "info", fmt.Sprintf("skipping %s: url discarded earlier", candidate.VideoID))
		if err := p.store.Remove(ctx, queue.DestinationRaw, item); err != nil {
			return nil, fmt.Errorf("remove skipped record: %w", err)
		}
		return &Result{
			VideoID:    candidate.VideoID,
			URL:        candidate.URL,
			Category:   candidate.Category,
			Skipped:    true,
			SkipReason: "previously discarded",
		}, nil
	}

	sample, err := p.sampleComments(ctx, candidate.VideoID)
	if err != nil {
		p.run.Log("rater", "error", fmt.Sprintf("comments for %s failed, will retry: %v", candidate.VideoID, err))
		p.logger.Error("comment fetch failed",
			logger.String("video_id", candidate.VideoID),
			logger.Error(err),
		)
		return nil, err
	}

	score := scoring.Score(candidate, sample, p.weights, p.cfg.ConfidenceTarget, p.now().UTC())
	moments := scoring.ExtractMoments(candidate, sample, MomentLimit)
	score.MomentCount = len(moments)
	score.Accepted = score.FinalScore >= p.cfg.AcceptThreshold

	if err := p.persist(ctx, item, candidate, score, moments); err != nil {
		return nil, err
	}

	p.run.AddRated(1)
	if score.Accepted {
		p.run.AddAccepted(1)
	} else {
		p.run.AddDiscarded(1)
	}
	if p.recorder != nil {
		p.recorder.ObserveScore(string(candidate.Category), score.FinalScore, score.Accepted)
	}

	verdict := "discarded"
	if score.Accepted {
		verdict = "accepted"
	}
	p.run.Log("rater", "info", fmt.Sprintf("%s %s: score %.2f (confidence %.2f, %d comments, %d moments)",
		verdict, candidate.VideoID, score.FinalScore, score.Confidence, score.CommentCount, score.MomentCount))
	p.logger.Info("video rated",
		logger.String("video_id", candidate.VideoID),
		logger.String("category", string(candidate.Category)),
		logger.Float64("score", score.FinalScore),
		logger.Float64("confidence", score.Confidence),
		logger.Bool("accepted", score.Accepted),
	)

	return &Result{
		VideoID:  candidate.VideoID,
		URL:      candidate.URL,
		Category: candidate.Category,
		Accepted: score.Accepted,
		Score:    &score,
	}, nil
}

// persist writes the verdict to its destination first and removes the raw
// record only afterwards.
func (p *Pipeline) persist(ctx context.Context, item *queue.Item, candidate models.VideoCandidate, score models.ScoreResult, moments []models.Moment) error {
	if score.Accepted {
		rated := models.RatedVideo{VideoCandidate: candidate, Score: score}
		if err := queue.AppendJSON(ctx, p.store, queue.DestinationAccepted, rated); err != nil {
			return fmt.Errorf("persist accepted %s: %w", candidate.VideoID, err)
		}
		for _, moment := range moments {
			if err := queue.AppendJSON(ctx, p.store, queue.DestinationMoments, moment); err != nil {
				return fmt.Errorf("persist moment for %s: %w", candidate.VideoID, err)
			}
		}
	} else {
		if p.cfg.RecordDiscardsEnabled() {
			record := DiscardRecord{VideoCandidate: candidate, Score: score, DiscardedAt: p.now().UTC()}
			if err := queue.AppendJSON(ctx, p.store, queue.DestinationDiscarded, record); err != nil {
				return fmt.Errorf("persist discarded %s: %w", candidate.VideoID, err)
			}
		}
		if p.tracker != nil {
			if err := p.tracker.MarkDiscarded(ctx, candidate.URL); err != nil {
				p.logger.Warn("failed to mark url as discarded",
					logger.String("url", candidate.URL),
					logger.Error(err),
				)
			}
		}
	}

	if err := p.store.Remove(ctx, queue.DestinationRaw, item); err != nil {
		return fmt.Errorf("remove rated %s from queue: %w", candidate.VideoID, err)
	}
	return nil
}

// sampleComments builds the deduplicated sample: a relevance-ordered pass,
// then a recency-ordered pass only if the target was not met.
func (p *Pipeline) sampleComments(ctx context.Context, videoID string) (models.CommentSample, error) {
	target := p.cfg.CommentTarget
	minLen := p.cfg.MinCommentLength

	seen := make(map[string]struct{}, target)
	sample := models.CommentSample{TargetCount: target}

	for _, order := range []models.CommentOrder{models.OrderRelevance, models.OrderRecent} {
		if len(sample.Comments) >= target {
			break
		}
		if err := p.fetchPass(ctx, videoID, order, target, minLen, seen, &sample); err != nil {
			// A failed second pass still leaves a usable sample.
			if order == models.OrderRecent && len(sample.Comments) > 0 {
				p.logger.Warn("recency pass failed, scoring with partial sample",
					logger.String("video_id", videoID),
					logger.Int("comments", len(sample.Comments)),
					logger.Error(err),
				)
				break
			}
			return models.CommentSample{}, err
		}
	}

	return sample, nil
}

func (p *Pipeline) fetchPass(
	ctx context.Context,
	videoID string,
	order models.CommentOrder,
	target, minLen int,
	seen map[string]struct{},
	sample *models.CommentSample,
) error {
	pageToken := ""

	for page := 0; page < maxCommentPages && len(sample.Comments) < target; page++ {
		p.run.AddAPICalls(1)
		result, err := p.comments(ctx, videoID, order, pageToken)
		if err != nil {
			return err
		}

		sample.FetchedCount += len(result.Comments)

		for _, c := range result.Comments {
			if len(sample.Comments) >= target {
				break
			}
			if len(c.Text) < minLen {
				continue
			}
			if _, dup := seen[c.Text]; dup {
				continue
			}
			seen[c.Text] = struct{}{}
			sample.Comments = append(sample.Comments, models.SampledComment{
				Text:      c.Text,
				Sentiment: scoring.ClassifySentiment(c.Text),
			})
		}

		pageToken = result.NextPageToken
		if pageToken == "" {
			break
		}
	}

	return nil
}

func (p *Pipeline) comments(ctx context.Context, videoID string, order models.CommentOrder, pageToken string) (models.CommentPage, error) {
	page, err := p.primary.Comments(ctx, videoID, order, pageToken)
	if err == nil {
		return page, nil
	}
	if p.fallback == nil {
		return models.CommentPage{}, err
	}

	p.run.AddAPICalls(1)
	page, fbErr := p.fallback.Comments(ctx, videoID, order, pageToken)
	if fbErr != nil {
		return models.CommentPage{}, fmt.Errorf("primary: %w; fallback: %w", err, fbErr)
	}
	return page, nil
}
