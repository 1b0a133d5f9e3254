// Package collector implements the discovery pipeline: search the upstream
// APIs with category phrases, validate each hit against the short-form
// criteria, and queue the survivors for rating.
package collector

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/clipscout/clipscout/internal/config"
	"github.com/clipscout/clipscout/internal/logger"
	"github.com/clipscout/clipscout/internal/models"
	"github.com/clipscout/clipscout/internal/pipeline"
	"github.com/clipscout/clipscout/internal/queue"
	"github.com/clipscout/clipscout/internal/scoring"
)

// VideoSource is the slice of the upstream clients the collector needs. Both
// the mirror-pool adapter and the official-API adapter satisfy it.
type VideoSource interface {
	Search(ctx context.Context, query string, maxResults int) ([]models.SearchHit, error)
	VideoDetails(ctx context.Context, videoID string) (models.VideoMetadata, error)
}

// SeenTracker remembers videos queued by earlier runs.
type SeenTracker interface {
	Seen(ctx context.Context, videoID string) bool
	MarkSeen(ctx context.Context, videoID string) error
}

// Recorder receives per-candidate counters, implemented by the metrics package.
type Recorder interface {
	IncCollected(category string)
	IncRejected(reason string)
}

// Rejection reasons, also used as metric labels.
const (
	ReasonTooShort  = "too_short"
	ReasonTooLong   = "too_long"
	ReasonLowViews  = "low_views"
	ReasonNoKeyword = "no_keyword_match"
	ReasonDuplicate = "duplicate"
)

// StepStatus reports where a run stands after one Step.
type StepStatus string

const (
	StatusInProgress StepStatus = "in_progress"
	StatusDone       StepStatus = "done"
	StatusFailed     StepStatus = "failed"
)

// StepResult summarizes one search round.
type StepResult struct {
	Status   StepStatus `json:"status"`
	Category string     `json:"category"`
	Query    string     `json:"query"`
	Found    int        `json:"found"`
	Target   int        `json:"target"`
	Attempts int        `json:"attempts"`
	Message  string     `json:"message,omitempty"`
}

// Pipeline drives collection runs. One run at a time; a run survives across
// Step calls so an operator can drive it round by round.
type Pipeline struct {
	primary  VideoSource
	fallback VideoSource
	store    queue.Store
	tracker  SeenTracker
	run      *pipeline.Context
	recorder Recorder
	cfg      config.CollectorConfig
	logger   logger.Logger

	sleep      func(ctx context.Context, d time.Duration)
	pickPhrase func(pool []string) string

	// Active run state, reset by Start.
	runID      string
	target     int
	categories []models.Category
	roundIndex int
	attempts   int
	found      int
	checked    map[string]struct{}
}

// New builds a collection pipeline. fallback and tracker may be nil, recorder
// may be nil.
func New(
	primary VideoSource,
	fallback VideoSource,
	store queue.Store,
	tracker SeenTracker,
	run *pipeline.Context,
	recorder Recorder,
	cfg config.CollectorConfig,
	log logger.Logger,
) *Pipeline {
	return &Pipeline{
		primary:  primary,
		fallback: fallback,
		store:    store,
		tracker:  tracker,
		run:      run,
		recorder: recorder,
		cfg:      cfg,
		logger:   log,
		sleep:    sleepCtx,
		pickPhrase: func(pool []string) string {
			return pool[rand.Intn(len(pool))]
		},
	}
}

// Start begins a new run. category models.CategoryMixed rotates through every
// concrete category round-robin.
func (p *Pipeline) Start(target int, category models.Category) error {
	if target <= 0 {
		return fmt.Errorf("collection target must be positive, got %d", target)
	}
	if !category.Valid() {
		return fmt.Errorf("unknown category %q", category)
	}

	if category == models.CategoryMixed {
		p.categories = []models.Category{
			models.CategoryHeartwarming,
			models.CategoryFunny,
			models.CategoryTraumatic,
		}
	} else {
		p.categories = []models.Category{category}
	}

	p.runID = uuid.NewString()
	p.target = target
	p.roundIndex = 0
	p.attempts = 0
	p.found = 0
	p.checked = make(map[string]struct{})

	p.run.SetStatus(fmt.Sprintf("collecting %s, target %d", category, target))
	p.run.Log("collector", "info", fmt.Sprintf("run %s started: category=%s target=%d", p.runID, category, target))
	p.logger.Info("collection run started",
		logger.String("run_id", p.runID),
		logger.String("category", string(category)),
		logger.Int("target", target),
	)
	return nil
}

// Active reports whether a run was started and is not finished.
func (p *Pipeline) Active() bool {
	return p.runID != "" && p.found < p.target && p.attempts < p.cfg.AttemptCap
}

// RunID returns the identifier of the current (or last) run.
func (p *Pipeline) RunID() string {
	return p.runID
}

// Step executes one search round: pick the round's category and a random
// phrase from its pool, search, validate each hit, queue survivors. A failed
// search consumes the attempt and the run continues. The run finishes when the
// target is met or the attempt cap is spent; running out of attempts with
// partial results is still Done.
func (p *Pipeline) Step(ctx context.Context) (StepResult, error) {
	if p.runID == "" {
		return StepResult{Status: StatusFailed, Message: "no active run"}, fmt.Errorf("no active run")
	}
	if p.found >= p.target {
		return p.finish(StatusDone, "target reached"), nil
	}
	if p.attempts >= p.cfg.AttemptCap {
		return p.finish(StatusDone, "attempt cap reached"), nil
	}

	category := p.categories[p.roundIndex%len(p.categories)]
	p.roundIndex++
	p.attempts++

	rules := scoring.RulesFor(category)
	query := p.pickPhrase(rules.SearchPhrases)

	p.run.SetStatus(fmt.Sprintf("searching %s: %q (%d/%d found)", category, query, p.found, p.target))

	hits, err := p.search(ctx, query)
	if err != nil {
		if ctx.Err() != nil {
			return StepResult{Status: StatusFailed, Message: ctx.Err().Error()}, ctx.Err()
		}
		// A dead round still spends its attempt; the next round draws a
		// fresh phrase instead of aborting the run.
		p.run.Log("collector", "warn", fmt.Sprintf("search %q failed, skipping round: %v", query, err))
		p.logger.Warn("search failed on all sources, skipping round",
			logger.String("run_id", p.runID),
			logger.String("query", query),
			logger.Error(err),
		)
		hits = nil
	}

	for _, hit := range hits {
		if p.found >= p.target {
			break
		}
		if ctx.Err() != nil {
			return StepResult{Status: StatusFailed, Message: ctx.Err().Error()}, ctx.Err()
		}

		p.checkCandidate(ctx, hit, category, query)
		p.sleep(ctx, p.cfg.ItemDelay)
	}

	p.sleep(ctx, p.cfg.RoundDelay)

	status := StatusInProgress
	message := ""
	if p.found >= p.target {
		status = StatusDone
		message = "target reached"
		p.finish(status, message)
	} else if p.attempts >= p.cfg.AttemptCap {
		status = StatusDone
		message = "attempt cap reached"
		p.finish(status, message)
	} else if err != nil {
		message = "search failed, continuing"
	}

	return StepResult{
		Status:   status,
		Category: string(category),
		Query:    query,
		Found:    p.found,
		Target:   p.target,
		Attempts: p.attempts,
		Message:  message,
	}, nil
}

// Collect runs Steps until the run completes. Partial results count as
// success; only a cancelled context fails the run.
func (p *Pipeline) Collect(ctx context.Context, target int, category models.Category) (int, error) {
	if err := p.Start(target, category); err != nil {
		return 0, err
	}

	for {
		result, err := p.Step(ctx)
		if err != nil {
			return p.found, err
		}
		if result.Status == StatusDone {
			return p.found, nil
		}
	}
}

func (p *Pipeline) finish(status StepStatus, message string) StepResult {
	result := StepResult{
		Status:   status,
		Found:    p.found,
		Target:   p.target,
		Attempts: p.attempts,
		Message:  message,
	}
	p.run.SetStatus(fmt.Sprintf("collection %s: %s (%d/%d)", status, message, p.found, p.target))
	p.run.Log("collector", "info", fmt.Sprintf("run %s %s: %s", p.runID, status, message))
	p.runID = ""
	return result
}

// search tries the mirror pool first and falls back to the official API only
// when the whole pool is exhausted.
func (p *Pipeline) search(ctx context.Context, query string) ([]models.SearchHit, error) {
	p.run.AddAPICalls(1)
	hits, err := p.primary.Search(ctx, query, p.cfg.SearchMaxResults)
	if err == nil {
		return hits, nil
	}
	if p.fallback == nil {
		return nil, err
	}

	p.run.Log("collector", "warn", fmt.Sprintf("primary search failed, using fallback: %v", err))
	p.logger.Warn("primary search failed, trying fallback",
		logger.String("query", query),
		logger.Error(err),
	)

	p.run.AddAPICalls(1)
	hits, fbErr := p.fallback.Search(ctx, query, p.cfg.SearchMaxResults)
	if fbErr != nil {
		return nil, fmt.Errorf("primary: %w; fallback: %w", err, fbErr)
	}
	return hits, nil
}

func (p *Pipeline) details(ctx context.Context, videoID string) (models.VideoMetadata, error) {
	p.run.AddAPICalls(1)
	meta, err := p.primary.VideoDetails(ctx, videoID)
	if err == nil {
		return meta, nil
	}
	if p.fallback == nil {
		return models.VideoMetadata{}, err
	}

	p.run.AddAPICalls(1)
	meta, fbErr := p.fallback.VideoDetails(ctx, videoID)
	if fbErr != nil {
		return models.VideoMetadata{}, fmt.Errorf("primary: %w; fallback: %w", err, fbErr)
	}
	return meta, nil
}

func (p *Pipeline) checkCandidate(ctx context.Context, hit models.SearchHit, category models.Category, query string) {
	// Different rounds often return overlapping hits; each video is checked
	// at most once per run regardless of the tracker backend.
	if _, dup := p.checked[hit.VideoID]; dup {
		return
	}
	p.checked[hit.VideoID] = struct{}{}

	p.run.AddChecked(1)

	if p.tracker != nil && p.tracker.Seen(ctx, hit.VideoID) {
		p.reject(hit.VideoID, ReasonDuplicate, "already queued by an earlier run")
		return
	}

	meta, err := p.details(ctx, hit.VideoID)
	if err != nil {
		p.run.Log("collector", "warn", fmt.Sprintf("details for %s failed: %v", hit.VideoID, err))
		p.logger.Warn("metadata fetch failed",
			logger.String("video_id", hit.VideoID),
			logger.Error(err),
		)
		return
	}
	p.run.AddCaptions(meta.HasCaptions)

	if reason, detail, ok := p.validate(meta, category); !ok {
		p.reject(meta.VideoID, reason, detail)
		return
	}

	candidate := models.CandidateFromMetadata(meta, category, query, p.runID, time.Now().UTC())
	if err := queue.AppendJSON(ctx, p.store, queue.DestinationRaw, candidate); err != nil {
		p.run.Log("collector", "error", fmt.Sprintf("queueing %s failed: %v", meta.VideoID, err))
		p.logger.Error("failed to queue candidate",
			logger.String("video_id", meta.VideoID),
			logger.Error(err),
		)
		return
	}
	if p.tracker != nil {
		if err := p.tracker.MarkSeen(ctx, meta.VideoID); err != nil {
			p.logger.Warn("failed to mark candidate as seen",
				logger.String("video_id", meta.VideoID),
				logger.Error(err),
			)
		}
	}

	p.found++
	p.run.AddFound(1)
	if p.recorder != nil {
		p.recorder.IncCollected(string(category))
	}
	p.run.Log("collector", "info", fmt.Sprintf("queued %s (%s, %ds, %d views)",
		meta.VideoID, meta.Title, meta.DurationSeconds, meta.ViewCount))
	p.logger.Info("candidate queued",
		logger.String("run_id", p.runID),
		logger.String("video_id", meta.VideoID),
		logger.String("category", string(category)),
		logger.String("provenance", string(meta.Provenance)),
	)
}

// validate applies the short-form criteria. Duration bounds and the view
// floor are inclusive.
func (p *Pipeline) validate(meta models.VideoMetadata, category models.Category) (reason, detail string, ok bool) {
	switch {
	case meta.DurationSeconds < p.cfg.MinDurationSeconds:
		return ReasonTooShort, fmt.Sprintf("duration %ds below %ds", meta.DurationSeconds, p.cfg.MinDurationSeconds), false
	case meta.DurationSeconds > p.cfg.MaxDurationSeconds:
		return ReasonTooLong, fmt.Sprintf("duration %ds above %ds", meta.DurationSeconds, p.cfg.MaxDurationSeconds), false
	case meta.ViewCount < p.cfg.MinViewCount:
		return ReasonLowViews, fmt.Sprintf("%d views below %d", meta.ViewCount, p.cfg.MinViewCount), false
	}

	rules := scoring.RulesFor(category)
	if _, matched := rules.MatchesTitle(meta.Title, meta.Description); !matched {
		return ReasonNoKeyword, fmt.Sprintf("no %s keyword in title or description", category), false
	}
	return "", "", true
}

func (p *Pipeline) reject(videoID, reason, detail string) {
	p.run.AddRejected(1)
	if p.recorder != nil {
		p.recorder.IncRejected(reason)
	}
	p.run.Log("collector", "debug", fmt.Sprintf("rejected %s: %s (%s)", videoID, reason, detail))
	p.logger.Debug("candidate rejected",
		logger.String("video_id", videoID),
		logger.String("reason", reason),
		logger.String("detail", detail),
	)
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
