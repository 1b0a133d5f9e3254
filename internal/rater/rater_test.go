package rater_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipscout/clipscout/internal/config"
	"github.com/clipscout/clipscout/internal/logger"
	"github.com/clipscout/clipscout/internal/models"
	"github.com/clipscout/clipscout/internal/pipeline"
	"github.com/clipscout/clipscout/internal/queue"
	"github.com/clipscout/clipscout/internal/rater"
)

type fakeComments struct {
	pages  map[models.CommentOrder][]models.CommentPage
	err    error
	orders []models.CommentOrder
	calls  map[models.CommentOrder]int
}

func newFakeComments() *fakeComments {
	return &fakeComments{
		pages: map[models.CommentOrder][]models.CommentPage{},
		calls: map[models.CommentOrder]int{},
	}
}

func (f *fakeComments) Comments(_ context.Context, _ string, order models.CommentOrder, _ string) (models.CommentPage, error) {
	f.orders = append(f.orders, order)
	if f.err != nil {
		return models.CommentPage{}, f.err
	}
	pages := f.pages[order]
	idx := f.calls[order]
	f.calls[order]++
	if idx >= len(pages) {
		return models.CommentPage{}, nil
	}
	return pages[idx], nil
}

type fakeDiscards struct {
	discarded map[string]bool
}

func (f *fakeDiscards) WasDiscarded(_ context.Context, url string) bool { return f.discarded[url] }
func (f *fakeDiscards) MarkDiscarded(_ context.Context, url string) error {
	f.discarded[url] = true
	return nil
}

func testRaterConfig() config.RaterConfig {
	return config.RaterConfig{
		CommentTarget:    50,
		CommentPageSize:  100,
		MinCommentLength: 6,
		AcceptThreshold:  6.5,
		ConfidenceTarget: 50,
	}
}

func queuedCandidate(t *testing.T, store queue.Store, candidate models.VideoCandidate) {
	t.Helper()
	require.NoError(t, queue.AppendJSON(context.Background(), store, queue.DestinationRaw, candidate))
}

func richCandidate(id string) models.VideoCandidate {
	return models.VideoCandidate{
		VideoID:     id,
		Title:       "Heartwarming emotional reunion surprise",
		URL:         models.WatchURL(id),
		Category:    models.CategoryHeartwarming,
		ViewCount:   100000,
		LikeCount:   10000,
		Quality:     "hd",
		HasCaptions: true,
	}
}

func plainCandidate(id string) models.VideoCandidate {
	return models.VideoCandidate{
		VideoID:  id,
		Title:    "zzz",
		URL:      models.WatchURL(id),
		Category: models.CategoryHeartwarming,
	}
}

func commentsOf(texts ...string) []models.Comment {
	comments := make([]models.Comment, 0, len(texts))
	for _, text := range texts {
		comments = append(comments, models.Comment{Text: text})
	}
	return comments
}

func glowingComments(n int) []models.Comment {
	texts := make([]string, n)
	for i := range texts {
		texts[i] = "touching, cried real tears, so genuine, watched this again " + string(rune('a'+i%26)) + string(rune('a'+i/26))
	}
	return commentsOf(texts...)
}

func TestRateNextEmptyQueue(t *testing.T) {
	store := queue.NewMemoryStore()
	p := rater.New(store, newFakeComments(), nil, nil, pipeline.NewContext(100), nil, testRaterConfig(), logger.NewNopLogger())

	_, err := p.RateNext(context.Background())
	assert.ErrorIs(t, err, queue.ErrEmpty)
}

func TestRateNextAcceptsHighScore(t *testing.T) {
	ctx := context.Background()
	store := queue.NewMemoryStore()
	queuedCandidate(t, store, richCandidate("good1"))

	comments := newFakeComments()
	pageComments := commentsOf("the moment at 1:23 had me crying")
	pageComments = append(pageComments, glowingComments(50)...)
	comments.pages[models.OrderRelevance] = []models.CommentPage{{Comments: pageComments}}

	run := pipeline.NewContext(100)
	tracker := &fakeDiscards{discarded: map[string]bool{}}
	p := rater.New(store, comments, nil, tracker, run, nil, testRaterConfig(), logger.NewNopLogger())

	result, err := p.RateNext(ctx)
	require.NoError(t, err)
	assert.True(t, result.Accepted)
	assert.False(t, result.Skipped)
	require.NotNil(t, result.Score)
	assert.GreaterOrEqual(t, result.Score.FinalScore, 6.5)
	assert.InDelta(t, 1.0, result.Score.Confidence, 1e-9)

	// Verdict persisted, raw record removed.
	accepted, err := store.DequeueNext(ctx, queue.DestinationAccepted)
	require.NoError(t, err)
	var rated models.RatedVideo
	require.NoError(t, json.Unmarshal(accepted.Payload, &rated))
	assert.Equal(t, "good1", rated.VideoID)
	assert.True(t, rated.Score.Accepted)

	_, err = store.DequeueNext(ctx, queue.DestinationRaw)
	assert.ErrorIs(t, err, queue.ErrEmpty)

	counters := run.Counters()
	assert.Equal(t, 1, counters.Rated)
	assert.Equal(t, 1, counters.Accepted)
	assert.False(t, tracker.discarded[models.WatchURL("good1")])
}

func TestRateNextDiscardsLowScore(t *testing.T) {
	ctx := context.Background()
	store := queue.NewMemoryStore()
	queuedCandidate(t, store, plainCandidate("dull1"))

	comments := newFakeComments()
	comments.pages[models.OrderRelevance] = []models.CommentPage{
		{Comments: commentsOf("posted on a tuesday", "second view today", "nice camera work")},
	}

	run := pipeline.NewContext(100)
	tracker := &fakeDiscards{discarded: map[string]bool{}}
	p := rater.New(store, comments, nil, tracker, run, nil, testRaterConfig(), logger.NewNopLogger())

	result, err := p.RateNext(ctx)
	require.NoError(t, err)
	assert.False(t, result.Accepted)

	discarded, err := store.DequeueNext(ctx, queue.DestinationDiscarded)
	require.NoError(t, err)
	var record rater.DiscardRecord
	require.NoError(t, json.Unmarshal(discarded.Payload, &record))
	assert.Equal(t, "dull1", record.VideoID)
	assert.Less(t, record.Score.FinalScore, 6.5)

	_, err = store.DequeueNext(ctx, queue.DestinationRaw)
	assert.ErrorIs(t, err, queue.ErrEmpty)

	assert.True(t, tracker.discarded[models.WatchURL("dull1")])
	assert.Equal(t, 1, run.Counters().Discarded)
}

func TestRateNextDiscardRecordingDisabled(t *testing.T) {
	ctx := context.Background()
	store := queue.NewMemoryStore()
	queuedCandidate(t, store, plainCandidate("dull2"))

	comments := newFakeComments()
	comments.pages[models.OrderRelevance] = []models.CommentPage{
		{Comments: commentsOf("posted on a tuesday")},
	}

	cfg := testRaterConfig()
	off := false
	cfg.RecordDiscards = &off
	p := rater.New(store, comments, nil, nil, pipeline.NewContext(100), nil, cfg, logger.NewNopLogger())

	result, err := p.RateNext(ctx)
	require.NoError(t, err)
	assert.False(t, result.Accepted)

	_, err = store.DequeueNext(ctx, queue.DestinationDiscarded)
	assert.ErrorIs(t, err, queue.ErrEmpty)
	_, err = store.DequeueNext(ctx, queue.DestinationRaw)
	assert.ErrorIs(t, err, queue.ErrEmpty)
}

func TestRateNextSkipsPreviouslyDiscardedURL(t *testing.T) {
	ctx := context.Background()
	store := queue.NewMemoryStore()
	candidate := richCandidate("rerun1")
	queuedCandidate(t, store, candidate)

	tracker := &fakeDiscards{discarded: map[string]bool{candidate.URL: true}}
	comments := newFakeComments()
	p := rater.New(store, comments, nil, tracker, pipeline.NewContext(100), nil, testRaterConfig(), logger.NewNopLogger())

	result, err := p.RateNext(ctx)
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Empty(t, comments.orders)

	_, err = store.DequeueNext(ctx, queue.DestinationRaw)
	assert.ErrorIs(t, err, queue.ErrEmpty)
}

func TestRateNextDeduplicatesAndDropsShortComments(t *testing.T) {
	ctx := context.Background()
	store := queue.NewMemoryStore()
	queuedCandidate(t, store, plainCandidate("dup1"))

	comments := newFakeComments()
	comments.pages[models.OrderRelevance] = []models.CommentPage{
		{Comments: commentsOf("great video", "great video", "lovely scenes", "ok", "nice!")},
	}

	p := rater.New(store, comments, nil, nil, pipeline.NewContext(100), nil, testRaterConfig(), logger.NewNopLogger())

	result, err := p.RateNext(ctx)
	require.NoError(t, err)
	// Five fetched: one exact duplicate and two under the length floor.
	assert.Equal(t, 2, result.Score.CommentCount)
}

func TestRateNextSecondPassOnShortSample(t *testing.T) {
	ctx := context.Background()
	store := queue.NewMemoryStore()
	queuedCandidate(t, store, plainCandidate("short1"))

	comments := newFakeComments()
	comments.pages[models.OrderRelevance] = []models.CommentPage{
		{Comments: commentsOf("relevance comment one")},
	}
	comments.pages[models.OrderRecent] = []models.CommentPage{
		{Comments: commentsOf("recent comment one", "relevance comment one")},
	}

	p := rater.New(store, comments, nil, nil, pipeline.NewContext(100), nil, testRaterConfig(), logger.NewNopLogger())

	result, err := p.RateNext(ctx)
	require.NoError(t, err)
	assert.Contains(t, comments.orders, models.OrderRelevance)
	assert.Contains(t, comments.orders, models.OrderRecent)
	// The overlapping comment is deduplicated across passes.
	assert.Equal(t, 2, result.Score.CommentCount)
}

func TestRateNextSecondPassWhenFirstEmpty(t *testing.T) {
	ctx := context.Background()
	store := queue.NewMemoryStore()
	queuedCandidate(t, store, plainCandidate("empty1"))

	// Relevance ordering yields nothing for this video; the recency pass
	// must still run.
	comments := newFakeComments()
	comments.pages[models.OrderRecent] = []models.CommentPage{
		{Comments: commentsOf("only surfaced under recency ordering")},
	}

	p := rater.New(store, comments, nil, nil, pipeline.NewContext(100), nil, testRaterConfig(), logger.NewNopLogger())

	result, err := p.RateNext(ctx)
	require.NoError(t, err)
	assert.Contains(t, comments.orders, models.OrderRecent)
	assert.Equal(t, 1, result.Score.CommentCount)
}

func TestRateNextKeepsRecordOnCommentFailure(t *testing.T) {
	ctx := context.Background()
	store := queue.NewMemoryStore()
	queuedCandidate(t, store, richCandidate("retry1"))

	comments := newFakeComments()
	comments.err = errors.New("all instances failed")

	p := rater.New(store, comments, nil, nil, pipeline.NewContext(100), nil, testRaterConfig(), logger.NewNopLogger())

	_, err := p.RateNext(ctx)
	require.Error(t, err)

	// Still queued for a later retry.
	n, lenErr := store.Len(ctx, queue.DestinationRaw)
	require.NoError(t, lenErr)
	assert.Equal(t, 1, n)
}

func TestRateNextFallsBackForComments(t *testing.T) {
	ctx := context.Background()
	store := queue.NewMemoryStore()
	queuedCandidate(t, store, plainCandidate("fb1"))

	primary := newFakeComments()
	primary.err = errors.New("all instances failed")
	fallback := newFakeComments()
	fallback.pages[models.OrderRelevance] = []models.CommentPage{
		{Comments: commentsOf("fallback comment here")},
	}

	p := rater.New(store, primary, fallback, nil, pipeline.NewContext(100), nil, testRaterConfig(), logger.NewNopLogger())

	result, err := p.RateNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Score.CommentCount)
}

func TestRateNextWritesVerdictBeforeRemoving(t *testing.T) {
	ctx := context.Background()
	inner := queue.NewMemoryStore()
	store := &failingStore{MemoryStore: inner, failDest: queue.DestinationAccepted}
	queuedCandidate(t, inner, richCandidate("crash1"))

	comments := newFakeComments()
	comments.pages[models.OrderRelevance] = []models.CommentPage{{Comments: glowingComments(50)}}

	p := rater.New(store, comments, nil, nil, pipeline.NewContext(100), nil, testRaterConfig(), logger.NewNopLogger())

	_, err := p.RateNext(ctx)
	require.Error(t, err)

	// The persist failed, so the raw record must survive.
	n, lenErr := inner.Len(ctx, queue.DestinationRaw)
	require.NoError(t, lenErr)
	assert.Equal(t, 1, n)
}

func TestRateNextPersistsMoments(t *testing.T) {
	ctx := context.Background()
	store := queue.NewMemoryStore()
	queuedCandidate(t, store, richCandidate("mom1"))

	comments := newFakeComments()
	pageComments := commentsOf("1:23 is the most touching part, tears")
	pageComments = append(pageComments, glowingComments(50)...)
	comments.pages[models.OrderRelevance] = []models.CommentPage{{Comments: pageComments}}

	p := rater.New(store, comments, nil, nil, pipeline.NewContext(100), nil, testRaterConfig(), logger.NewNopLogger())

	result, err := p.RateNext(ctx)
	require.NoError(t, err)
	require.True(t, result.Accepted)
	assert.Positive(t, result.Score.MomentCount)

	item, err := store.DequeueNext(ctx, queue.DestinationMoments)
	require.NoError(t, err)
	var moment models.Moment
	require.NoError(t, json.Unmarshal(item.Payload, &moment))
	assert.Equal(t, "mom1", moment.VideoID)
	assert.Equal(t, "1:23", moment.Timestamp)
}

func TestRateNextDropsCorruptRecord(t *testing.T) {
	ctx := context.Background()
	store := queue.NewMemoryStore()
	require.NoError(t, store.Append(ctx, queue.DestinationRaw, json.RawMessage(`not json`)))

	p := rater.New(store, newFakeComments(), nil, nil, pipeline.NewContext(100), nil, testRaterConfig(), logger.NewNopLogger())

	_, err := p.RateNext(ctx)
	require.Error(t, err)

	_, err = store.DequeueNext(ctx, queue.DestinationRaw)
	assert.ErrorIs(t, err, queue.ErrEmpty)
}

type failingStore struct {
	*queue.MemoryStore
	failDest queue.Destination
}

func (s *failingStore) Append(ctx context.Context, dest queue.Destination, payload json.RawMessage) error {
	if dest == s.failDest {
		return errors.New("append failed")
	}
	return s.MemoryStore.Append(ctx, dest, payload)
}
