package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipscout/clipscout/internal/api"
	"github.com/clipscout/clipscout/internal/collector"
	"github.com/clipscout/clipscout/internal/config"
	"github.com/clipscout/clipscout/internal/logger"
	"github.com/clipscout/clipscout/internal/models"
	"github.com/clipscout/clipscout/internal/pipeline"
	"github.com/clipscout/clipscout/internal/queue"
	"github.com/clipscout/clipscout/internal/rater"
	"github.com/clipscout/clipscout/internal/registry"
)

type staticSource struct {
	hits []models.SearchHit
	meta map[string]models.VideoMetadata
}

func (s *staticSource) Search(context.Context, string, int) ([]models.SearchHit, error) {
	return s.hits, nil
}

func (s *staticSource) VideoDetails(_ context.Context, id string) (models.VideoMetadata, error) {
	meta, ok := s.meta[id]
	if !ok {
		return models.VideoMetadata{}, models.ErrNotFound
	}
	return meta, nil
}

type staticComments struct {
	comments []models.Comment
}

func (s *staticComments) Comments(context.Context, string, models.CommentOrder, string) (models.CommentPage, error) {
	return models.CommentPage{Comments: s.comments}, nil
}

type recordedDepths struct {
	byDest map[string]int
}

func (r *recordedDepths) SetQueueDepth(destination string, depth int) {
	r.byDest[destination] = depth
}

func testEngine(t *testing.T, source *staticSource, comments *staticComments, store queue.Store) (*gin.Engine, *pipeline.Context) {
	engine, run, _ := testEngineWithDepths(t, source, comments, store)
	return engine, run
}

func testEngineWithDepths(t *testing.T, source *staticSource, comments *staticComments, store queue.Store) (*gin.Engine, *pipeline.Context, *recordedDepths) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.NewNopLogger()
	run := pipeline.NewContext(100)

	reg, err := registry.New([]string{"https://iv.example.com"}, registry.Config{}, log)
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Collector = config.CollectorConfig{
		AttemptCap:         2,
		MinDurationSeconds: 90,
		MaxDurationSeconds: 600,
		MinViewCount:       10000,
		SearchMaxResults:   20,
	}
	cfg.Rater = config.RaterConfig{
		CommentTarget:    50,
		MinCommentLength: 6,
		AcceptThreshold:  6.5,
		ConfidenceTarget: 50,
	}

	col := collector.New(source, nil, store, nil, run, nil, cfg.Collector, log)
	rat := rater.New(store, comments, nil, nil, run, nil, cfg.Rater, log)

	depths := &recordedDepths{byDest: map[string]int{}}
	router := api.NewRouter(col, rat, reg, store, run, depths, cfg, log)
	return router.Engine(), run, depths
}

func doJSON(t *testing.T, engine *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestHealthHealthy(t *testing.T) {
	engine, _ := testEngine(t, &staticSource{}, &staticComments{}, queue.NewMemoryStore())

	rec := doJSON(t, engine, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.EqualValues(t, 1, body["instances_available"])
}

func TestStatsIncludesQueueDepths(t *testing.T) {
	store := queue.NewMemoryStore()
	require.NoError(t, queue.AppendJSON(context.Background(), store, queue.DestinationRaw, map[string]string{"video_id": "x"}))
	engine, run, depths := testEngineWithDepths(t, &staticSource{}, &staticComments{}, store)
	run.SetStatus("idle")

	rec := doJSON(t, engine, http.MethodGet, "/api/v1/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status   string         `json:"status"`
		Counters map[string]int `json:"counters"`
		Queue    map[string]int `json:"queue"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "idle", body.Status)
	assert.Equal(t, 1, body.Queue["raw"])
	assert.Zero(t, body.Queue["accepted"])

	// The depth gauges are refreshed on every stats read.
	assert.Equal(t, 1, depths.byDest["raw"])
	assert.Equal(t, 0, depths.byDest["accepted"])
}

func TestInstancesSnapshot(t *testing.T) {
	engine, _ := testEngine(t, &staticSource{}, &staticComments{}, queue.NewMemoryStore())

	rec := doJSON(t, engine, http.MethodGet, "/api/v1/instances", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Instances []map[string]any `json:"instances"`
		Count     int              `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "https://iv.example.com", body.Instances[0]["url"])
}

func TestCollectLifecycle(t *testing.T) {
	source := &staticSource{
		hits: []models.SearchHit{{VideoID: "vid1"}},
		meta: map[string]models.VideoMetadata{"vid1": {
			VideoID:         "vid1",
			Title:           "Hilarious fail compilation",
			DurationSeconds: 300,
			ViewCount:       50000,
		}},
	}
	store := queue.NewMemoryStore()
	engine, _ := testEngine(t, source, &staticComments{}, store)

	rec := doJSON(t, engine, http.MethodPost, "/api/v1/collect", map[string]any{
		"target": 1, "category": "funny",
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = doJSON(t, engine, http.MethodPost, "/api/v1/collect/step", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var step collector.StepResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &step))
	assert.Equal(t, collector.StatusDone, step.Status)
	assert.Equal(t, 1, step.Found)

	n, err := store.Len(context.Background(), queue.DestinationRaw)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCollectRejectsBadPayload(t *testing.T) {
	engine, _ := testEngine(t, &staticSource{}, &staticComments{}, queue.NewMemoryStore())

	rec := doJSON(t, engine, http.MethodPost, "/api/v1/collect", map[string]any{"target": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, engine, http.MethodPost, "/api/v1/collect", map[string]any{
		"target": 1, "category": "bogus",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCollectConflictWhileActive(t *testing.T) {
	// An empty search keeps the run active across steps.
	engine, _ := testEngine(t, &staticSource{}, &staticComments{}, queue.NewMemoryStore())

	rec := doJSON(t, engine, http.MethodPost, "/api/v1/collect", map[string]any{
		"target": 1, "category": "funny",
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = doJSON(t, engine, http.MethodPost, "/api/v1/collect", map[string]any{
		"target": 1, "category": "funny",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRateNextEmpty(t *testing.T) {
	engine, _ := testEngine(t, &staticSource{}, &staticComments{}, queue.NewMemoryStore())

	rec := doJSON(t, engine, http.MethodPost, "/api/v1/rate/next", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRateNextReturnsVerdict(t *testing.T) {
	store := queue.NewMemoryStore()
	candidate := models.VideoCandidate{
		VideoID:  "vid1",
		Title:    "zzz",
		URL:      models.WatchURL("vid1"),
		Category: models.CategoryHeartwarming,
	}
	require.NoError(t, queue.AppendJSON(context.Background(), store, queue.DestinationRaw, candidate))

	comments := &staticComments{comments: []models.Comment{{Text: "posted on a tuesday"}}}
	engine, _ := testEngine(t, &staticSource{}, comments, store)

	rec := doJSON(t, engine, http.MethodPost, "/api/v1/rate/next", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result rater.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "vid1", result.VideoID)
	assert.False(t, result.Accepted)
	require.NotNil(t, result.Score)
	assert.Less(t, result.Score.FinalScore, 6.5)
}

func TestLogsEndpoint(t *testing.T) {
	store := queue.NewMemoryStore()
	engine, run := testEngine(t, &staticSource{}, &staticComments{}, store)
	run.Log("collector", "info", "one")
	run.Log("rater", "info", "two")

	rec := doJSON(t, engine, http.MethodGet, "/api/v1/logs?limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Entries []pipeline.LogEntry `json:"entries"`
		Count   int                 `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "two", body.Entries[0].Message)

	rec = doJSON(t, engine, http.MethodGet, "/api/v1/logs?limit=nope", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	engine, _ := testEngine(t, &staticSource{}, &staticComments{}, queue.NewMemoryStore())

	rec := doJSON(t, engine, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
