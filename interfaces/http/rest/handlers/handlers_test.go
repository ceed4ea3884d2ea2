package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pmacom/fivethirtynews-relate/application/services"
	"github.com/pmacom/fivethirtynews-relate/domain/relationship"
	"github.com/pmacom/fivethirtynews-relate/infrastructure/persistence/badgerdb"
	"github.com/pmacom/fivethirtynews-relate/pkg/locks"
)

func newTestRouter(t *testing.T) chi.Router {
	t.Helper()
	store, err := badgerdb.Open(badgerdb.Config{InMemory: true}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	clock := services.Clock(func() time.Time {
		return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	})
	cfg := relationship.DefaultScoringConfig()
	logger := zap.NewNop()

	edges := badgerdb.NewEdgeRepository(store)
	signals := badgerdb.NewSignalLog(store)
	cooc := badgerdb.NewCoOccurrenceRepository(store)
	curated := badgerdb.NewCuratedTagRepository(store)

	aggregator := services.NewAggregator(edges, signals, cooc, nil, locks.NewKeyMutex(locks.DefaultShards), cfg, clock, logger)
	ranker := services.NewRanker(edges, cooc, nil, nil, 0, cfg, clock, logger)
	curator := services.NewCurator(curated, clock, logger)

	signalHandler := NewSignalHandler(aggregator, logger)
	relatedHandler := NewRelatedHandler(ranker, logger)
	tagHandler := NewTagHandler(aggregator, ranker, curator, logger)

	r := chi.NewRouter()
	r.Post("/signals", signalHandler.RecordSignal)
	r.Get("/signals", signalHandler.ListSignals)
	r.Get("/content/{contentID}/related", relatedHandler.GetRelated)
	r.Get("/content/{contentID}/edge/{otherID}", relatedHandler.GetEdge)
	r.Post("/tags/co-occurrence", tagHandler.RecordCoOccurrence)
	r.Get("/tags/{tagID}/co-occurring", tagHandler.GetCoOccurring)
	r.Get("/tags/relationships", tagHandler.ListRelationships)
	r.Put("/tags/relationships", tagHandler.UpsertRelationship)
	r.Delete("/tags/relationships/{relationshipID}", tagHandler.DeleteRelationship)
	return r
}

func doJSON(t *testing.T, router chi.Router, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf).WithContext(context.Background())
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRecordSignalAccepted(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/signals", map[string]interface{}{
		"source_id":   "article-1",
		"target_id":   "article-2",
		"signal_type": "explicit",
		"weight":      1.0,
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["signal_id"])
}

func TestRecordSignalClampsOverRangeWeight(t *testing.T) {
	router := newTestRouter(t)

	// An over-range weight is accepted and behaves exactly like 1.0.
	rec := doJSON(t, router, http.MethodPost, "/signals", map[string]interface{}{
		"source_id":   "clamped-a",
		"target_id":   "clamped-b",
		"signal_type": "explicit",
		"weight":      1.5,
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodPost, "/signals", map[string]interface{}{
		"source_id":   "exact-a",
		"target_id":   "exact-b",
		"signal_type": "explicit",
		"weight":      1.0,
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	var clamped, exact struct {
		Related []struct {
			TotalStrength float64 `json:"total_strength"`
		} `json:"related"`
	}
	rec = doJSON(t, router, http.MethodGet, "/content/clamped-a/related", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &clamped))
	rec = doJSON(t, router, http.MethodGet, "/content/exact-a/related", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &exact))

	require.Len(t, clamped.Related, 1)
	require.Len(t, exact.Related, 1)
	assert.Equal(t, exact.Related[0].TotalStrength, clamped.Related[0].TotalStrength)
}

func TestRecordSignalRejectsBadPayloads(t *testing.T) {
	router := newTestRouter(t)

	// Self-referential pair.
	rec := doJSON(t, router, http.MethodPost, "/signals", map[string]interface{}{
		"source_id":   "a",
		"target_id":   "a",
		"signal_type": "navigation",
		"weight":      0.5,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown signal type.
	rec = doJSON(t, router, http.MethodPost, "/signals", map[string]interface{}{
		"source_id":   "a",
		"target_id":   "b",
		"signal_type": "like",
		"weight":      0.5,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown field.
	rec = doJSON(t, router, http.MethodPost, "/signals", map[string]interface{}{
		"source_id": "a",
		"target_id": "b",
		"kind":      "navigation",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRelatedEndToEnd(t *testing.T) {
	router := newTestRouter(t)

	for _, s := range []struct {
		target string
		typ    string
		weight float64
	}{
		{"article-b", "explicit", 1.0},
		{"article-c", "navigation", 1.0},
	} {
		rec := doJSON(t, router, http.MethodPost, "/signals", map[string]interface{}{
			"source_id":   "article-a",
			"target_id":   s.target,
			"signal_type": s.typ,
			"weight":      s.weight,
		})
		require.Equal(t, http.StatusAccepted, rec.Code)
	}

	rec := doJSON(t, router, http.MethodGet, "/content/article-a/related?min_strength=0.1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		ContentID string `json:"content_id"`
		Related   []struct {
			ContentID     string  `json:"content_id"`
			TotalStrength float64 `json:"total_strength"`
		} `json:"related"`
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Count)
	assert.Equal(t, "article-b", resp.Related[0].ContentID)
	assert.InDelta(t, 1.0, resp.Related[0].TotalStrength, 1e-9)
	assert.Equal(t, "article-c", resp.Related[1].ContentID)

	// Higher floor hides the navigation edge.
	rec = doJSON(t, router, http.MethodGet, "/content/article-a/related?min_strength=0.5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
}

func TestRelatedUnknownContentReturnsEmptyArray(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/content/ghost/related", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"related":[]`)
}

func TestEdgeDetailNotFound(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/content/a/edge/b", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTagCoOccurrenceFlow(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/tags/co-occurrence", map[string]interface{}{
		"tag_ids": []string{"blender", "sculpting", "tutorial"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"pairs_updated":3`)

	rec = doJSON(t, router, http.MethodGet, "/tags/blender/co-occurring", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		CoOccurring []struct {
			TagID string `json:"tag_id"`
			Count int64  `json:"count"`
		} `json:"co_occurring"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.CoOccurring, 2)

	// A single tag cannot co-occur with itself.
	rec = doJSON(t, router, http.MethodPost, "/tags/co-occurrence", map[string]interface{}{
		"tag_ids": []string{"solo"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCuratedRelationshipLifecycle(t *testing.T) {
	router := newTestRouter(t)

	put := func() map[string]interface{} {
		rec := doJSON(t, router, http.MethodPut, "/tags/relationships", map[string]interface{}{
			"tag1":              "blender",
			"tag2":              "sculpting",
			"relationship_type": "tool_of",
			"strength":          0.8,
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return resp
	}

	first := put()
	second := put()
	assert.Equal(t, first["id"], second["id"], "repeat upserts keep the same row")

	rec := doJSON(t, router, http.MethodGet, "/tags/relationships?tag_id=blender", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":1`)

	rec = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/tags/relationships/%s", first["id"]), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/tags/relationships/%s", first["id"]), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
