package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/pmacom/fivethirtynews-relate/application/services"
)

// RelatedHandler handles ranked related-content queries and edge inspection.
type RelatedHandler struct {
	ranker *services.Ranker
	logger *zap.Logger
}

// NewRelatedHandler creates a new related-content handler.
func NewRelatedHandler(ranker *services.Ranker, logger *zap.Logger) *RelatedHandler {
	return &RelatedHandler{ranker: ranker, logger: logger}
}

// GetRelated handles GET /api/v1/content/{contentID}/related. The related
// list is always an array in the response, even when empty.
func (h *RelatedHandler) GetRelated(w http.ResponseWriter, r *http.Request) {
	contentID := chi.URLParam(r, "contentID")

	minStrength, err := parseFloatQuery(r, "min_strength", services.DefaultMinStrength)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	results, err := h.ranker.Related(r.Context(), contentID, services.RelatedQuery{
		MinStrength: minStrength,
		Limit:       parseIntQuery(r, "limit", 0),
		Enrich:      r.URL.Query().Get("enrich") == "true",
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if results == nil {
		results = []services.RelatedContent{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"content_id": contentID,
		"related":    results,
		"count":      len(results),
	})
}

// GetEdge handles GET /api/v1/content/{contentID}/edge/{otherID}.
func (h *RelatedHandler) GetEdge(w http.ResponseWriter, r *http.Request) {
	detail, err := h.ranker.Edge(r.Context(), chi.URLParam(r, "contentID"), chi.URLParam(r, "otherID"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, detail)
}
