package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/pmacom/fivethirtynews-relate/application/ports"
	"github.com/pmacom/fivethirtynews-relate/application/services"
	"github.com/pmacom/fivethirtynews-relate/domain/relationship"
	apperrors "github.com/pmacom/fivethirtynews-relate/pkg/errors"
	"github.com/pmacom/fivethirtynews-relate/pkg/utils"
)

// TagHandler handles tag co-occurrence and curated relationship endpoints.
type TagHandler struct {
	aggregator *services.Aggregator
	ranker     *services.Ranker
	curator    *services.Curator
	logger     *zap.Logger
}

// NewTagHandler creates a new tag handler.
func NewTagHandler(aggregator *services.Aggregator, ranker *services.Ranker, curator *services.Curator, logger *zap.Logger) *TagHandler {
	return &TagHandler{aggregator: aggregator, ranker: ranker, curator: curator, logger: logger}
}

// RecordCoOccurrenceRequest carries the tag set of one content item.
type RecordCoOccurrenceRequest struct {
	TagIDs []string `json:"tag_ids" validate:"required,min=2"`
}

// RecordCoOccurrence handles POST /api/v1/tags/co-occurrence.
func (h *TagHandler) RecordCoOccurrence(w http.ResponseWriter, r *http.Request) {
	var req RecordCoOccurrenceRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		respondError(w, r, h.logger, apperrors.NewInvalidArgumentError(err.Error()))
		return
	}

	updated, err := h.aggregator.RecordTagCoOccurrence(r.Context(), req.TagIDs)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]int{"pairs_updated": updated})
}

// GetCoOccurring handles GET /api/v1/tags/{tagID}/co-occurring.
func (h *TagHandler) GetCoOccurring(w http.ResponseWriter, r *http.Request) {
	tagID := chi.URLParam(r, "tagID")

	tags, err := h.ranker.CoOccurring(r.Context(), tagID, parseIntQuery(r, "limit", 0))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if tags == nil {
		tags = []services.CoOccurringTag{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"tag_id":       tagID,
		"co_occurring": tags,
		"count":        len(tags),
	})
}

// UpsertRelationshipRequest is the curated upsert payload.
type UpsertRelationshipRequest struct {
	Tag1     string  `json:"tag1" validate:"required"`
	Tag2     string  `json:"tag2" validate:"required"`
	Type     string  `json:"relationship_type" validate:"required,oneof=related tool_of technique_of part_of"`
	Strength float64 `json:"strength" validate:"gte=0,lte=1"`
}

// UpsertRelationship handles PUT /api/v1/tags/relationships.
func (h *TagHandler) UpsertRelationship(w http.ResponseWriter, r *http.Request) {
	var req UpsertRelationshipRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		respondError(w, r, h.logger, apperrors.NewInvalidArgumentError(err.Error()))
		return
	}

	rel, err := h.curator.Upsert(r.Context(), services.UpsertCuratedInput{
		Tag1:     req.Tag1,
		Tag2:     req.Tag2,
		Type:     relationship.RelationType(req.Type),
		Strength: req.Strength,
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, rel)
}

// ListRelationships handles GET /api/v1/tags/relationships.
func (h *TagHandler) ListRelationships(w http.ResponseWriter, r *http.Request) {
	minStrength, err := parseFloatQuery(r, "min_strength", 0)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	rels, err := h.curator.List(r.Context(), ports.CuratedTagFilter{
		TagID:       r.URL.Query().Get("tag_id"),
		Type:        relationship.RelationType(r.URL.Query().Get("type")),
		MinStrength: minStrength,
		Limit:       parseIntQuery(r, "limit", 0),
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if rels == nil {
		rels = []*relationship.CuratedTagRelationship{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"relationships": rels,
		"count":         len(rels),
	})
}

// DeleteRelationship handles DELETE /api/v1/tags/relationships/{relationshipID}.
func (h *TagHandler) DeleteRelationship(w http.ResponseWriter, r *http.Request) {
	if err := h.curator.Delete(r.Context(), chi.URLParam(r, "relationshipID")); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
