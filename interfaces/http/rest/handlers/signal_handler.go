package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/pmacom/fivethirtynews-relate/application/services"
	"github.com/pmacom/fivethirtynews-relate/domain/relationship"
	apperrors "github.com/pmacom/fivethirtynews-relate/pkg/errors"
	"github.com/pmacom/fivethirtynews-relate/pkg/utils"
)

// SignalHandler handles signal ingestion and audit endpoints.
type SignalHandler struct {
	aggregator *services.Aggregator
	logger     *zap.Logger
}

// NewSignalHandler creates a new signal handler.
func NewSignalHandler(aggregator *services.Aggregator, logger *zap.Logger) *SignalHandler {
	return &SignalHandler{aggregator: aggregator, logger: logger}
}

// RecordSignalRequest is the ingestion payload.
type RecordSignalRequest struct {
	SourceID string                 `json:"source_id" validate:"required"`
	TargetID string                 `json:"target_id" validate:"required"`
	Type     string                 `json:"signal_type" validate:"required,oneof=navigation search explicit"`
	// Out-of-range weights are clamped to [0, 1] downstream, not rejected.
	Weight   float64                `json:"weight"`
	Context  map[string]interface{} `json:"context,omitempty"`
	UserID   string                 `json:"user_id,omitempty"`
}

// RecordSignal handles POST /api/v1/signals. Returns 202: the signal is
// durable but its effect on rankings is only eventually visible.
func (h *SignalHandler) RecordSignal(w http.ResponseWriter, r *http.Request) {
	var req RecordSignalRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		respondError(w, r, h.logger, apperrors.NewInvalidArgumentError(err.Error()))
		return
	}

	signalID, err := h.aggregator.RecordSignal(r.Context(), services.RecordSignalInput{
		SourceID: req.SourceID,
		TargetID: req.TargetID,
		Type:     relationship.SignalType(req.Type),
		Weight:   req.Weight,
		Context:  req.Context,
		UserID:   req.UserID,
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]string{"signal_id": signalID})
}

// ListSignals handles GET /api/v1/signals, newest first.
func (h *SignalHandler) ListSignals(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", 0)

	events, err := h.aggregator.RecentSignals(r.Context(), limit)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"signals": events,
		"count":   len(events),
	})
}

// parseIntQuery reads an integer query parameter, falling back to def on
// absence or garbage.
func parseIntQuery(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

// parseFloatQuery reads a float query parameter.
func parseFloatQuery(r *http.Request, name string, def float64) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, apperrors.NewInvalidArgumentError(name + " must be a number")
	}
	return v, nil
}
