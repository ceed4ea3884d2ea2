package errors

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// ErrorResponse represents the API error response format
type ErrorResponse struct {
	Error     bool                   `json:"error"`
	Type      string                 `json:"type"`
	Message   string                 `json:"message"`
	Code      string                 `json:"code,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// WriteHTTP maps an error onto the wire format and status code.
// Unknown errors are masked as INTERNAL so storage details never leak.
func WriteHTTP(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	if err == nil {
		return
	}

	requestID := r.Header.Get("X-Request-ID")

	status := http.StatusInternalServerError
	response := ErrorResponse{
		Error:     true,
		Type:      string(ErrorTypeInternal),
		Message:   "internal error",
		RequestID: requestID,
	}

	if appErr := GetAppError(err); appErr != nil {
		if appErr.HTTPStatus != 0 {
			status = appErr.HTTPStatus
		}
		response.Type = string(appErr.Type)
		response.Message = appErr.Message
		response.Code = appErr.Code
		response.Details = appErr.Details

		if status >= http.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("type", string(appErr.Type)),
				zap.String("path", r.URL.Path),
				zap.Error(err),
			)
		}
	} else {
		logger.Error("unhandled error",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(response); encErr != nil {
		logger.Error("failed to encode error response", zap.Error(encErr))
	}
}
