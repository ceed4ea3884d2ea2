// Package acl holds anti-corruption adapters for neighboring services. The
// engine only ever sees opaque content IDs; these adapters translate them
// into the projections the API layer needs.
package acl

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pmacom/fivethirtynews-relate/application/ports"
	apperrors "github.com/pmacom/fivethirtynews-relate/pkg/errors"
)

// HTTPContentLookup resolves content summaries from the content service's
// batch endpoint: GET {base}?ids=a,b,c. Unknown IDs are simply absent from
// the response, never an error.
type HTTPContentLookup struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPContentLookup creates a lookup against baseURL.
func NewHTTPContentLookup(baseURL string, logger *zap.Logger) *HTTPContentLookup {
	return &HTTPContentLookup{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 5 * time.Second},
		logger:  logger,
	}
}

var _ ports.ContentLookup = (*HTTPContentLookup)(nil)

// Lookup fetches summaries for ids, keyed by content ID.
func (l *HTTPContentLookup) Lookup(ctx context.Context, ids []string) (map[string]ports.ContentSummary, error) {
	if len(ids) == 0 {
		return map[string]ports.ContentSummary{}, nil
	}

	endpoint := fmt.Sprintf("%s?ids=%s", l.baseURL, url.QueryEscape(strings.Join(ids, ",")))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, apperrors.NewInternalError("build content lookup request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, apperrors.NewUnavailableError("content service")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		l.logger.Warn("content service returned non-200",
			zap.Int("status", resp.StatusCode),
			zap.Int("ids", len(ids)),
		)
		return nil, apperrors.NewUnavailableError("content service")
	}

	var payload struct {
		Items []ports.ContentSummary `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, apperrors.NewUnavailableError("content service")
	}

	summaries := make(map[string]ports.ContentSummary, len(payload.Items))
	for _, item := range payload.Items {
		summaries[item.ID] = item
	}
	return summaries, nil
}
