package edge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/finwatch/fraud-platform/internal/domain/entities"
	apperrors "github.com/finwatch/fraud-platform/pkg/errors"
)

// connectTimeout and readTimeout bound the internal edge→scoring hop per
// the concurrency model: 5s to establish the connection, 10s to read the
// response.
const (
	connectTimeout = 5 * time.Second
	readTimeout    = 10 * time.Second
)

// ScoringClient calls the scoring service's invoice-validation endpoint
// over internal HTTP, authenticated with the pre-shared API key.
type ScoringClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewScoringClient(baseURL, apiKey string) *ScoringClient {
	dialer := &net.Dialer{Timeout: connectTimeout}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		ResponseHeaderTimeout: readTimeout,
	}
	return &ScoringClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Transport: transport, Timeout: connectTimeout + readTimeout},
	}
}

// Validate proxies a validation request to the scoring service. A 400 from
// scoring is passed back as KindInputInvalid with its field details; any
// other failure (network error, other non-200 status, malformed body) is
// reported as KindUpstreamUnavailable per the error taxonomy.
func (c *ScoringClient) Validate(ctx context.Context, req entities.ValidationRequest) (*entities.ValidationResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, apperrors.InternalError("failed to encode validation request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/invoices/validate", bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.InternalError("failed to build upstream request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-API-KEY", c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, apperrors.UpstreamUnavailable(fmt.Sprintf("scoring service unreachable: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusBadRequest {
		var validationErr struct {
			Message string            `json:"message"`
			Details map[string]string `json:"details"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&validationErr)
		appErr := apperrors.InputInvalid(validationErr.Message)
		for field, msg := range validationErr.Details {
			appErr = appErr.WithDetail(field, msg)
		}
		return nil, appErr
	}

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.UpstreamUnavailable(fmt.Sprintf("scoring service returned status %d", resp.StatusCode))
	}

	var out entities.ValidationResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, apperrors.UpstreamUnavailable("scoring service returned a malformed response")
	}

	return &out, nil
}
