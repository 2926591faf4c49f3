package gateways

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/semscan/semscan/internal/domain/entities"
	"github.com/semscan/semscan/internal/domain/interfaces"
)

// HTTPPublisher delivers scan results to the artifact-storage
// endpoint. Delivery is opportunistic: exactly one POST per run, and
// the caller treats any failure as a warning.
type HTTPPublisher struct {
	httpClient *http.Client
	userAgent  string
	logger     interfaces.Logger
}

// NewHTTPPublisher creates a new publisher with a bounded request
// timeout.
func NewHTTPPublisher(timeout time.Duration, logger interfaces.Logger) *HTTPPublisher {
	return &HTTPPublisher{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		userAgent: "semscan/1.0",
		logger:    logger,
	}
}

// Publish POSTs the payload to endpoint with the API key in a request
// header. Returns (true, nil) on 200/201, (false, nil) when the
// endpoint answered with any other status, and (false, err) on
// transport failure. The pipeline's exit code never depends on the
// return values.
func (p *HTTPPublisher) Publish(ctx context.Context, endpoint, apiKey string, payload *entities.DeliveryPayload) (bool, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return false, fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-API-Key", apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("delivery request failed: %w", err)
	}
	//nolint:errcheck // Defer close on HTTP response body
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		p.logger.Warn("endpoint rejected delivery", interfaces.F("status", resp.StatusCode))
		return false, nil
	}

	p.logger.Info("results delivered", interfaces.F("scan_id", payload.ScanID), interfaces.F("status", resp.StatusCode))
	return true, nil
}
