package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/okian/mjledger/internal/domain/model"
	"github.com/okian/mjledger/internal/domain/stats"
	"github.com/okian/mjledger/internal/domain/types"
)

// Outcome classifies one submission.
type Outcome int

const (
	OutcomeWritten  Outcome = iota // round written
	OutcomeReplayed                // id already accepted
	OutcomeRejected                // refused as invalid or full
	OutcomeFailed                  // transport or server failure
)

// Ledger is what a run talks to: the HTTP API or an in-process service.
type Ledger interface {
	Record(ctx context.Context, req types.RecordRequest) (model.AppendResult, Outcome, error)
	Stats(ctx context.Context) ([]stats.Row, error)
}

// ErrUnhealthy is returned when the API does not answer its health check.
var ErrUnhealthy = errors.New("api health check failed")

// HTTPClient talks to a running API.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a client for the API at baseURL.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Health checks that the API is serving.
func (c *HTTPClient) Health(ctx context.Context) error {
	resp, err := c.get(ctx, "/healthz")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, resp.StatusCode)
	}
	return nil
}

// Record posts one round to /records.
func (c *HTTPClient) Record(ctx context.Context, req types.RecordRequest) (model.AppendResult, Outcome, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return model.AppendResult{}, OutcomeFailed, fmt.Errorf("failed to marshal request body: %w", err)
	}
	hr, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/records", bytes.NewReader(body))
	if err != nil {
		return model.AppendResult{}, OutcomeFailed, fmt.Errorf("failed to create request: %w", err)
	}
	hr.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(hr)
	if err != nil {
		return model.AppendResult{}, OutcomeFailed, err
	}
	defer resp.Body.Close()

	var res model.AppendResult
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return res, OutcomeFailed, err
	}
	_ = json.Unmarshal(data, &res)

	switch {
	case resp.StatusCode == http.StatusCreated:
		return res, OutcomeWritten, nil
	case resp.StatusCode == http.StatusOK:
		return res, OutcomeReplayed, nil
	case resp.StatusCode == http.StatusConflict, resp.StatusCode == http.StatusUnprocessableEntity,
		resp.StatusCode == http.StatusBadRequest:
		return res, OutcomeRejected, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	default:
		return res, OutcomeFailed, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
}

// Stats fetches the unfiltered stats table.
func (c *HTTPClient) Stats(ctx context.Context) ([]stats.Row, error) {
	resp, err := c.get(ctx, "/stats?sort=name")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("stats: status %d", resp.StatusCode)
	}
	var rows []stats.Row
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	return rows, nil
}

func (c *HTTPClient) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	return c.client.Do(req)
}
