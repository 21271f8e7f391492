package supabase

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

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// recordStatsPath is the PostgREST route of the stats-sync stored procedure.
const recordStatsPath = "/rest/v1/rpc/record_test_and_sync_stats"

// ErrTransport marks failures where no HTTP response was received at all
// (refused connection, DNS failure, timeout). Completed exchanges with
// 4xx/5xx statuses are normal Results, not errors.
var ErrTransport = errors.New("transport failure")

// StatsPayload is the argument object for record_test_and_sync_stats.
// TestDate empty means "use the server's notion of today".
type StatsPayload struct {
	TestDate            string `json:"p_test_date,omitempty"`
	TestCount           int    `json:"p_test_count"`
	CorrectCount        int    `json:"p_correct_count"`
	Points              int    `json:"p_points"`
	TimezoneOffsetHours int    `json:"p_timezone_offset_hours"`
	ClientDate          string `json:"p_client_date"`
	ExpectedVersion     int    `json:"p_expected_version"`
}

// Result is one completed HTTP exchange with the RPC endpoint.
type Result struct {
	Status int
	Body   string
}

// Config holds connection details for the Supabase project.
type Config struct {
	BaseURL string
	AnonKey string
	Timeout time.Duration
}

// Client calls the stats-sync RPC through the PostgREST gateway.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
	runID      string
	rpcURL     string
}

func NewClient(cfg Config, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	base := strings.TrimSuffix(cfg.BaseURL, "/")

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		config: cfg,
		logger: logger.With().Str("component", "supabase_client").Logger(),
		runID:  uuid.NewString(),
		rpcURL: base + recordStatsPath,
	}
}

// RPCURL returns the resolved endpoint URL.
func (c *Client) RPCURL() string {
	return c.rpcURL
}

// CallRecordStats performs exactly one POST to the RPC endpoint and returns
// the status and full body text. HTTP error statuses are captured in the
// Result; only transport-level failures produce a non-nil error.
func (c *Client) CallRecordStats(ctx context.Context, payload StatsPayload) (Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("apikey", c.config.AnonKey)
	req.Header.Set("Authorization", "Bearer "+c.config.AnonKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Client-Info", "vibe-word-master/freezecheck")
	req.Header.Set("X-Request-Id", c.runID)

	c.logger.Debug().
		Str("url", c.rpcURL).
		Str("test_date", payload.TestDate).
		Str("client_date", payload.ClientDate).
		Msg("calling record_test_and_sync_stats")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("%w: read body: %v", ErrTransport, err)
	}

	return Result{Status: resp.StatusCode, Body: string(raw)}, nil
}
