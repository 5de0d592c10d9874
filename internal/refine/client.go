// Package refine calls the external note summarization service.
package refine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Config points the client at the summarization endpoint.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type refineRequest struct {
	BayID     int    `json:"bay_id"`
	Note      string `json:"note"`
	MaxLength int    `json:"max_length"`
}

type refineResponse struct {
	Text string `json:"text"`
}

// Client rewrites free text bay notes into short clinical phrasing.
type Client struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewClient builds a client with a short timeout and one retry.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetRetryCount(1).
		SetRetryWaitTime(500 * time.Millisecond).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}
	return &Client{httpClient: client, logger: logger}
}

// Refine returns the rewritten note.  An empty string with a nil error means
// the service had nothing to offer.
func (c *Client) Refine(ctx context.Context, bayID int, note string) (string, error) {
	var out refineResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(refineRequest{BayID: bayID, Note: note, MaxLength: 20}).
		SetResult(&out).
		Post("/v1/refine")
	if err != nil {
		c.logger.Warn("refine call failed", zap.Int("bay_id", bayID), zap.Error(err))
		return "", fmt.Errorf("refine note: %w", err)
	}
	if resp.IsError() {
		c.logger.Warn("refine service returned error", zap.Int("bay_id", bayID), zap.Int("status_code", resp.StatusCode()))
		return "", fmt.Errorf("refine note: status %d", resp.StatusCode())
	}
	return strings.TrimSpace(out.Text), nil
}
