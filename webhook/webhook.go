package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/use-agent/growlog/models"
)

// Event types.
const (
	EventCompleted = "timeline.completed"
	EventFailed    = "timeline.failed"
)

// SignatureHeader carries "sha256=<hex>" when a secret is configured.
const SignatureHeader = "X-Growlog-Signature"

// Event is the payload sent to webhook endpoints.
type Event struct {
	Type      string `json:"type"`
	RunID     string `json:"run_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data"`
}

// Summary is the completed-run payload. It omits entries and photos,
// which can be large.
type Summary struct {
	URL     string          `json:"url"`
	Title   string          `json:"title"`
	Entries int             `json:"entries"`
	Stats   models.RunStats `json:"stats"`
}

// Summarize builds the completed-run payload for a report.
func Summarize(r *models.Report) Summary {
	return Summary{
		URL:     r.URL,
		Title:   r.Title,
		Entries: len(r.Entries),
		Stats:   r.Stats,
	}
}

// Sign returns the hex HMAC-SHA256 of body.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Client delivers events to one endpoint.
type Client struct {
	url    string
	secret string
	http   *http.Client
	delays []time.Duration
	logger *slog.Logger
}

// NewClient creates a Client. Delivery is retried after 1s, 5s and 30s.
func NewClient(url, secret string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		url:    url,
		secret: secret,
		http:   &http.Client{Timeout: 10 * time.Second},
		delays: []time.Duration{0, 1 * time.Second, 5 * time.Second, 30 * time.Second},
		logger: logger,
	}
}

// Deliver sends an event once.
// The request body is signed with HMAC-SHA256 if secret is non-empty.
func (c *Client) Deliver(ctx context.Context, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Growlog-Webhook/1.0")
	if c.secret != "" {
		req.Header.Set(SignatureHeader, "sha256="+Sign(body, c.secret))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// Send delivers an event, retrying on failure until the retry schedule
// or ctx runs out. It returns the last delivery error.
func (c *Client) Send(ctx context.Context, event *Event) error {
	var lastErr error
	for attempt, delay := range c.delays {
		if delay > 0 {
			t := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return fmt.Errorf("webhook: %w (last error: %v)", ctx.Err(), lastErr)
			case <-t.C:
			}
		}
		lastErr = c.Deliver(ctx, event)
		if lastErr == nil {
			c.logger.Info("webhook delivered",
				"url", c.url,
				"event", event.Type,
				"run_id", event.RunID,
				"attempt", attempt+1,
			)
			return nil
		}
		c.logger.Warn("webhook delivery failed",
			"url", c.url,
			"event", event.Type,
			"run_id", event.RunID,
			"attempt", attempt+1,
			"error", lastErr,
		)
	}
	c.logger.Error("webhook delivery exhausted all retries",
		"url", c.url,
		"event", event.Type,
		"run_id", event.RunID,
	)
	return lastErr
}
