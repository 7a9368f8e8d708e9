// Package notifications calls the notification dispatcher service. The
// marketplace core only ever fires events at it; failures never reach
// the caller.
package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

const defaultTimeout = 5 * time.Second

// Notification is one user-visible event handed to the dispatcher.
type Notification struct {
	UserID    string         `json:"user_id"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Body      string         `json:"body,omitempty"`
	ProjectID string         `json:"project_id,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// Well-known notification types emitted by the core.
const (
	TypeApplicationCreated  = "application-created"
	TypeApplicationRejected = "application-rejected"
	TypeApplicationAwarded  = "application-awarded"
	TypeOfferResponse       = "offer-response"
)

// Dispatcher is the narrow interface services depend on.
type Dispatcher interface {
	Create(ctx context.Context, n Notification)
}

// Client posts notifications to the dispatcher over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// Create delivers the notification fire-and-forget: any failure is
// logged and swallowed so the triggering operation still succeeds.
func (c *Client) Create(ctx context.Context, n Notification) {
	if c.baseURL == "" {
		return
	}
	if err := c.post(ctx, n); err != nil {
		log.Printf("[notifications] create type=%s user=%s: %v", n.Type, n.UserID, err)
	}
}

func (c *Client) post(ctx context.Context, n Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/notifications", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("dispatcher request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("dispatcher returned status %d", resp.StatusCode)
	}
	return nil
}

// Nop discards notifications. Used in tests and when no dispatcher is
// configured.
type Nop struct{}

func (Nop) Create(context.Context, Notification) {}
