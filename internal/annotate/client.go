// Package annotate calls the text annotation service for sentiment and
// summary enrichment of chat messages. Enrichment is optional: every
// failure degrades to "no annotation".
package annotate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const defaultTimeout = 3 * time.Second

// Annotation is the enrichment attached to a text message. Zero values
// mean the annotator was unavailable or declined to answer.
type Annotation struct {
	Sentiment string `json:"sentiment,omitempty"`
	Summary   string `json:"summary,omitempty"`
}

// Annotator is the narrow interface the negotiation service depends on.
type Annotator interface {
	Annotate(ctx context.Context, text string) Annotation
}

// Client posts text to the annotator service over HTTP.
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

// Annotate returns sentiment and summary for the text, or the zero
// Annotation on any failure. Callers never see an error.
func (c *Client) Annotate(ctx context.Context, text string) Annotation {
	if c.baseURL == "" || text == "" {
		return Annotation{}
	}
	a, err := c.analyze(ctx, text)
	if err != nil {
		return Annotation{}
	}
	return a
}

func (c *Client) analyze(ctx context.Context, text string) (Annotation, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return Annotation{}, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze", bytes.NewReader(body))
	if err != nil {
		return Annotation{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Annotation{}, fmt.Errorf("annotator request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return Annotation{}, fmt.Errorf("annotator returned status %d", resp.StatusCode)
	}

	var a Annotation
	if err := json.NewDecoder(resp.Body).Decode(&a); err != nil {
		return Annotation{}, fmt.Errorf("decode response: %w", err)
	}
	return a, nil
}

// Nop returns empty annotations. Used in tests and when no annotator is
// configured.
type Nop struct{}

func (Nop) Annotate(context.Context, string) Annotation { return Annotation{} }
