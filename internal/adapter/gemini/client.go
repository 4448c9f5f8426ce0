// Package gemini generates advisory text through the Gemini generateContent
// REST endpoint.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/quake-dashboard/internal/domain"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Options are the fixed generation parameters sent with every request.
type Options struct {
	Model           string
	Temperature     float64
	MaxOutputTokens int
}

// Client calls the Gemini API with a single-turn text prompt.
type Client struct {
	apiKey     string
	opts       Options
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a Gemini client.
func NewClient(apiKey string, opts Options, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		opts:   opts,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: defaultBaseURL,
		logger:  logger,
	}
}

// MaxOutputTokens is the output bound the prompt asks the model to respect.
func (c *Client) MaxOutputTokens() int {
	return c.opts.MaxOutputTokens
}

// Generate sends prompt and returns the concatenated text of the first
// candidate. An answer without text is domain.ErrEmptyAdvisory.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:     c.opts.Temperature,
			MaxOutputTokens: c.opts.MaxOutputTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	u := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(c.opts.Model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: generate content: %w", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return "", fmt.Errorf("%w: gemini API error: status %d: %s", domain.ErrTransport, resp.StatusCode, bytes.TrimSpace(b))
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode response: %w", domain.ErrMalformedResponse, err)
	}

	text := out.text()
	if strings.TrimSpace(text) == "" {
		c.logger.Warn("gemini returned no text", "model", c.opts.Model, "block_reason", out.PromptFeedback.BlockReason)
		return "", domain.ErrEmptyAdvisory
	}
	return text, nil
}

// Gemini API request and response types.

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

func (r generateResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String()
}
