// Package backend implements the LLM completion port against any
// OpenAI-compatible chat completions endpoint.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"go.trai.ch/cascade/internal/core/domain"
	"go.trai.ch/cascade/internal/core/ports"
	"go.trai.ch/zerr"
)

// Client implements ports.Backend over HTTP.
type Client struct {
	httpClient *http.Client
	cfg        domain.BackendConfig
	apiKey     string
}

// NewClient creates a backend client from the resolved configuration.
// The API key is read from the configured environment variable; an empty
// key is allowed for keyless local endpoints.
func NewClient(cfg domain.BackendConfig) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		apiKey:     os.Getenv(cfg.APIKeyEnv),
	}
}

var _ ports.Backend = (*Client)(nil)

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete sends a prompt to the chat completions endpoint and returns the
// first choice's content. Every transport or protocol problem surfaces as
// domain.ErrBackendUnavailable.
func (c *Client) Complete(ctx context.Context, prompt string, params ports.CompletionParams) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model:       c.cfg.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: params.Temperature,
		MaxTokens:   params.MaxTokens,
	})
	if err != nil {
		return "", unavailable(err, "encoding request")
	}

	url := strings.TrimSuffix(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", unavailable(err, "building request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", unavailable(err, "request failed")
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", unavailable(err, "reading response")
	}

	if resp.StatusCode != http.StatusOK {
		failed := zerr.With(zerr.Wrap(domain.ErrBackendUnavailable, "unexpected status"), "status", resp.StatusCode)
		return "", zerr.With(failed, "body", truncateForError(body))
	}

	var decoded chatResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", unavailable(err, "decoding response")
	}
	if decoded.Error != nil {
		return "", zerr.With(zerr.Wrap(domain.ErrBackendUnavailable, "backend reported error"), "backend_error", decoded.Error.Message)
	}
	if len(decoded.Choices) == 0 {
		return "", zerr.Wrap(domain.ErrBackendUnavailable, "response has no choices")
	}

	return decoded.Choices[0].Message.Content, nil
}

// unavailable folds a transport or decoding failure into the backend error
// taxonomy while keeping the underlying cause inspectable with errors.Is.
func unavailable(cause error, msg string) error {
	return zerr.Wrap(errors.Join(domain.ErrBackendUnavailable, cause), msg)
}

func truncateForError(body []byte) string {
	const limit = 256
	if len(body) <= limit {
		return string(body)
	}
	return fmt.Sprintf("%s... (%d bytes)", body[:limit], len(body))
}
