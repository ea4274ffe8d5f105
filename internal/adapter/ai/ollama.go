// Package ai implements the extraction oracle on top of an Ollama-compatible
// chat completion API, including JSON recovery and schema validation.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/procureflow/procureflow/internal/config"
	"github.com/procureflow/procureflow/internal/domain"
)

// ChatClient is the minimal completion surface the oracle needs. Tests
// substitute a canned implementation.
type ChatClient interface {
	ChatJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// OllamaClient implements ChatClient against the Ollama /api/chat endpoint.
type OllamaClient struct {
	baseURL string
	model   string
	hc      *http.Client
}

// NewOllamaClient constructs a chat client with the configured timeout.
func NewOllamaClient(cfg config.Config) *OllamaClient {
	return &OllamaClient{
		baseURL: cfg.OllamaBaseURL,
		model:   cfg.OllamaModel,
		hc:      &http.Client{Timeout: cfg.OllamaTimeout},
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Format   string        `json:"format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Response string `json:"response"`
}

// ChatJSON sends one system+user exchange and returns the raw completion.
// Transport-level failures map to domain.ErrAIUnavailable with remediation
// guidance; HTTP error statuses are reported verbatim.
func (c *OllamaClient) ChatJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	body, _ := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Stream: false,
		Format: "json",
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("op=ollama.chat: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		slog.Error("ollama request failed", slog.Any("error", err), slog.String("base_url", c.baseURL))
		var uerr *url.Error
		if errors.As(err, &uerr) || errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: cannot reach Ollama at %s; make sure it is running and the model is pulled (ollama pull %s)",
				domain.ErrAIUnavailable, c.baseURL, c.model)
		}
		return "", fmt.Errorf("op=ollama.chat: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("op=ollama.chat read: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("op=ollama.chat: status %d: %s", resp.StatusCode, string(raw))
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("op=ollama.chat decode: %w", err)
	}
	content := out.Message.Content
	if content == "" {
		content = out.Response
	}
	slog.Debug("ollama chat completed",
		slog.String("model", c.model),
		slog.Duration("duration", time.Since(start)),
		slog.Int("response_bytes", len(content)))
	return content, nil
}
