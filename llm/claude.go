package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.aimuz.me/transpeak/internal/types"
)

const (
	defaultClaudeURL   = "https://api.anthropic.com/v1/messages"
	defaultClaudeModel = "claude-3-5-haiku-latest"
	claudeAPIVersion   = "2023-06-01"
)

// claudeCompleter implements Completer for the Anthropic Messages API.
type claudeCompleter struct {
	cfg  completerConfig
	url  string
	http *http.Client
}

type claudeRequest struct {
	Model       string          `json:"model"`
	System      string          `json:"system,omitempty"`
	Messages    []claudeMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature,omitempty"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func newClaudeCompleter(cfg completerConfig) *claudeCompleter {
	if cfg.model == "" {
		cfg.model = defaultClaudeModel
	}
	if cfg.maxTokens == 0 {
		cfg.maxTokens = types.DefaultMaxTokens
	}
	url := cfg.baseURL
	if url == "" {
		url = defaultClaudeURL
	}
	return &claudeCompleter{
		cfg:  cfg,
		url:  url,
		http: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *claudeCompleter) Complete(ctx context.Context, messages []Message) (string, types.Usage, error) {
	body, err := json.Marshal(c.buildRequest(messages))
	if err != nil {
		return "", types.Usage{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", types.Usage{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("x-api-key", c.cfg.apiKey)
	req.Header.Set("anthropic-version", claudeAPIVersion)
	req.Header.Set("content-type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", types.Usage{}, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", types.Usage{}, fmt.Errorf("read response: %w", err)
	}
	return parseClaudeResponse(resp.StatusCode, data)
}

// buildRequest moves system messages into the top-level system field,
// which is where the Messages API expects them.
func (c *claudeCompleter) buildRequest(messages []Message) claudeRequest {
	req := claudeRequest{
		Model:       c.cfg.model,
		MaxTokens:   c.cfg.maxTokens,
		Temperature: c.cfg.temperature,
	}

	var system []string
	for _, m := range messages {
		if m.Role == "system" {
			system = append(system, m.Content)
			continue
		}
		req.Messages = append(req.Messages, claudeMessage{Role: m.Role, Content: m.Content})
	}
	req.System = strings.Join(system, "\n\n")
	return req
}

func parseClaudeResponse(status int, data []byte) (string, types.Usage, error) {
	var resp claudeResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", types.Usage{}, fmt.Errorf("unmarshal response (status %d): %w", status, err)
	}
	if resp.Error != nil {
		return "", types.Usage{}, fmt.Errorf("api error %d: %s: %s", status, resp.Error.Type, resp.Error.Message)
	}
	if status != http.StatusOK {
		return "", types.Usage{}, fmt.Errorf("api error %d", status)
	}

	var text strings.Builder
	for _, part := range resp.Content {
		if part.Type == "text" {
			text.WriteString(part.Text)
		}
	}
	if text.Len() == 0 {
		return "", types.Usage{}, fmt.Errorf("no content returned")
	}

	usage := types.Usage{
		PromptTokens:     resp.Usage.InputTokens,
		CompletionTokens: resp.Usage.OutputTokens,
		TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
	}
	return strings.TrimSpace(text.String()), usage, nil
}
