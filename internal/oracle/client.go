// internal/oracle/client.go
//
// Chat-completions hint client.
// Talks to an OpenAI-compatible /chat/completions endpoint: the game's
// system prompt frames the model as the host, the player's guess is the
// user message, and the first choice comes back as the hint. Any transport
// error, non-200 status, or empty choice list is surfaced as an error so
// the session manager can fall back to its apology message.

package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkazmier/guessquest/internal/catalog"
)

const defaultTimeout = 10 * time.Second

// ChatClient is an Oracle backed by an OpenAI-compatible chat API.
type ChatClient struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	model      string
}

// NewChatClient builds a client for baseURL (e.g. https://api.openai.com/v1).
// timeout bounds each hint call; zero selects the default.
func NewChatClient(apiKey, baseURL, model string, timeout time.Duration) *ChatClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &ChatClient{
		httpClient: &http.Client{Timeout: timeout},
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
	}
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Hint asks the model for a hint to the player's guess.
func (c *ChatClient) Hint(ctx context.Context, guess string, def catalog.GameDefinition) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: def.Hint.SystemPrompt},
			{Role: "user", Content: guess},
		},
		MaxTokens: 200,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("hint request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("hint API status %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("hint API error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("hint API returned no choices")
	}
	hint := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if hint == "" {
		return "", fmt.Errorf("hint API returned empty content")
	}
	return hint, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
