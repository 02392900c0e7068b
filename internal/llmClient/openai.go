package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultMoonshotBaseURL = "https://api.moonshot.ai/v1"
	DefaultMoonshotModel   = "kimi-k2-0905-preview"
)

// OpenAIClient calls an OpenAI-compatible Chat Completions API
// (Moonshot, Groq, OpenAI itself).
type OpenAIClient struct {
	http    *http.Client
	apiKey  string
	model   string
	baseURL string
}

// NewOpenAIClient creates a client for baseURL (".../v1"). Empty baseURL and
// model fall back to the Moonshot defaults.
func NewOpenAIClient(apiKey, baseURL, model string) *OpenAIClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultMoonshotBaseURL
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultMoonshotModel
	}
	return &OpenAIClient{
		http:    &http.Client{Timeout: 180 * time.Second},
		apiKey:  strings.TrimSpace(apiKey),
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/") + "/chat/completions",
	}
}

// WithHTTPClient swaps the transport, mainly for tests.
func (c *OpenAIClient) WithHTTPClient(h *http.Client) *OpenAIClient {
	c.http = h
	return c
}

func (c *OpenAIClient) Name() string { return "OpenAI:" + c.model }
func (c *OpenAIClient) Close() error { return nil }

type openAIChatReq struct {
	Model          string            `json:"model"`
	Messages       []openAIMessage   `json:"messages"`
	Temperature    float32           `json:"temperature"`
	MaxTokens      int               `json:"max_tokens,omitempty"`
	Stream         bool              `json:"stream"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

// openAIMessage.Content is either a string or a list of typed parts.
type openAIMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type openAIPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *openAIImageURL `json:"image_url,omitempty"`
}

type openAIImageURL struct {
	URL string `json:"url"`
}

type openAIChatResp struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func toOpenAIMessages(messages []Message) []openAIMessage {
	out := make([]openAIMessage, 0, len(messages))
	for _, m := range messages {
		if len(m.Images) == 0 {
			out = append(out, openAIMessage{Role: string(m.Role), Content: m.Text})
			continue
		}
		parts := make([]openAIPart, 0, len(m.Images)+1)
		if m.Text != "" {
			parts = append(parts, openAIPart{Type: "text", Text: m.Text})
		}
		for _, img := range m.Images {
			parts = append(parts, openAIPart{Type: "image_url", ImageURL: &openAIImageURL{URL: img}})
		}
		out = append(out, openAIMessage{Role: string(m.Role), Content: parts})
	}
	return out
}

// Chat sends one non-streaming completion request and returns the reply text.
func (c *OpenAIClient) Chat(ctx context.Context, messages []Message, opts Options) (string, error) {
	reqBody := openAIChatReq{
		Model:       c.model,
		Messages:    toOpenAIMessages(messages),
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}
	if opts.JSON {
		reqBody.ResponseFormat = map[string]string{"type": "json_object"}
	}
	b, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if resp.StatusCode == http.StatusTooManyRequests {
			return "", &RateLimitError{Provider: c.Name(), RetryAfter: retryAfterFromHeaders(resp.Header), Body: string(body)}
		}
		err := fmt.Errorf("%s: unexpected status %s: %s", c.Name(), resp.Status, string(body))
		switch {
		case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
			return "", NewPermanentError(err)
		case resp.StatusCode == http.StatusBadRequest && strings.Contains(string(body), "context_length_exceeded"):
			return "", NewPermanentError(err)
		}
		return "", err
	}
	var out openAIChatResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%s: decode response: %w", c.Name(), err)
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return "", ErrEmptyReply
	}
	content := out.Choices[0].Message.Content
	if opts.JSON && !json.Valid([]byte(content)) {
		return "", ErrInvalidJSON
	}
	return content, nil
}
