package llmclient

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	genai "google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiClient is a thin wrapper around the official genai client.
// It only focuses on the API call itself. Cross-cutting concerns
// (rate limiting, retries, logging) are applied via middleware.
type GeminiClient struct {
	cli   *genai.Client
	model string
}

func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if strings.TrimSpace(model) == "" {
		model = DefaultGeminiModel
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  strings.TrimSpace(apiKey),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &GeminiClient{cli: cli, model: model}, nil
}

func (g *GeminiClient) Name() string { return "Gemini:" + g.model }
func (g *GeminiClient) Close() error { return nil }

// Chat maps the first leading system messages to the system instruction.
// Gemini has no mid-conversation system role, so later system messages are
// sent as user turns tagged with [system].
func (g *GeminiClient) Chat(ctx context.Context, messages []Message, opts Options) (string, error) {
	var system []*genai.Part
	contents := make([]*genai.Content, 0, len(messages))
	leading := true
	for _, m := range messages {
		if m.Role == RoleSystem && leading {
			system = append(system, genai.NewPartFromText(m.Text))
			continue
		}
		leading = false
		role := genai.RoleUser
		text := m.Text
		switch m.Role {
		case RoleAssistant:
			role = genai.RoleModel
		case RoleSystem:
			text = "[system] " + text
		}
		parts := []*genai.Part{}
		if text != "" {
			parts = append(parts, genai.NewPartFromText(text))
		}
		for _, img := range m.Images {
			p, err := geminiImagePart(img)
			if err != nil {
				return "", NewPermanentError(err)
			}
			parts = append(parts, p)
		}
		contents = append(contents, &genai.Content{Role: role, Parts: parts})
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(opts.Temperature),
		MaxOutputTokens: int32(opts.MaxTokens),
	}
	if len(system) > 0 {
		cfg.SystemInstruction = &genai.Content{Parts: system}
	}
	if opts.JSON {
		cfg.ResponseMIMEType = "application/json"
	}

	resp, err := g.cli.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyReply
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil {
			b.WriteString(p.Text)
		}
	}
	if b.Len() == 0 {
		return "", ErrEmptyReply
	}
	return b.String(), nil
}

// geminiImagePart accepts "data:<mime>;base64,<payload>" or a plain URI.
func geminiImagePart(img string) (*genai.Part, error) {
	if !strings.HasPrefix(img, "data:") {
		return genai.NewPartFromURI(img, "image/*"), nil
	}
	header, payload, ok := strings.Cut(strings.TrimPrefix(img, "data:"), ",")
	if !ok || !strings.HasSuffix(header, ";base64") {
		return nil, fmt.Errorf("gemini: unsupported image data url")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("gemini: decode image: %w", err)
	}
	return genai.NewPartFromBytes(data, strings.TrimSuffix(header, ";base64")), nil
}
