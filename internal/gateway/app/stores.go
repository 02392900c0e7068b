package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"agentforge/internal/gateway/config"
	"agentforge/internal/llm"
	llmclient "agentforge/internal/llmClient"
	"agentforge/internal/remotesync"
	"agentforge/internal/search"
	"agentforge/internal/settings"
)

// NewLLM builds the model client for cfg with retry, rate limiting and
// call logging applied.
func NewLLM(ctx context.Context, cfg config.LLMConfig) (llmclient.ChatClient, error) {
	var base llmclient.ChatClient
	switch cfg.Provider {
	case "gemini":
		if cfg.GeminiKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for the gemini provider")
		}
		g, err := llmclient.NewGeminiClient(ctx, cfg.GeminiKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		base = g
	case "openai", "":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("LLM_API_KEY or MOONSHOT_API_KEY is required")
		}
		base = llmclient.NewOpenAIClient(cfg.APIKey, cfg.BaseURL, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.Provider)
	}
	return llm.Wrap(base,
		llm.WithLogging(log.Default()),
		llm.Retry(cfg.Retries, 500*time.Millisecond),
		llm.RateLimit(cfg.RPS, cfg.Burst),
	), nil
}

// NewSearch reads the key from the settings store on every call, so
// runtime overrides take effect without a restart.
func NewSearch(st *settings.Store) *search.Cached {
	return search.NewCached(search.NewWeb(st.SearchKeyFunc("")), 256, 15*time.Minute)
}

// NewRemote returns nil when no sync backend is configured.
func NewRemote(cfg config.SyncConfig) (remotesync.Syncer, error) {
	switch cfg.Backend {
	case "":
		return nil, nil
	case "github":
		if cfg.GitHubToken == "" {
			return nil, fmt.Errorf("GITHUB_TOKEN is required for github sync")
		}
		gh := remotesync.NewGitHub(cfg.GitHubToken)
		if cfg.GitHubAPI != "" {
			var err error
			if gh, err = gh.WithBaseURL(cfg.GitHubAPI); err != nil {
				return nil, fmt.Errorf("invalid GITHUB_API_URL: %w", err)
			}
		}
		return gh, nil
	case "s3":
		a := cfg.Artifact
		s3, err := remotesync.NewS3(remotesync.S3Config{
			Endpoint:  a.Endpoint,
			Region:    a.Region,
			AccessKey: a.AccessKey,
			SecretKey: a.SecretKey,
			Bucket:    a.Bucket,
			UseSSL:    a.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize s3 sync: %w", err)
		}
		log.Printf("remote sync: s3 bucket=%s endpoint=%s", a.Bucket, a.Endpoint)
		return s3, nil
	}
	return nil, fmt.Errorf("unknown SYNC_BACKEND %q", cfg.Backend)
}
