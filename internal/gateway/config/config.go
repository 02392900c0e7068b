package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port         string
	Env          string
	ProjectsRoot string

	LLM       LLMConfig
	SearchKey string
	Sync      SyncConfig

	ProjectStorePath string
	MemoryDir        string
}

type LLMConfig struct {
	// Provider is "openai" (any OpenAI-compatible endpoint) or "gemini".
	Provider    string
	APIKey      string
	BaseURL     string
	Model       string
	GeminiKey   string
	GeminiModel string
	RPS         float64
	Burst       int
	Retries     int
}

type SyncConfig struct {
	// Backend is "github", "s3" or "" for none.
	Backend     string
	GitHubToken string
	GitHubAPI   string
	Artifact    ArtifactConfig
}

type ArtifactConfig struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	env := firstNonEmpty(strings.TrimSpace(os.Getenv("APP_ENV")), "local")
	root := firstNonEmpty(strings.TrimSpace(os.Getenv("PROJECTS_ROOT")), "projects")

	cfg := &Config{
		Port:             normalizePort(firstNonEmpty(os.Getenv("PORT"), "5000")),
		Env:              env,
		ProjectsRoot:     root,
		LLM:              loadLLMConfig(),
		SearchKey:        strings.TrimSpace(os.Getenv("SERPER_API_KEY")),
		Sync:             loadSyncConfig(env),
		ProjectStorePath: firstNonEmpty(strings.TrimSpace(os.Getenv("PROJECT_STORE_PATH")), filepath.Join("tmp", "projects.json")),
		MemoryDir:        firstNonEmpty(strings.TrimSpace(os.Getenv("MEMORY_DB_DIR")), filepath.Join("tmp", "memory")),
	}
	return cfg, nil
}

func loadLLMConfig() LLMConfig {
	geminiKey := strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	provider := strings.ToLower(strings.TrimSpace(os.Getenv("LLM_PROVIDER")))
	if provider == "" {
		provider = "openai"
		if geminiKey != "" && os.Getenv("MOONSHOT_API_KEY") == "" && os.Getenv("LLM_API_KEY") == "" {
			provider = "gemini"
		}
	}
	return LLMConfig{
		Provider:    provider,
		APIKey:      strings.TrimSpace(firstNonEmpty(os.Getenv("LLM_API_KEY"), os.Getenv("MOONSHOT_API_KEY"))),
		BaseURL:     firstNonEmpty(strings.TrimSpace(os.Getenv("LLM_BASE_URL")), "https://api.moonshot.ai/v1"),
		Model:       firstNonEmpty(strings.TrimSpace(os.Getenv("LLM_MODEL")), "kimi-k2-0905-preview"),
		GeminiKey:   geminiKey,
		GeminiModel: firstNonEmpty(strings.TrimSpace(os.Getenv("GEMINI_MODEL")), "gemini-2.5-flash"),
		RPS:         envFloat("LLM_RPS", 0),
		Burst:       envInt("LLM_BURST", 1),
		Retries:     envInt("LLM_RETRIES", 3),
	}
}

func loadSyncConfig(env string) SyncConfig {
	token := strings.TrimSpace(os.Getenv("GITHUB_TOKEN"))
	backend := strings.ToLower(strings.TrimSpace(os.Getenv("SYNC_BACKEND")))
	if backend == "" && token != "" {
		backend = "github"
	}
	return SyncConfig{
		Backend:     backend,
		GitHubToken: token,
		GitHubAPI:   strings.TrimSpace(os.Getenv("GITHUB_API_URL")),
		Artifact:    loadArtifactConfig(env),
	}
}

func loadArtifactConfig(env string) ArtifactConfig {
	local := strings.EqualFold(strings.TrimSpace(env), "local")
	cfg := ArtifactConfig{
		Endpoint:  strings.TrimSpace(os.Getenv("ARTIFACT_S3_ENDPOINT")),
		Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_REGION")), "us-east-1"),
		AccessKey: firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER"))),
		SecretKey: firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD"))),
		Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_BUCKET")), "agentforge-projects"),
		UseSSL:    envBool("ARTIFACT_S3_USE_SSL", !local),
	}
	if local {
		cfg.Endpoint = firstNonEmpty(cfg.Endpoint, strings.TrimSpace(os.Getenv("ARTIFACT_MINIO_ENDPOINT")), "localhost:9000")
	}
	return cfg
}

func normalizePort(p string) string {
	p = strings.TrimSpace(p)
	if strings.HasPrefix(p, ":") {
		return p
	}
	return ":" + p
}

func envInt(key string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return def
	}
	return v
}

func envFloat(key string, def float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv(key)), 64)
	if err != nil {
		return def
	}
	return v
}

func envBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
