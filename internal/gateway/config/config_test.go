package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "APP_ENV", "PROJECTS_ROOT", "LLM_PROVIDER", "LLM_API_KEY", "MOONSHOT_API_KEY",
		"GEMINI_API_KEY", "GITHUB_TOKEN", "SYNC_BACKEND", "ARTIFACT_S3_ENDPOINT", "ARTIFACT_MINIO_ENDPOINT", "LLM_RETRIES"} {
		t.Setenv(k, "")
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != ":5000" || cfg.Env != "local" || cfg.ProjectsRoot != "projects" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.LLM.Provider != "openai" || cfg.LLM.Retries != 3 {
		t.Fatalf("unexpected llm defaults: %+v", cfg.LLM)
	}
	if cfg.Sync.Backend != "" {
		t.Fatalf("sync should be off without a token, got %q", cfg.Sync.Backend)
	}
	if cfg.Sync.Artifact.Endpoint != "localhost:9000" || cfg.Sync.Artifact.UseSSL {
		t.Fatalf("unexpected local artifact config: %+v", cfg.Sync.Artifact)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("APP_ENV", "production")
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("MOONSHOT_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("GITHUB_TOKEN", "ghp_x")
	t.Setenv("SYNC_BACKEND", "")
	t.Setenv("ARTIFACT_S3_USE_SSL", "")
	t.Setenv("LLM_RPS", "2.5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != ":8080" {
		t.Fatalf("port = %q", cfg.Port)
	}
	if cfg.LLM.Provider != "gemini" || cfg.LLM.RPS != 2.5 {
		t.Fatalf("llm = %+v", cfg.LLM)
	}
	if cfg.Sync.Backend != "github" {
		t.Fatalf("backend = %q", cfg.Sync.Backend)
	}
	if !cfg.Sync.Artifact.UseSSL {
		t.Fatalf("non-local env should default to TLS")
	}
}
