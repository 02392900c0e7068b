package app

import (
	"context"
	"errors"
	"fmt"

	"agentforge/internal/backup"
	"agentforge/internal/build"
	"agentforge/internal/chat"
	"agentforge/internal/edit"
	"agentforge/internal/gateway/config"
	"agentforge/internal/gateway/handler"
	"agentforge/internal/gateway/projectstore"
	"agentforge/internal/gateway/server"
	llmclient "agentforge/internal/llmClient"
	"agentforge/internal/memory"
	"agentforge/internal/mentor"
	"agentforge/internal/roster"
	"agentforge/internal/settings"
	"agentforge/internal/workspace"
)

type App struct {
	server   *server.Server
	llm      llmclient.ChatClient
	memory   *memory.Store
	projects *projectstore.Store
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return NewWithConfig(ctx, cfg)
}

func NewWithConfig(ctx context.Context, cfg *config.Config) (*App, error) {
	client, err := NewLLM(ctx, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to init llm: %w", err)
	}
	ws, err := workspace.NewOS(cfg.ProjectsRoot)
	if err != nil {
		return nil, err
	}
	remote, err := NewRemote(cfg.Sync)
	if err != nil {
		return nil, err
	}
	mem, err := memory.New(memory.Config{DataDir: cfg.MemoryDir})
	if err != nil {
		return nil, err
	}

	projects := projectstore.NewFromEnv(ctx, cfg.ProjectStorePath)
	if err := projects.EnsureLoaded(ctx); err != nil {
		return nil, fmt.Errorf("failed to load project store: %w", err)
	}

	st := settings.New(cfg.SearchKey)
	backups := backup.NewStore(ws)
	edits := edit.NewService(ws, backups)
	coach := mentor.New(client)

	builder := build.NewOrchestrator(client, NewSearch(st), ws, backups)
	builder.Remote = remote
	builder.Observe = func(ev build.Event) {
		switch ev.Status {
		case build.StatusError, build.StatusWarning, build.StatusFatal, build.StatusComplete:
			coach.Log(fmt.Sprintf("Build %s: %s %s", ev.Status, ev.Agent, ev.Message))
		}
	}

	h := handler.New(handler.Deps{
		Workspace: ws,
		Roster:    roster.New(client, ws),
		Builder:   builder,
		Edits:     edits,
		Backups:   backups,
		Projects:  projects,
		Chat:      chat.NewAgent(client, edits, ws, mem),
		Debugger:  &chat.Debugger{LLM: client, Edits: edits, Workspace: ws},
		Mentor:    coach,
		Settings:  st,
		Remote:    remote,
	})

	return &App{
		server:   server.New(cfg.Port, server.NewRouter(h)),
		llm:      client,
		memory:   mem,
		projects: projects,
	}, nil
}

func (a *App) Start() error {
	return a.server.Start()
}

func (a *App) Shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	return errors.Join(err, a.memory.Close(), a.projects.Close(), a.llm.Close())
}
