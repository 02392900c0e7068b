package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"agentforge/internal/backup"
	"agentforge/internal/build"
	"agentforge/internal/edit"
	"agentforge/internal/gateway/app"
	"agentforge/internal/gateway/config"
	llmclient "agentforge/internal/llmClient"
	"agentforge/internal/settings"
	"agentforge/internal/workspace"
)

var rootCmd = &cobra.Command{
	Use:   "forge",
	Short: "AgentForge CLI",
	Long: `AgentForge turns a one-line idea into a roster of agent roles and lets
each role write files into a project workspace.

- generate: ask the model for a roster and save it as <project>/agents.json
- build: run every role of a saved roster and stream progress
- edit / restore / backups: change generated files with automatic backups`,
	SilenceUsage: true,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("AGENTFORGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().String("projects-root", "", "projects directory (defaults to PROJECTS_ROOT or ./projects)")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log model calls to stderr")
	_ = viper.BindPFlag("projects-root", rootCmd.PersistentFlags().Lookup("projects-root"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func registerCommands() {
	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(buildCmd())
	rootCmd.AddCommand(rosterCmd())
	rootCmd.AddCommand(editCmd())
	rootCmd.AddCommand(restoreCmd())
	rootCmd.AddCommand(backupsCmd())
}

// env holds what one command invocation needs. The model client is only
// created for commands that call it.
type env struct {
	cfg     *config.Config
	ws      *workspace.Workspace
	backups *backup.Store
}

func loadEnv() (*env, error) {
	if !viper.GetBool("verbose") {
		log.SetOutput(io.Discard)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if root := viper.GetString("projects-root"); root != "" {
		cfg.ProjectsRoot = root
	}
	ws, err := workspace.NewOS(cfg.ProjectsRoot)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, ws: ws, backups: backup.NewStore(ws)}, nil
}

func (e *env) llm(ctx context.Context) (llmclient.ChatClient, error) {
	return app.NewLLM(ctx, e.cfg.LLM)
}

func (e *env) orchestrator(client llmclient.ChatClient) (*build.Orchestrator, error) {
	o := build.NewOrchestrator(client, app.NewSearch(settings.New(e.cfg.SearchKey)), e.ws, e.backups)
	remote, err := app.NewRemote(e.cfg.Sync)
	if err != nil {
		return nil, err
	}
	o.Remote = remote
	return o, nil
}

func (e *env) edits() *edit.Service {
	return edit.NewService(e.ws, e.backups)
}

func withLLM(ctx context.Context, fn func(*env, llmclient.ChatClient) error) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	client, err := e.llm(ctx)
	if err != nil {
		return err
	}
	defer client.Close()
	return fn(e, client)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
