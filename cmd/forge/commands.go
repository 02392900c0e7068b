package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"agentforge/internal/build"
	llmclient "agentforge/internal/llmClient"
	"agentforge/internal/roster"
)

func generateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate <idea...>",
		Short: "Generate an agent roster from an idea",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLLM(cmd.Context(), func(e *env, client llmclient.ChatClient) error {
				res, err := roster.New(client, e.ws).Generate(cmd.Context(), strings.Join(args, " "))
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(res.Roster)
				}
				fmt.Printf("Project %s saved to %s\n", res.Slug, res.SavePath)
				renderAgents(os.Stdout, res.Roster)
				return nil
			})
		},
	}
}

func rosterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "roster <project>",
		Short: "Show the saved roster of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			r, err := roster.Load(e.ws, args[0])
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(r)
			}
			renderAgents(os.Stdout, r)
			return nil
		},
	}
}

func renderAgents(w io.Writer, r roster.Roster) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetTitle(r.Project.Name)
	tw.AppendHeader(table.Row{"#", "Role", "Department", "Goal"})
	for i, a := range r.Agents {
		tw.AppendRow(table.Row{i + 1, a.Role, a.Department, a.Goal})
	}
	tw.Render()
}

func buildCmd() *cobra.Command {
	var (
		sync    bool
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "build <project>",
		Short: "Run every agent of a saved roster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			return withLLM(ctx, func(e *env, client llmclient.ChatClient) error {
				r, err := roster.Load(e.ws, args[0])
				if err != nil {
					return err
				}
				o, err := e.orchestrator(client)
				if err != nil {
					return err
				}
				opts := build.Options{RemoteSync: sync}
				if viper.GetBool("json") {
					return o.Stream(ctx, r, opts, build.NewNDJSONSink(os.Stdout))
				}
				return streamTable(ctx, os.Stdout, o, r, opts)
			})
		},
	}
	cmd.Flags().BoolVar(&sync, "sync", false, "mirror written files to the configured remote")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "abort the build after this long")
	return cmd
}

// streamTable prints events as they arrive and a per-agent summary at the end.
func streamTable(ctx context.Context, w io.Writer, o *build.Orchestrator, r roster.Roster, opts build.Options) error {
	type tally struct{ files, warnings, errors int }
	counts := map[string]*tally{}
	var order []string
	var last build.Event
	for ev := range o.Build(ctx, r, opts) {
		last = ev
		fmt.Fprintln(w, formatEvent(ev))
		if ev.Agent == "" {
			continue
		}
		t, ok := counts[ev.Agent]
		if !ok {
			t = &tally{}
			counts[ev.Agent] = t
			order = append(order, ev.Agent)
		}
		switch ev.Status {
		case build.StatusFile:
			t.files++
		case build.StatusWarning:
			t.warnings++
		case build.StatusError:
			t.errors++
		}
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Agent", "Files", "Warnings", "Errors"})
	for _, a := range order {
		t := counts[a]
		tw.AppendRow(table.Row{a, t.files, t.warnings, t.errors})
	}
	tw.Render()
	if last.Status == build.StatusFatal {
		return fmt.Errorf("build failed: %s", last.Message)
	}
	return ctx.Err()
}

func formatEvent(ev build.Event) string {
	switch ev.Status {
	case build.StatusFile:
		return fmt.Sprintf("[%s] %s wrote %s", ev.Status, ev.Agent, ev.Path)
	case build.StatusGitHub:
		return fmt.Sprintf("[%s] synced %s", ev.Status, ev.Path)
	case build.StatusSearch:
		return fmt.Sprintf("[%s] %s: %s", ev.Status, ev.Agent, ev.Query)
	case build.StatusComplete:
		return fmt.Sprintf("[%s] files in %s", ev.Status, ev.Directory)
	}
	if ev.Agent != "" {
		return fmt.Sprintf("[%s] %s: %s", ev.Status, ev.Agent, ev.Message)
	}
	return fmt.Sprintf("[%s] %s", ev.Status, ev.Message)
}

func editCmd() *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "edit <project> <path>",
		Short: "Replace a project file, reading content from --from or stdin",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			var content []byte
			if from == "" || from == "-" {
				content, err = io.ReadAll(cmd.InOrStdin())
			} else {
				content, err = os.ReadFile(from)
			}
			if err != nil {
				return err
			}
			res, err := e.edits().Apply(cmd.Context(), args[0], args[1], string(content))
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(res)
			}
			fmt.Println(res.Message)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "file to read new content from (default stdin)")
	return cmd
}

func restoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <project> <backup-id> [target]",
		Short: "Restore a backup over its original path or target",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			target := ""
			if len(args) == 3 {
				target = args[2]
			}
			msg, err := e.edits().Restore(cmd.Context(), args[0], args[1], target)
			if err != nil {
				return err
			}
			fmt.Println(msg)
			return nil
		},
	}
}

func backupsCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "backups <project>",
		Short: "List backups of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			list, err := e.backups.List(args[0])
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(list)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"ID", "Path", "Created", "Size"})
			for _, b := range list {
				if path != "" && b.Path != path {
					continue
				}
				tw.AppendRow(table.Row{b.ID, b.Path, b.CreatedAt.Format(time.DateTime), b.Size})
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "only backups of this file")
	return cmd
}
