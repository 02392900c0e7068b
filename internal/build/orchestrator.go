// Package build drives each agent of a roster through the search tool loop
// and the artifact step, streaming progress as events.
package build

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log"
	"strings"

	"agentforge/internal/backup"
	"agentforge/internal/llm"
	llmclient "agentforge/internal/llmClient"
	"agentforge/internal/llmtool"
	"agentforge/internal/remotesync"
	"agentforge/internal/roster"
	"agentforge/internal/search"
	"agentforge/internal/utils"
	"agentforge/internal/validate"
	"agentforge/internal/workspace"

	"github.com/google/uuid"
)

// Options control one build.
type Options struct {
	// RemoteSync requests mirroring to the configured Syncer.
	RemoteSync bool
	// RunID labels logs and the first event; generated when empty.
	RunID string
}

type Orchestrator struct {
	LLM       llmclient.ChatClient
	Search    search.Provider
	Workspace *workspace.Workspace
	Backups   *backup.Store
	// Remote may be nil when no sync backend is configured.
	Remote remotesync.Syncer
	Log    *log.Logger
	// MaxToolIters bounds the search loop per agent.
	MaxToolIters int
	// Observe sees every event delivered to the consumer.
	Observe func(Event)
}

func NewOrchestrator(client llmclient.ChatClient, provider search.Provider, ws *workspace.Workspace, backups *backup.Store) *Orchestrator {
	return &Orchestrator{
		LLM:          client,
		Search:       provider,
		Workspace:    ws,
		Backups:      backups,
		Log:          log.Default(),
		MaxToolIters: llmtool.DefaultMaxIters,
	}
}

// Build returns the event sequence of one build. Nothing runs until the
// sequence is ranged over; stopping the range aborts the build before the
// next model call. The sequence always ends with a complete or fatal event
// unless the consumer stops early.
func (o *Orchestrator) Build(ctx context.Context, r roster.Roster, opts Options) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		if opts.RunID == "" {
			opts.RunID = uuid.NewString()
		}
		run := &buildRun{o: o, ctx: ctx, roster: r, opts: opts, yield: yield, slug: r.Slug()}
		run.exec()
	}
}

// Stream runs a build into sink. A sink error aborts the build and is returned.
func (o *Orchestrator) Stream(ctx context.Context, r roster.Roster, opts Options, sink Sink) error {
	var sendErr error
	for ev := range o.Build(ctx, r, opts) {
		if err := sink.Send(ev); err != nil {
			sendErr = err
			break
		}
	}
	return sendErr
}

var errAborted = errors.New("build: consumer stopped")

type buildRun struct {
	o      *Orchestrator
	ctx    context.Context
	roster roster.Roster
	opts   Options
	slug   string
	yield  func(Event) bool

	inYield bool
	aborted bool
	repo    *remotesync.Repo
}

func (b *buildRun) logf(format string, args ...any) {
	logger := b.o.Log
	if logger == nil {
		logger = log.Default()
	}
	id := b.opts.RunID
	if len(id) > 8 {
		id = id[:8]
	}
	logger.Printf("build[%s]: "+format, append([]any{id}, args...)...)
}

// emit delivers ev and reports whether the consumer wants more.
func (b *buildRun) emit(ev Event) bool {
	if b.aborted {
		return false
	}
	b.inYield = true
	more := b.yield(ev)
	b.inYield = false
	if !more {
		b.aborted = true
		b.logf("consumer stopped after %s event", ev.Status)
		return false
	}
	if b.o.Observe != nil {
		b.o.Observe(ev)
	}
	return true
}

func (b *buildRun) exec() {
	defer func() {
		p := recover()
		if p == nil {
			return
		}
		// a panic in the consumer's loop body is theirs to handle
		if b.inYield {
			panic(p)
		}
		b.logf("panic: %v", p)
		b.emit(fatalEvent(fmt.Sprint(p)))
	}()

	if err := b.init(); err != nil {
		if !errors.Is(err, errAborted) {
			b.logf("init failed: %v", err)
			b.emit(fatalEvent(err.Error()))
		}
		return
	}
	for _, agent := range b.roster.Agents {
		if !b.runAgent(agent) {
			return
		}
	}
	b.emit(completeEvent(b.o.Workspace.SrcDir(b.slug)))
}

func (b *buildRun) init() error {
	if err := b.o.Workspace.EnsureProject(b.slug); err != nil {
		return err
	}
	name := b.roster.Project.Name
	if name == "" {
		name = b.slug
	}
	start := startEvent(fmt.Sprintf("Starting build for %s...", name))
	start.RunID = b.opts.RunID
	if !b.emit(start) {
		return errAborted
	}
	if !b.opts.RemoteSync {
		return nil
	}
	if b.o.Remote == nil {
		if !b.emit(errorEvent("", "Remote sync is not configured")) {
			return errAborted
		}
		return nil
	}
	who, err := b.o.Remote.Authenticate(b.ctx)
	if err != nil {
		b.logf("remote auth: %v", err)
		if !b.emit(errorEvent("", "GitHub Authentication Failed")) {
			return errAborted
		}
		return nil
	}
	if !b.emit(startEvent("GitHub Sync Enabled: " + who.Login)) {
		return errAborted
	}
	repo, err := b.o.Remote.EnsureRepo(b.ctx, who, b.slug)
	if err != nil {
		b.logf("remote repo: %v", err)
		if !b.emit(errorEvent("", "Remote repository unavailable: "+llm.RedactSecrets(err.Error()))) {
			return errAborted
		}
		return nil
	}
	b.repo = &repo
	return nil
}

// runAgent processes one role and reports whether the build continues.
func (b *buildRun) runAgent(a roster.Agent) bool {
	role := a.Role
	if role == "" {
		role = "Agent"
	}
	if !b.emit(thinkingEvent(role)) {
		return false
	}

	system := artifactPrompt
	if b.o.Search != nil {
		system = artifactPromptWithSearch
	}
	loop := &llmtool.SearchLoop{
		LLM:            b.o.LLM,
		Search:         b.o.Search,
		MaxIters:       b.o.MaxToolIters,
		MaxResults:     search.DefaultMaxResults,
		Options:        llmclient.Options{Temperature: 0.3, MaxTokens: 4096},
		SummaryOptions: llmclient.Options{Temperature: 0.2},
	}
	ctx := llm.WithPhase(b.ctx, "build:"+role)
	out, err := loop.Run(ctx, []llmclient.Message{
		llmclient.System(system),
		llmclient.User(agentContext(b.roster.Project, a)),
	}, func(s llmtool.Step) bool {
		switch s.Kind {
		case llmtool.StepSearch:
			b.logf("%s searching: %s", role, s.Query)
			return b.emit(searchEvent(role, s.Query))
		case llmtool.StepFailed:
			b.logf("%s search %q: %s", role, s.Query, s.Message)
			return b.emit(thoughtEvent(role, s.Message))
		default:
			return b.emit(thoughtEvent(role, s.Message))
		}
	})
	if errors.Is(err, llmtool.ErrAborted) {
		return false
	}
	if err != nil {
		b.logf("%s: model: %v", role, err)
		return b.emit(errorEvent(role, llm.RedactSecrets(err.Error())))
	}

	art, err := ParseArtifact(out.Final)
	if err != nil {
		b.logf("%s: %v", role, err)
		return b.emit(errorEvent(role, "Failed to parse output: "+err.Error()))
	}
	if !b.emit(thoughtEvent(role, art.Thought)) {
		return false
	}
	for _, f := range art.Files {
		if !b.writeFile(role, f) {
			return false
		}
	}
	return true
}

// writeFile validates, backs up, writes and mirrors one file. Problems are
// reported as warnings; only consumer loss stops the build.
func (b *buildRun) writeFile(role string, f File) bool {
	rel, err := workspace.CheckRelPath(f.Path)
	if err != nil {
		return b.emit(warningEvent(role, fmt.Sprintf("Skipping %s: unsafe path", f.Path)))
	}
	content := utils.CleanFileContent(f.Content)
	if res := validate.Content(content, rel); !res.Valid {
		if !b.emit(warningEvent(role, fmt.Sprintf("Fixing %s: %s", rel, res.Reason))) {
			return false
		}
	}

	written, err := b.store(rel, content)
	if err != nil {
		b.logf("%s: write %s: %v", role, rel, err)
		return b.emit(warningEvent(role, fmt.Sprintf("Could not write %s: %v", rel, err)))
	}
	if !b.emit(fileEvent(role, rel)) {
		return false
	}

	if b.repo == nil {
		return true
	}
	msg := fmt.Sprintf("Agent %s update: %s", role, rel)
	if err := b.o.Remote.Upsert(b.ctx, *b.repo, "src/"+rel, written, msg); err != nil {
		b.logf("remote upload %s: %v", rel, err)
		return true
	}
	return b.emit(githubEvent(rel))
}

// store backs up and writes rel under the project lock, returning the
// resulting file content.
func (b *buildRun) store(rel, content string) ([]byte, error) {
	ws := b.o.Workspace
	unlock := ws.Lock(b.slug)
	defer unlock()

	if b.o.Backups != nil {
		if bk, ok, err := b.o.Backups.Backup(b.slug, rel); err != nil {
			b.logf("backup %s: %v", rel, err)
		} else if ok {
			b.logf("backed up %s as %s", rel, bk.ID)
		}
	}
	appended, err := ws.WriteArtifact(b.slug, rel, []byte(content))
	if err != nil {
		return nil, err
	}
	if !appended {
		return []byte(content), nil
	}
	return ws.ReadFile(b.slug, rel)
}

// Directory is where a roster's files land.
func (o *Orchestrator) Directory(r roster.Roster) string {
	return o.Workspace.SrcDir(strings.TrimSpace(r.Slug()))
}
