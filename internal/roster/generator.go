// Package roster turns a one-line idea into a project descriptor and an
// ordered roster of agent roles, and persists it as agents.json.
package roster

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"agentforge/internal/llm"
	llmclient "agentforge/internal/llmClient"
	"agentforge/internal/utils"
	"agentforge/internal/workspace"
)

var (
	ErrGeneration = errors.New("roster: generation failed")
	ErrEmptyIdea  = errors.New("roster: idea is empty")
)

// GenerationError reports why a model reply was not accepted. It matches
// ErrGeneration with errors.Is.
type GenerationError struct {
	Stage string
	Raw   string
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("roster: %s: %v", e.Stage, e.Err)
}

func (e *GenerationError) Unwrap() []error { return []error{ErrGeneration, e.Err} }

// Result is a generated roster with its derived slug and save location.
type Result struct {
	Roster   Roster
	Slug     string
	SavePath string
}

type Generator struct {
	LLM       llmclient.ChatClient
	Workspace *workspace.Workspace
	Log       *log.Logger
}

func New(client llmclient.ChatClient, ws *workspace.Workspace) *Generator {
	return &Generator{LLM: client, Workspace: ws, Log: log.Default()}
}

// Generate asks the model for a roster, validates its shape, derives the
// slug and writes agents.json. Existing projects with the same slug are
// overwritten.
func (g *Generator) Generate(ctx context.Context, idea string) (Result, error) {
	idea = strings.TrimSpace(idea)
	if idea == "" {
		return Result{}, ErrEmptyIdea
	}
	ctx = llm.WithPhase(ctx, "roster")
	reply, err := g.LLM.Chat(ctx, []llmclient.Message{
		llmclient.System(systemPrompt()),
		llmclient.User(idea),
	}, llmclient.Options{Temperature: 0.3, MaxTokens: 8192, JSON: true})
	if err != nil {
		return Result{}, &GenerationError{Stage: "model call", Err: err}
	}

	r, err := Parse(reply)
	if err != nil {
		return Result{}, err
	}
	slug := deriveSlug(r.Project.Name, idea)
	r.Idea = idea
	r.ProjectName = slug

	savePath, err := Save(g.Workspace, r)
	if err != nil {
		return Result{}, err
	}
	if g.Log != nil {
		g.Log.Printf("roster: %d agents for %q saved to %s", len(r.Agents), slug, savePath)
	}
	return Result{Roster: r, Slug: slug, SavePath: savePath}, nil
}

// Parse strictly decodes a model reply. It fails unless the reply is one
// JSON object with a "project" object and a non-empty "agents" array whose
// entries all name a role.
func Parse(reply string) (Roster, error) {
	raw := utils.StripFences(reply)
	var shape map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &shape); err != nil {
		return Roster{}, &GenerationError{Stage: "parse", Raw: reply, Err: err}
	}
	proj := bytes.TrimSpace(shape["project"])
	if len(proj) == 0 || proj[0] != '{' {
		return Roster{}, &GenerationError{Stage: "shape", Raw: reply, Err: errors.New(`missing "project" object`)}
	}
	agents := bytes.TrimSpace(shape["agents"])
	if len(agents) == 0 || agents[0] != '[' {
		return Roster{}, &GenerationError{Stage: "shape", Raw: reply, Err: errors.New(`missing "agents" array`)}
	}

	var r Roster
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return Roster{}, &GenerationError{Stage: "parse", Raw: reply, Err: err}
	}
	r.raw = shape
	if len(r.Agents) == 0 {
		return Roster{}, &GenerationError{Stage: "shape", Raw: reply, Err: errors.New("agents array is empty")}
	}
	for i, a := range r.Agents {
		if strings.TrimSpace(a.Role) == "" {
			return Roster{}, &GenerationError{Stage: "shape", Raw: reply, Err: fmt.Errorf("agent %d has no role", i)}
		}
	}
	return r, nil
}

// deriveSlug prefers the project name, else the first three words of the idea.
func deriveSlug(name, idea string) string {
	if s := workspace.Slugify(name); workspace.CheckSlug(s) == nil {
		return s
	}
	words := strings.Fields(idea)
	if len(words) > 3 {
		words = words[:3]
	}
	if s := workspace.Slugify(strings.Join(words, " ")); workspace.CheckSlug(s) == nil {
		return s
	}
	return "Untitled"
}

// Save writes r as <slug>/agents.json and returns the path.
func Save(ws *workspace.Workspace, r Roster) (string, error) {
	slug := r.Slug()
	if err := ws.EnsureProject(slug); err != nil {
		return "", err
	}
	data, err := r.Document()
	if err != nil {
		return "", err
	}
	return ws.WriteProjectFile(slug, workspace.RosterFile, data)
}

// Document renders agents.json: the full decoded object when there is one,
// with idea and project_name set from r.
func (r Roster) Document() ([]byte, error) {
	if r.raw == nil {
		return json.MarshalIndent(r, "", "  ")
	}
	doc := make(map[string]json.RawMessage, len(r.raw)+2)
	for k, v := range r.raw {
		doc[k] = v
	}
	for k, v := range map[string]string{"idea": r.Idea, "project_name": r.ProjectName} {
		if v == "" {
			continue
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		doc[k] = b
	}
	return json.MarshalIndent(doc, "", "  ")
}

// Load reads a project's agents.json.
func Load(ws *workspace.Workspace, slug string) (Roster, error) {
	data, err := ws.ReadProjectFile(slug, workspace.RosterFile)
	if err != nil {
		return Roster{}, fmt.Errorf("roster: load %s: %w", slug, err)
	}
	var r Roster
	if err := json.Unmarshal(data, &r); err != nil {
		return Roster{}, fmt.Errorf("roster: decode %s: %w", slug, err)
	}
	if err := json.Unmarshal(data, &r.raw); err != nil {
		return Roster{}, fmt.Errorf("roster: decode %s: %w", slug, err)
	}
	if r.ProjectName == "" {
		r.ProjectName = slug
	}
	return r, nil
}
