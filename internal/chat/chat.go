// Package chat lets a user talk to one agent of a project. Agents can edit
// project files by replying with an edit action; rejected edits are fed
// back to the model for one correction.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"agentforge/internal/edit"
	"agentforge/internal/llm"
	llmclient "agentforge/internal/llmClient"
	"agentforge/internal/workspace"
)

var ErrBadRequest = errors.New("chat: project, role and a message or image are required")

// History stores conversation lines per project and role.
type History interface {
	Context(ctx context.Context, project, role string) (string, error)
	Append(ctx context.Context, project, role, content string) error
}

type Request struct {
	Project string `json:"project_name"`
	Role    string `json:"agent_role"`
	Message string `json:"message"`
	// Image is a data: or http(s) URL sent as an image part.
	Image string `json:"image_data,omitempty"`
}

type Reply struct {
	Reply      string    `json:"reply"`
	EditStatus string    `json:"edit_status,omitempty"`
	State      HealState `json:"-"`
}

type Agent struct {
	LLM       llmclient.ChatClient
	Edits     *edit.Service
	Workspace *workspace.Workspace
	// Memory may be nil.
	Memory     History
	MaxRetries int
	Log        *log.Logger
}

func NewAgent(client llmclient.ChatClient, edits *edit.Service, ws *workspace.Workspace, mem History) *Agent {
	return &Agent{LLM: client, Edits: edits, Workspace: ws, Memory: mem, MaxRetries: 1, Log: log.Default()}
}

const editInstructions = `You can modify project files. To change a file, include exactly one JSON object in your reply:
{"action": "edit", "file": "relative/path.ext", "content": "full new file content"}
The content replaces the whole file and must be valid for its file type. Paths are relative to the project source directory.`

func (a *Agent) Chat(ctx context.Context, req Request) (Reply, error) {
	req.Project = strings.TrimSpace(req.Project)
	req.Role = strings.TrimSpace(req.Role)
	if req.Project == "" || req.Role == "" || (req.Message == "" && req.Image == "") {
		return Reply{}, ErrBadRequest
	}
	if err := workspace.CheckSlug(req.Project); err != nil {
		return Reply{}, err
	}

	msgs := []llmclient.Message{llmclient.System(a.systemPrompt(req))}
	if a.Memory != nil {
		history, err := a.Memory.Context(ctx, req.Project, req.Role)
		if err != nil {
			a.Log.Printf("chat: memory %s/%s: %v", req.Project, req.Role, err)
		} else if history != "" {
			msgs = append(msgs, llmclient.System("Context/History:\n"+history))
		}
	}
	user := llmclient.User(req.Message)
	if req.Image != "" {
		user.Images = []string{req.Image}
	}
	msgs = append(msgs, user)

	h := &healer{
		llm:        a.LLM,
		edits:      a.Edits,
		project:    req.Project,
		maxRetries: a.MaxRetries,
		opts:       llmclient.Options{Temperature: 0.7},
	}
	out, err := h.run(llm.WithPhase(ctx, "chat:"+req.Role), msgs)
	if err != nil {
		return Reply{}, fmt.Errorf("chat: %w", err)
	}
	if out.Retries > 0 || out.Edited {
		a.Log.Printf("chat: %s/%s edit %s after %d retries", req.Project, req.Role, out.State, out.Retries)
	}

	if a.Memory != nil {
		if err := a.Memory.Append(ctx, req.Project, req.Role, "User: "+req.Message); err != nil {
			a.Log.Printf("chat: save memory: %v", err)
		}
		if err := a.Memory.Append(ctx, req.Project, req.Role, "Agent: "+out.Reply); err != nil {
			a.Log.Printf("chat: save memory: %v", err)
		}
	}
	return Reply{Reply: out.Reply, EditStatus: out.Status, State: out.State}, nil
}

func (a *Agent) systemPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are the %s for the project '%s'. Answer the user's questions based on your role.", req.Role, req.Project)
	if a.Workspace != nil {
		files, err := a.Workspace.ListFiles(req.Project)
		if err != nil {
			a.Log.Printf("chat: list files %s: %v", req.Project, err)
		}
		if len(files) > 0 {
			b.WriteString("\n\nCurrent Project Files:\n")
			for _, f := range files {
				b.WriteString("- " + f + "\n")
			}
		}
	}
	b.WriteString("\n" + editInstructions)
	return b.String()
}
