package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"agentforge/internal/edit"
	"agentforge/internal/llm"
	llmclient "agentforge/internal/llmClient"
	"agentforge/internal/llmtool"
	"agentforge/internal/utils"
	"agentforge/internal/workspace"
)

// DebugResult is the outcome of one automatic fix attempt.
type DebugResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Thought string `json:"thought,omitempty"`
}

const (
	StatusFixed  = "fixed"
	StatusFailed = "failed"
)

// Debugger turns failing test output into a single file fix.
type Debugger struct {
	LLM       llmclient.ChatClient
	Edits     *edit.Service
	Workspace *workspace.Workspace
}

var debugTemplate = llmtool.StructuredPrompt{
	Purpose:      "You are an expert Debugging Agent. Analyze the test output and fix the code.",
	OutputFields: llmtool.MustFieldsFromStruct(EditAction{}),
	Rules: []string{
		"Fix the single file most responsible for the failure.",
		"Return the full corrected content of that file.",
	},
	OutputFormat: `{"thought": "Analysis of the error...", "action": "edit", "file": "filename.py", "content": "..."}`,
}.With(llmtool.PresetStrictJSON(), llmtool.PresetRelativePaths())

var debugPrompt = debugTemplate.MustRender()

func (d *Debugger) Debug(ctx context.Context, project, testOutput string) (DebugResult, error) {
	if strings.TrimSpace(project) == "" || strings.TrimSpace(testOutput) == "" {
		return DebugResult{}, ErrBadRequest
	}
	if err := workspace.CheckSlug(project); err != nil {
		return DebugResult{}, err
	}

	system := debugPrompt + "\nProject: " + project + "\n"
	if d.Workspace != nil {
		if files, err := d.Workspace.ListFiles(project); err == nil && len(files) > 0 {
			system += "Files:\n- " + strings.Join(files, "\n- ") + "\n"
		}
	}
	reply, err := d.LLM.Chat(llm.WithPhase(ctx, "debug"), []llmclient.Message{
		llmclient.System(system),
		llmclient.User("TEST OUTPUT:\n" + testOutput),
	}, llmclient.Options{Temperature: 0.2, JSON: true})
	if err != nil {
		return DebugResult{}, fmt.Errorf("chat: debug: %w", err)
	}

	var fix EditAction
	if err := json.Unmarshal([]byte(utils.StripFences(reply)), &fix); err != nil {
		return DebugResult{}, fmt.Errorf("chat: debug reply: %w", llmclient.ErrInvalidJSON)
	}
	if fix.File == "" || fix.Content == "" {
		return DebugResult{Status: StatusFailed, Message: "AI could not generate a fix action.", Thought: fix.Thought}, nil
	}
	res, err := d.Edits.Apply(ctx, project, fix.File, fix.Content)
	if err != nil {
		if !edit.IsRejected(err) {
			return DebugResult{}, err
		}
		return DebugResult{Status: StatusFailed, Message: err.Error(), Thought: fix.Thought}, nil
	}
	return DebugResult{Status: StatusFixed, Message: res.Message, Thought: fix.Thought}, nil
}
