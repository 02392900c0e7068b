package build

import (
	"fmt"
	"strings"

	"agentforge/internal/llmtool"
	"agentforge/internal/roster"
)

var artifactTemplate = llmtool.StructuredPrompt{
	Purpose: "You are one member of an AI software team. Produce the concrete files your role contributes to the project: " +
		"code, configuration, documentation or plans.",
	Background:   "Other agents work on the same project before and after you. Markdown documents you emit are appended to existing ones; other files replace existing versions.",
	OutputFields: llmtool.MustFieldsFromStruct(artifactReply{}),
	Rules: []string{
		"Emit complete file contents, never placeholders or ellipses.",
		"Keep code syntactically valid for its language; balance every brace.",
		"Prefer a few substantial files over many stubs.",
		"Cite web sources you used in the documents you write.",
	},
	OutputFormat: `{"thought": "...", "files": {"path/to/file.ext": "content"}}`,
}.With(llmtool.PresetStrictJSON(), llmtool.PresetRelativePaths())

var (
	artifactPrompt           = artifactTemplate.MustRender()
	artifactPromptWithSearch = withTools(artifactTemplate, llmtool.SearchAffordance).MustRender()
)

func withTools(p llmtool.StructuredPrompt, tools string) llmtool.StructuredPrompt {
	p.Tools = tools
	return p
}

func agentContext(p roster.Project, a roster.Agent) string {
	var b strings.Builder
	b.WriteString("Generate artifacts for:\n")
	fmt.Fprintf(&b, "Project: %s\n", p.Name)
	if p.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", p.Description)
	}
	fmt.Fprintf(&b, "Stack: %s\n", strings.Join(p.TechStack, ", "))
	fmt.Fprintf(&b, "Your Role: %s\n", a.Role)
	if a.Department != "" {
		fmt.Fprintf(&b, "Department: %s\n", a.Department)
	}
	fmt.Fprintf(&b, "Your Goal: %s\n", a.Goal)
	if len(a.KeyTasks) > 0 {
		fmt.Fprintf(&b, "Key Tasks: %s\n", strings.Join(a.KeyTasks, "; "))
	}
	return b.String()
}
