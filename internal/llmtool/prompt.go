package llmtool

import (
	"fmt"
	"strings"
)

// PromptField describes a single output field in a simple schema.
type PromptField struct {
	Name        string
	Type        string
	Required    bool
	Description string
}

// StructuredPrompt renders a system instruction as bracketed sections.
// Empty sections are skipped.
type StructuredPrompt struct {
	Purpose      string
	Background   string
	OutputFields []PromptField
	Constraints  []string
	Rules        []string
	OutputFormat string
	Example      string
	Tools        string
}

// PromptPreset holds reusable constraints and rules.
type PromptPreset struct {
	Constraints []string
	Rules       []string
}

// With prepends preset constraints and rules.
func (p StructuredPrompt) With(presets ...PromptPreset) StructuredPrompt {
	var cons, rules []string
	for _, pr := range presets {
		cons = append(cons, pr.Constraints...)
		rules = append(rules, pr.Rules...)
	}
	p.Constraints = append(cons, p.Constraints...)
	p.Rules = append(rules, p.Rules...)
	return p
}

// PresetStrictJSON enforces JSON-only output.
func PresetStrictJSON() PromptPreset {
	return PromptPreset{Constraints: []string{
		"Reply with ONLY a JSON object: no markdown, no commentary.",
		"No comments or trailing commas inside the JSON.",
	}}
}

// PresetRelativePaths keeps generated files inside the workspace.
func PresetRelativePaths() PromptPreset {
	return PromptPreset{Constraints: []string{
		"File paths are relative to the project root and never contain '..' or a leading '/'.",
	}}
}

// SearchAffordance is appended to prompts whose loop honors SEARCH directives.
const SearchAffordance = "You have access to Realtime Internet. To search, output `SEARCH: <query>` on a single line. I will return results. Then you can generate artifacts."

// Render builds the prompt text.
func (p StructuredPrompt) Render() (string, error) {
	if strings.TrimSpace(p.Purpose) == "" {
		return "", fmt.Errorf("llmtool: purpose is empty")
	}
	var b strings.Builder
	section(&b, "PURPOSE", p.Purpose)
	section(&b, "BACKGROUND", p.Background)
	section(&b, "OUTPUT", fieldList(p.OutputFields))
	section(&b, "CONSTRAINTS", bulletList(p.Constraints))
	section(&b, "RULES", bulletList(p.Rules))
	section(&b, "OUTPUT_FORMAT", p.OutputFormat)
	section(&b, "EXAMPLE", p.Example)
	section(&b, "TOOLS", p.Tools)
	return strings.TrimSpace(b.String()) + "\n", nil
}

// MustRender panics on error; for package-level prompt literals.
func (p StructuredPrompt) MustRender() string {
	out, err := p.Render()
	if err != nil {
		panic(err)
	}
	return out
}

func fieldList(fields []PromptField) string {
	var lines []string
	for _, f := range fields {
		if strings.TrimSpace(f.Name) == "" {
			continue
		}
		req := "optional"
		if f.Required {
			req = "required"
		}
		line := fmt.Sprintf("- %s (%s, %s)", f.Name, f.Type, req)
		if f.Description != "" {
			line += ": " + f.Description
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func bulletList(items []string) string {
	var lines []string
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			lines = append(lines, "- "+it)
		}
	}
	return strings.Join(lines, "\n")
}

func section(b *strings.Builder, title, body string) {
	body = strings.TrimRight(body, "\n")
	if strings.TrimSpace(body) == "" {
		return
	}
	fmt.Fprintf(b, "[%s]\n%s\n\n", title, body)
}
