package roster

import (
	"strings"

	"agentforge/internal/llmtool"
)

var departments = []string{
	"Marketing", "Sales", "Product", "UX", "Engineering", "QA", "DevOps", "SRE", "Security",
	"IT", "Data-Engineering", "Analytics", "Research", "Customer-Success", "Support",
	"Legal", "Compliance", "Finance", "HR", "Talent", "People-Ops", "Partnerships",
	"Solutions-Engineering", "Solutions-Architecture", "Professional-Services",
	"Training", "Documentation", "Community", "Growth", "Strategy", "Executive",
}

const skeleton = `{
  "project": {"name": "", "description": "", "tech_stack": [], "deployment_targets": [],
              "ci_cd": [], "security": [], "scaffolding": [], "documentation": []},
  "agents": [{"role": "", "department": "", "goal": "", "key_tasks": []}]
}`

func prefixed(prefix string, fields []llmtool.PromptField) []llmtool.PromptField {
	out := make([]llmtool.PromptField, len(fields))
	for i, f := range fields {
		f.Name = prefix + f.Name
		out[i] = f
	}
	return out
}

func systemPrompt() string {
	fields := llmtool.MustFieldsFromStruct(Roster{})
	fields = append(fields, prefixed("project.", llmtool.MustFieldsFromStruct(Project{}))...)
	fields = append(fields, prefixed("agents[].", llmtool.MustFieldsFromStruct(Agent{}))...)

	return llmtool.StructuredPrompt{
		Purpose: "You are an enterprise AI architect and full-stack software generator. " +
			"The user will supply a short product/feature idea. Design the project and the team of AI agents that builds it.",
		Background:   "Cover every area of a real software company: " + strings.Join(departments, ", ") + ".",
		OutputFields: fields,
		Rules: []string{
			"Produce about 30 agents, one or more per area above.",
			"The project section includes solution scaffolding (projects, folders, namespaces).",
			"The project section includes enterprise coding standards (linting, testing, logging, monitoring).",
			"The project section includes database integration (Supabase/Postgres) and frontend deployment (Vercel).",
			"The project section includes CI/CD pipelines with automated testing and deployment.",
			"The project section includes security and compliance (OAuth2, JWT, GDPR, SOC2).",
			"The project section includes documentation, onboarding guides, scalability and observability.",
		},
		OutputFormat: skeleton,
	}.With(llmtool.PresetStrictJSON()).MustRender()
}
