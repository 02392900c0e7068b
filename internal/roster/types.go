package roster

import (
	"encoding/json"
	"strings"
)

// StringList accepts either a JSON array of strings or a single string.
// Models are not consistent about list-valued descriptor fields.
type StringList []string

func (l *StringList) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		if strings.TrimSpace(one) == "" {
			*l = nil
		} else {
			*l = StringList{one}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}
	*l = many
	return nil
}

// Project is the project descriptor.
type Project struct {
	Name              string     `json:"name" desc:"project name based on the idea"`
	Description       string     `json:"description" desc:"1-sentence overview"`
	TechStack         StringList `json:"tech_stack" desc:"frameworks, languages, libraries"`
	DeploymentTargets StringList `json:"deployment_targets" desc:"e.g. Vercel, Supabase, Docker, Kubernetes"`
	CICD              StringList `json:"ci_cd" desc:"GitHub Actions, Azure DevOps, etc."`
	Security          StringList `json:"security" desc:"auth, encryption, compliance"`
	Scaffolding       StringList `json:"scaffolding" desc:"solution/projects setup"`
	Documentation     StringList `json:"documentation" desc:"README, API docs, architecture diagrams"`
}

// Agent is one role of the roster.
type Agent struct {
	Role       string     `json:"role" desc:"human-readable job title"`
	Department string     `json:"department" desc:"department/team name"`
	Goal       string     `json:"goal" desc:"1-sentence mission for this agent"`
	KeyTasks   StringList `json:"key_tasks" desc:"2-4 core responsibilities"`
}

// Roster is the persisted agents.json document. Agents are in build order.
type Roster struct {
	Idea        string  `json:"idea,omitempty" prompt:"-"`
	ProjectName string  `json:"project_name,omitempty" prompt:"-"`
	Project     Project `json:"project" desc:"the project descriptor"`
	Agents      []Agent `json:"agents" desc:"the agent roles, about 30"`

	// raw is the decoded document, keeping fields the model added beyond
	// the ones above.
	raw map[string]json.RawMessage
}

// Slug returns the stored slug, deriving one from the project name if unset.
func (r Roster) Slug() string {
	if s := strings.TrimSpace(r.ProjectName); s != "" {
		return s
	}
	return deriveSlug(r.Project.Name, r.Idea)
}
