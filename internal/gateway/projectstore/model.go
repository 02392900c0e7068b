package projectstore

import (
	"encoding/json"
	"strings"
	"time"
)

// Record is one generated project: who asked, what they asked for and the
// roster the model produced for it.
type Record struct {
	ID          int64           `json:"id"`
	User        string          `json:"user_identifier"`
	ProjectName string          `json:"project_name"`
	Idea        string          `json:"idea_prompt"`
	Agents      json.RawMessage `json:"agents_data"`
	CreatedAt   time.Time       `json:"created_at"`
}

func normalizeRecord(r Record) Record {
	r.User = strings.TrimSpace(r.User)
	r.ProjectName = strings.TrimSpace(r.ProjectName)
	if r.User == "" {
		r.User = "anonymous"
	}
	if r.ProjectName == "" {
		r.ProjectName = "Untitled"
	}
	if len(r.Agents) == 0 {
		r.Agents = json.RawMessage("{}")
	}
	return r
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		r      Record
		agents []byte
	)
	if err := row.Scan(&r.ID, &r.User, &r.ProjectName, &r.Idea, &agents, &r.CreatedAt); err != nil {
		return Record{}, err
	}
	r.Agents = json.RawMessage(agents)
	return normalizeRecord(r), nil
}
