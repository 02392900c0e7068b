// Package memory keeps each agent's conversation log per project in SQLite.
package memory

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

type Config struct {
	DataDir string
	// MaxEntryLength truncates stored lines, in bytes.
	MaxEntryLength int
	// MaxHistory bounds how many lines Context returns.
	MaxHistory int
}

func DefaultConfig() Config {
	return Config{
		DataDir:        filepath.Join("tmp", "memory"),
		MaxEntryLength: 4000,
		MaxHistory:     40,
	}
}

// Entry is one stored line of an agent conversation.
type Entry struct {
	ID        int64     `json:"id"`
	Project   string    `json:"project"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type Store struct {
	db  *sql.DB
	cfg Config
	now func() time.Time
}

// New opens <DataDir>/memory.db in WAL mode and migrates it.
func New(cfg Config) (*Store, error) {
	def := DefaultConfig()
	if cfg.DataDir == "" {
		cfg.DataDir = def.DataDir
	}
	if cfg.MaxEntryLength <= 0 {
		cfg.MaxEntryLength = def.MaxEntryLength
	}
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = def.MaxHistory
	}
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("memory: create data dir: %w", err)
	}

	db, err := openDB("sqlite", filepath.Join(cfg.DataDir, "memory.db"))
	if err != nil {
		return nil, fmt.Errorf("memory: open database: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("memory: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, cfg: cfg, now: time.Now}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("memory: migration: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS agent_messages (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			project    TEXT NOT NULL,
			role       TEXT NOT NULL,
			content    TEXT NOT NULL,
			created_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_agent_messages_lookup ON agent_messages (project, role, id);
	`)
	return err
}

// Append records one line for project/role.
func (s *Store) Append(ctx context.Context, project, role, content string) error {
	project, role = strings.TrimSpace(project), strings.TrimSpace(role)
	if project == "" || role == "" {
		return fmt.Errorf("memory: project and role are required")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO agent_messages (project, role, content, created_at) VALUES (?, ?, ?, ?)`,
		project, role, truncate(content, s.cfg.MaxEntryLength), s.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("memory: append: %w", err)
	}
	return nil
}

// History returns the newest limit entries of project/role, oldest first.
// limit <= 0 uses the configured MaxHistory.
func (s *Store) History(ctx context.Context, project, role string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = s.cfg.MaxHistory
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project, role, content, created_at FROM (
			SELECT id, project, role, content, created_at FROM agent_messages
			WHERE project = ? AND role = ?
			ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`,
		strings.TrimSpace(project), strings.TrimSpace(role), limit)
	if err != nil {
		return nil, fmt.Errorf("memory: history: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			created string
		)
		if err := rows.Scan(&e.ID, &e.Project, &e.Role, &e.Content, &created); err != nil {
			return nil, err
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Context joins the recent history of project/role into one block, empty
// when the agent has no memory yet.
func (s *Store) Context(ctx context.Context, project, role string) (string, error) {
	entries, err := s.History(ctx, project, role, 0)
	if err != nil {
		return "", err
	}
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.Content
	}
	return strings.Join(lines, "\n"), nil
}

// Roles lists the roles with stored memory in a project.
func (s *Store) Roles(ctx context.Context, project string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT role FROM agent_messages WHERE project = ? ORDER BY role`, strings.TrimSpace(project))
	if err != nil {
		return nil, fmt.Errorf("memory: roles: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var r string
		if err := rows.Scan(&r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
