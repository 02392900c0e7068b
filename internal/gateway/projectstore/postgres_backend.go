package projectstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const selectColumns = `SELECT id, user_identifier, project_name, idea_prompt, agents_data, created_at FROM projects`

func (s *Store) ensureSchema(ctx context.Context) error {
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS projects (
  id BIGSERIAL PRIMARY KEY,
  user_identifier TEXT NOT NULL DEFAULT 'anonymous',
  project_name TEXT NOT NULL,
  idea_prompt TEXT NOT NULL,
  agents_data JSONB NOT NULL,
  created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_projects_project_name ON projects (project_name);
CREATE INDEX IF NOT EXISTS idx_projects_user ON projects (user_identifier);
`)
	})
	return s.schemaErr
}

func (s *Store) addDB(ctx context.Context, r Record) (Record, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return Record{}, err
	}
	r = normalizeRecord(r)
	row := s.db.QueryRowContext(ctx, `
INSERT INTO projects (user_identifier, project_name, idea_prompt, agents_data)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at`,
		r.User, r.ProjectName, r.Idea, []byte(r.Agents))
	if err := row.Scan(&r.ID, &r.CreatedAt); err != nil {
		return Record{}, fmt.Errorf("projectstore: insert: %w", err)
	}
	return r, nil
}

func (s *Store) findDB(ctx context.Context, name string) (Record, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return Record{}, err
	}
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE project_name = $1 ORDER BY id LIMIT 1`, name)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return r, err
}

func (s *Store) updateAgentsDB(ctx context.Context, name string, agents json.RawMessage) (Record, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return Record{}, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Record{}, err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, selectColumns+` WHERE project_name = $1 ORDER BY id LIMIT 1 FOR UPDATE`, name)
	cur, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE projects SET agents_data = $2 WHERE id = $1`, cur.ID, []byte(agents)); err != nil {
		return Record{}, fmt.Errorf("projectstore: update: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Record{}, err
	}
	cur.Agents = agents
	return cur, nil
}

func (s *Store) listByUserDB(ctx context.Context, user string) ([]Record, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	user = strings.TrimSpace(user)
	var (
		rows *sql.Rows
		err  error
	)
	if user == "" {
		rows, err = s.db.QueryContext(ctx, selectColumns+` ORDER BY id`)
	} else {
		rows, err = s.db.QueryContext(ctx, selectColumns+` WHERE user_identifier = $1 ORDER BY id`, user)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Record, 0, 32)
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
