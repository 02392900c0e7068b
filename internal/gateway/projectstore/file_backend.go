package projectstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

func (s *Store) ensureLoadedFile() error {
	s.loadOnce.Do(func() {
		b, err := os.ReadFile(s.path)
		if errors.Is(err, os.ErrNotExist) {
			return
		}
		if err != nil {
			s.loadErr = fmt.Errorf("projectstore: read %s: %w", s.path, err)
			return
		}
		var rows []Record
		if err := json.Unmarshal(b, &rows); err != nil {
			s.loadErr = fmt.Errorf("projectstore: decode %s: %w", s.path, err)
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, row := range rows {
			if row.ID <= 0 {
				continue
			}
			s.rows = append(s.rows, normalizeRecord(row))
			if row.ID >= s.nextID {
				s.nextID = row.ID + 1
			}
		}
		slices.SortFunc(s.rows, func(a, b Record) int { return int(a.ID - b.ID) })
	})
	return s.loadErr
}

// saveFileLocked writes all rows; callers hold s.mu.
func (s *Store) saveFileLocked() error {
	b, err := json.MarshalIndent(s.rows, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *Store) addFile(r Record) (Record, error) {
	if err := s.ensureLoadedFile(); err != nil {
		return Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r = normalizeRecord(r)
	r.ID = s.nextID
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	s.rows = append(s.rows, r)
	if err := s.saveFileLocked(); err != nil {
		s.rows = s.rows[:len(s.rows)-1]
		return Record{}, fmt.Errorf("projectstore: save: %w", err)
	}
	s.nextID++
	return r, nil
}

func (s *Store) findFile(name string) (Record, error) {
	if err := s.ensureLoadedFile(); err != nil {
		return Record{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.rows {
		if r.ProjectName == name {
			return r, nil
		}
	}
	return Record{}, ErrNotFound
}

func (s *Store) updateAgentsFile(name string, agents json.RawMessage) (Record, error) {
	if err := s.ensureLoadedFile(); err != nil {
		return Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.rows {
		if r.ProjectName != name {
			continue
		}
		prev := r.Agents
		s.rows[i].Agents = slices.Clone(agents)
		if err := s.saveFileLocked(); err != nil {
			s.rows[i].Agents = prev
			return Record{}, fmt.Errorf("projectstore: save: %w", err)
		}
		return s.rows[i], nil
	}
	return Record{}, ErrNotFound
}

func (s *Store) listByUserFile(user string) ([]Record, error) {
	if err := s.ensureLoadedFile(); err != nil {
		return nil, err
	}
	user = strings.TrimSpace(user)
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, 0, len(s.rows))
	for _, r := range s.rows {
		if user != "" && r.User != user {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}
