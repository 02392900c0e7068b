// Package projectstore is the registry of generated projects. It keeps
// records in a JSON file for local use or in Postgres when a DSN is set.
package projectstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/jackc/pgx/v5/stdlib"
)

var ErrNotFound = errors.New("projectstore: project not found")

type Store struct {
	path string
	db   *sql.DB

	loadOnce sync.Once
	loadErr  error
	mu       sync.RWMutex
	rows     []Record
	nextID   int64

	schemaOnce sync.Once
	schemaErr  error

	byName *lru.Cache[string, Record]
}

// New returns a file-backed store persisted at path.
func New(path string) *Store {
	return &Store{path: path, nextID: 1}
}

func NewPostgres(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	cache, err := lru.New[string, Record](1024)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, byName: cache}, nil
}

// NewFromEnv uses PROJECT_STORE_PG_DSN when set and reachable, otherwise
// the file at path.
func NewFromEnv(ctx context.Context, path string) *Store {
	dsn := strings.TrimSpace(os.Getenv("PROJECT_STORE_PG_DSN"))
	if dsn == "" {
		return New(path)
	}
	s, err := NewPostgres(ctx, dsn)
	if err != nil {
		log.Printf("projectstore: postgres unavailable, using %s: %v", path, err)
		return New(path)
	}
	return s
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// EnsureLoaded reads the file or creates the schema.
func (s *Store) EnsureLoaded(ctx context.Context) error {
	if s.db != nil {
		return s.ensureSchema(ctx)
	}
	return s.ensureLoadedFile()
}

// Add stores a new record and returns it with its id and creation time.
func (s *Store) Add(ctx context.Context, r Record) (Record, error) {
	if s.db != nil {
		out, err := s.addDB(ctx, r)
		if err == nil {
			s.byName.Remove(out.ProjectName)
		}
		return out, err
	}
	return s.addFile(r)
}

// FindByName returns the oldest record with the given project name.
func (s *Store) FindByName(ctx context.Context, name string) (Record, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Record{}, ErrNotFound
	}
	if s.db != nil {
		if r, ok := s.byName.Get(name); ok {
			return r, nil
		}
		r, err := s.findDB(ctx, name)
		if err != nil {
			return Record{}, err
		}
		s.byName.Add(name, r)
		return r, nil
	}
	return s.findFile(name)
}

// UpdateAgents replaces the roster stored for a project.
func (s *Store) UpdateAgents(ctx context.Context, name string, agents json.RawMessage) (Record, error) {
	if !json.Valid(agents) {
		return Record{}, errors.New("projectstore: agents_data is not valid JSON")
	}
	name = strings.TrimSpace(name)
	if s.db != nil {
		s.byName.Remove(name)
		return s.updateAgentsDB(ctx, name, agents)
	}
	return s.updateAgentsFile(name, agents)
}

// ListByUser returns the records of user, or all records when user is
// empty, oldest first.
func (s *Store) ListByUser(ctx context.Context, user string) ([]Record, error) {
	if s.db != nil {
		return s.listByUserDB(ctx, user)
	}
	return s.listByUserFile(user)
}
