// Package remotesync mirrors generated files to a remote host. Sync is best
// effort: callers log failures and carry on.
package remotesync

import (
	"context"
	"errors"
)

var ErrAuth = errors.New("remotesync: authentication failed")

// Identity is the authenticated account.
type Identity struct {
	Login string
}

// Repo is a handle on a remote repository (or bucket prefix).
type Repo struct {
	Owner string
	Name  string
	// URL is where a person can browse the repository, when known.
	URL string
}

func (r Repo) String() string { return r.Owner + "/" + r.Name }

// Syncer is implemented by every remote backend.
type Syncer interface {
	Authenticate(ctx context.Context) (Identity, error)
	// EnsureRepo gets the named repository, creating it when missing.
	EnsureRepo(ctx context.Context, who Identity, name string) (Repo, error)
	// Upsert creates or updates path with content. Repeating an upsert with
	// the same content is a no-op.
	Upsert(ctx context.Context, repo Repo, path string, content []byte, message string) error
}
