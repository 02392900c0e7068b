package remotesync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v66/github"
)

// GitHub syncs through the GitHub contents API with a personal access token.
type GitHub struct {
	client *github.Client
	log    *log.Logger
}

func NewGitHub(token string) *GitHub {
	return &GitHub{
		client: github.NewClient(nil).WithAuthToken(strings.TrimSpace(token)),
		log:    log.Default(),
	}
}

// WithBaseURL points the client at another API root (GitHub Enterprise, tests).
func (g *GitHub) WithBaseURL(raw string) (*GitHub, error) {
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	g.client.BaseURL = u
	return g, nil
}

func (g *GitHub) Authenticate(ctx context.Context) (Identity, error) {
	user, _, err := g.client.Users.Get(ctx, "")
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrAuth, err)
	}
	g.log.Printf("remotesync: authenticated as %s", user.GetLogin())
	return Identity{Login: user.GetLogin()}, nil
}

func (g *GitHub) EnsureRepo(ctx context.Context, who Identity, name string) (Repo, error) {
	repo, resp, err := g.client.Repositories.Get(ctx, who.Login, name)
	if err == nil {
		return Repo{Owner: repo.GetOwner().GetLogin(), Name: repo.GetName(), URL: repo.GetHTMLURL()}, nil
	}
	if !isNotFound(resp, err) {
		return Repo{}, fmt.Errorf("remotesync: get repo %s/%s: %w", who.Login, name, err)
	}
	g.log.Printf("remotesync: creating repository %q", name)
	created, _, err := g.client.Repositories.Create(ctx, "", &github.Repository{
		Name:    github.String(name),
		Private: github.Bool(true),
	})
	if err != nil {
		return Repo{}, fmt.Errorf("remotesync: create repo %s: %w", name, err)
	}
	return Repo{Owner: created.GetOwner().GetLogin(), Name: created.GetName(), URL: created.GetHTMLURL()}, nil
}

func (g *GitHub) Upsert(ctx context.Context, repo Repo, path string, content []byte, message string) error {
	path = strings.TrimLeft(path, "/")
	opts := &github.RepositoryContentFileOptions{
		Message: github.String(message),
		Content: content,
	}
	existing, _, resp, err := g.client.Repositories.GetContents(ctx, repo.Owner, repo.Name, path, nil)
	switch {
	case err == nil && existing != nil:
		if old, decErr := existing.GetContent(); decErr == nil && old == string(content) {
			return nil
		}
		opts.SHA = existing.SHA
		_, _, err = g.client.Repositories.UpdateFile(ctx, repo.Owner, repo.Name, path, opts)
	case err == nil || isNotFound(resp, err):
		_, _, err = g.client.Repositories.CreateFile(ctx, repo.Owner, repo.Name, path, opts)
	}
	if err != nil {
		return fmt.Errorf("remotesync: upsert %s in %s: %w", path, repo, err)
	}
	return nil
}

func isNotFound(resp *github.Response, err error) bool {
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return true
	}
	var ghErr *github.ErrorResponse
	return errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusNotFound
}
