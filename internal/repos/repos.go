// Package repos checks out the remote repositories whose documentation is
// merged into the main project.
package repos

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/gubarz/fundoc/internal/config"
)

// TmpDir is where repositories are checked out, relative to the working directory
const TmpDir = ".tmp_repositories"

// TokenEnv holds the token used to authenticate clones over HTTP
const TokenEnv = "GH_TOKEN"

// tokenUser is the user name sent along with the token
const tokenUser = "fundoc"

var (
	// ErrClone indicates a repository could not be checked out
	ErrClone = errors.New("clone repository")
	// ErrRepoURL indicates a repository URL has no usable path
	ErrRepoURL = errors.New("invalid repository url")
)

// AuthProvider resolves the credentials for a remote URL. A nil method means
// anonymous access.
type AuthProvider interface {
	Method(remoteURL string) (transport.AuthMethod, error)
}

// TokenAuth authenticates HTTP remotes with a personal access token
type TokenAuth struct {
	Token string
}

// Method implements AuthProvider
func (a TokenAuth) Method(remoteURL string) (transport.AuthMethod, error) {
	if a.Token == "" {
		return nil, nil
	}
	u, err := url.Parse(remoteURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRepoURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, nil
	}
	return &http.BasicAuth{Username: tokenUser, Password: a.Token}, nil
}

// TokenAuthFromEnv reads the token from GH_TOKEN
func TokenAuthFromEnv() TokenAuth {
	return TokenAuth{Token: os.Getenv(TokenEnv)}
}

// Project is a checked out repository with its configuration
type Project struct {
	URL    string
	Path   string
	Config *config.Config
}

// Manager clones repositories below Root
type Manager struct {
	Root  string
	Depth int // Clone depth, 0 fetches the full history
	Auth  AuthProvider
	Fs    afero.Fs // Clones always land on disk, Fs must see the same tree
	Log   zerolog.Logger
}

// NewManager returns a manager doing shallow clones into TmpDir with GH_TOKEN
// authentication
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		Root:  TmpDir,
		Depth: 1,
		Auth:  TokenAuthFromEnv(),
		Fs:    afero.NewOsFs(),
		Log:   log,
	}
}

// RepoName returns the "owner/name" part of a repository URL
func RepoName(remoteURL string) (string, error) {
	u, err := url.Parse(remoteURL)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRepoURL, err)
	}
	name := strings.TrimSuffix(strings.Trim(u.Path, "/"), ".git")
	if name == "" || name == "." {
		return "", fmt.Errorf("%w: %q", ErrRepoURL, remoteURL)
	}
	return name, nil
}

// Clone checks out one repository and loads its configuration. A repository
// without a fundoc.json is returned with a nil Config.
func (m *Manager) Clone(ctx context.Context, remoteURL string) (Project, error) {
	name, err := RepoName(remoteURL)
	if err != nil {
		return Project{}, err
	}
	path := filepath.Join(m.Root, filepath.FromSlash(name))

	if err := m.Fs.RemoveAll(path); err != nil {
		return Project{}, fmt.Errorf("%w: %s: %w", ErrClone, remoteURL, err)
	}
	if err := m.Fs.MkdirAll(path, 0o755); err != nil {
		return Project{}, fmt.Errorf("%w: %s: %w", ErrClone, remoteURL, err)
	}

	opts := &git.CloneOptions{
		URL:          remoteURL,
		Depth:        m.Depth,
		SingleBranch: m.Depth > 0,
	}
	if m.Auth != nil {
		method, err := m.Auth.Method(remoteURL)
		if err != nil {
			return Project{}, fmt.Errorf("%w: %s: %w", ErrClone, remoteURL, err)
		}
		opts.Auth = method
	}

	m.Log.Info().Str("url", remoteURL).Str("path", path).Msg("cloning repository")
	if _, err := git.PlainCloneContext(ctx, path, false, opts); err != nil {
		return Project{}, fmt.Errorf("%w: %s: %w", ErrClone, remoteURL, err)
	}

	return m.project(remoteURL, path)
}

// project loads the configuration of a checked out repository
func (m *Manager) project(remoteURL, path string) (Project, error) {
	project := Project{URL: remoteURL, Path: path}
	cfg, err := config.LoadFs(m.Fs, path)
	switch {
	case err == nil:
		project.Config = cfg
	case errors.Is(err, config.ErrNotFound):
		m.Log.Warn().Str("url", remoteURL).Msg("repository has no fundoc.json, skipping")
	default:
		return project, err
	}
	return project, nil
}

// CloneAll clones every repository in order. Failures are logged and
// returned joined; the projects that did clone are always returned.
func (m *Manager) CloneAll(ctx context.Context, urls []string) ([]Project, error) {
	var (
		projects []Project
		errs     []error
	)
	for _, u := range urls {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		project, err := m.Clone(ctx, u)
		if err != nil {
			m.Log.Warn().Err(err).Str("url", u).Msg("skipping repository")
			errs = append(errs, err)
			continue
		}
		if project.Config != nil {
			projects = append(projects, project)
		}
	}
	return projects, errors.Join(errs...)
}

// Cleanup removes every checked out repository
func (m *Manager) Cleanup() error {
	if err := m.Fs.RemoveAll(m.Root); err != nil {
		return fmt.Errorf("remove %s: %w", m.Root, err)
	}
	return nil
}
