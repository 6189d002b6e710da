package mirror

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/gitdub/pkg/domain/interfaces"
	"github.com/m-mizutani/gitdub/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
)

const (
	bareSuffix = "_bare"

	// BranchRefSpec overwrites local branches so the bare mirror matches upstream exactly
	BranchRefSpec = "+refs/heads/*:refs/heads/*"
)

type config struct {
	gitBinary string
	host      string
}

// Option is a functional option for Manager configuration
type Option func(*config)

// WithGitBinary sets the git executable
func WithGitBinary(binary string) Option {
	return func(c *config) {
		c.gitBinary = binary
	}
}

// WithHost sets the host part of the ssh remote URL
func WithHost(host string) Option {
	return func(c *config) {
		c.host = host
	}
}

// Manager keeps a bare mirror and a working clone per repository under root
type Manager struct {
	runner interfaces.CommandRunner
	root   string
	cfg    config
}

// New creates a Manager storing mirrors under root
func New(runner interfaces.CommandRunner, root string, opts ...Option) (*Manager, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to resolve mirror directory", goerr.V("root", root))
	}

	cfg := config{
		gitBinary: "git",
		host:      "github.com",
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Manager{
		runner: runner,
		root:   abs,
		cfg:    cfg,
	}, nil
}

// Paths returns the mirror locations of owner/repo
func (m *Manager) Paths(owner, repo string) *model.MirrorPaths {
	checkout := filepath.Join(m.root, owner, repo)
	return &model.MirrorPaths{
		Checkout: checkout,
		Bare:     checkout + bareSuffix,
	}
}

// RemoteURL returns the upstream URL of owner/repo
func (m *Manager) RemoteURL(owner, repo string) string {
	return fmt.Sprintf("ssh://git@%s/%s/%s.git", m.cfg.host, owner, repo)
}

// Ensure implements interfaces.MirrorManager
func (m *Manager) Ensure(ctx context.Context, owner, repo string) (*model.MirrorPaths, bool, error) {
	paths := m.Paths(owner, repo)

	bareExists, err := exists(paths.Bare)
	if err != nil {
		return nil, false, err
	}
	checkoutExists, err := exists(paths.Checkout)
	if err != nil {
		return nil, false, err
	}

	if !bareExists || !checkoutExists {
		if err := m.clone(ctx, owner, repo, paths, !bareExists, !checkoutExists); err != nil {
			return nil, false, err
		}
	}

	// A mirror that survived next to a missing one is still stale
	if bareExists {
		if err := m.fetchBare(ctx, paths); err != nil {
			return nil, false, err
		}
	}
	if checkoutExists {
		if err := m.fetchCheckout(ctx, paths); err != nil {
			return nil, false, err
		}
	}

	return paths, !bareExists, nil
}

func (m *Manager) clone(ctx context.Context, owner, repo string, paths *model.MirrorPaths, bare, checkout bool) error {
	logger := ctxlog.From(ctx)
	remote := m.RemoteURL(owner, repo)
	ownerDir := filepath.Join(m.root, owner)

	type target struct {
		dir  string
		args []string
	}
	var targets []target
	if bare {
		targets = append(targets, target{dir: paths.Bare, args: []string{"clone", "--bare", remote, paths.Bare}})
	}
	if checkout {
		targets = append(targets, target{dir: paths.Checkout, args: []string{"clone", remote, paths.Checkout}})
	}

	if err := os.MkdirAll(m.root, 0o755); err != nil {
		return goerr.Wrap(model.ErrCloneFailed, "failed to create mirror directory",
			goerr.V("root", m.root),
			goerr.V("cause", err.Error()),
		)
	}

	var created []string
	for _, t := range targets {
		created = append(created, t.dir)
		if _, err := m.git(ctx, m.root, t.args...); err != nil {
			logger.Error("git failed to clone repository",
				"repository", owner+"/"+repo,
				"dir", t.dir,
				"error", err,
			)
			m.cleanup(ctx, created, ownerDir)
			return goerr.Wrap(model.ErrCloneFailed, "git clone failed",
				goerr.V("repository", owner+"/"+repo),
				goerr.V("remote", remote),
				goerr.V("cause", err.Error()),
			)
		}
		logger.Info("cloned repository", "repository", owner+"/"+repo, "dir", t.dir)
	}

	return nil
}

// cleanup removes directories created by a failed clone attempt and the owner
// directory if nothing else is left in it.
func (m *Manager) cleanup(ctx context.Context, dirs []string, ownerDir string) {
	logger := ctxlog.From(ctx)

	for _, dir := range dirs {
		if err := os.RemoveAll(dir); err != nil {
			logger.Warn("failed to remove partial clone", "dir", dir, "error", err)
		}
	}

	entries, err := os.ReadDir(ownerDir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("failed to read owner directory", "dir", ownerDir, "error", err)
		}
		return
	}
	if len(entries) == 0 {
		if err := os.Remove(ownerDir); err != nil {
			logger.Warn("failed to remove empty owner directory", "dir", ownerDir, "error", err)
		}
	}
}

func (m *Manager) fetchBare(ctx context.Context, paths *model.MirrorPaths) error {
	if _, err := m.git(ctx, paths.Bare, "fetch", "origin", BranchRefSpec); err != nil {
		return goerr.Wrap(model.ErrFetchFailed, "git fetch failed",
			goerr.V("dir", paths.Bare),
			goerr.V("cause", err.Error()),
		)
	}
	return nil
}

func (m *Manager) fetchCheckout(ctx context.Context, paths *model.MirrorPaths) error {
	// A checked-out branch cannot be force-updated, so the working clone only
	// refreshes its remote-tracking refs.
	if _, err := m.git(ctx, paths.Checkout, "fetch", "origin"); err != nil {
		return goerr.Wrap(model.ErrFetchFailed, "git fetch failed",
			goerr.V("dir", paths.Checkout),
			goerr.V("cause", err.Error()),
		)
	}
	return nil
}

func (m *Manager) git(ctx context.Context, dir string, args ...string) (*model.CommandResult, error) {
	return m.runner.Run(ctx, &model.Command{
		Name: m.cfg.gitBinary,
		Args: append([]string{"-C", dir}, args...),
		Dir:  dir,
	})
}

// Resolve implements interfaces.MirrorManager
func (m *Manager) Resolve(paths *model.MirrorPaths, ref string) (string, error) {
	repo, err := git.PlainOpen(paths.Bare)
	if err != nil {
		return "", goerr.Wrap(err, "failed to open bare mirror", goerr.V("dir", paths.Bare))
	}

	r, err := repo.Reference(plumbing.ReferenceName(ref), true)
	if err != nil {
		return "", goerr.Wrap(err, "failed to resolve reference",
			goerr.V("dir", paths.Bare),
			goerr.V("ref", ref),
		)
	}

	return r.Hash().String(), nil
}

func exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, goerr.Wrap(err, "failed to stat mirror directory", goerr.V("path", path))
}
