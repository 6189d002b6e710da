package notifier

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/gitdub/pkg/domain/interfaces"
	"github.com/m-mizutani/gitdub/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
)

const (
	GitCommitNotifierMarker = ".git-commit-notifier.dat"

	// HomeEnv tells the helper where its configuration and bundle live
	HomeEnv = "GIT_COMMIT_NOTIFIER_HOME"
)

// DefaultWrapper runs the helper inside its bundle
var DefaultWrapper = []string{"bundle", "exec"}

// GitCommitNotifier runs a helper script with the working clone and the pushed range
// as positional arguments.
type GitCommitNotifier struct {
	runner  interfaces.CommandRunner
	script  string
	home    string
	wrapper []string
}

// NewGitCommitNotifier creates a new GitCommitNotifier. home has no default and
// must point to the helper's installation.
func NewGitCommitNotifier(runner interfaces.CommandRunner, script, home string, wrapper []string) (*GitCommitNotifier, error) {
	if script == "" {
		return nil, goerr.New("git-commit-notifier script is not configured")
	}
	if home == "" {
		return nil, goerr.New("git-commit-notifier home is not configured")
	}
	if !filepath.IsAbs(home) {
		abs, err := filepath.Abs(home)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to resolve git-commit-notifier home", goerr.V("home", home))
		}
		home = abs
	}
	if wrapper == nil {
		wrapper = DefaultWrapper
	}

	return &GitCommitNotifier{
		runner:  runner,
		script:  script,
		home:    home,
		wrapper: wrapper,
	}, nil
}

func (n *GitCommitNotifier) Kind() model.BackendKind {
	return model.BackendGitCommitNotifier
}

// Executable returns the program started by Notify
func (n *GitCommitNotifier) Executable() string {
	if len(n.wrapper) > 0 {
		return n.wrapper[0]
	}
	return n.script
}

func (n *GitCommitNotifier) MarkerPath(paths *model.MirrorPaths) string {
	return filepath.Join(paths.Checkout, GitCommitNotifierMarker)
}

// Command builds the helper invocation. In update-only mode the range is empty
// (after...after), so the helper records a baseline without producing a diff.
func (n *GitCommitNotifier) Command(paths *model.MirrorPaths, opts *model.NotifierOptions) *model.Command {
	before := opts.Before
	if opts.UpdateOnly {
		before = opts.After
	}

	argv := append([]string{}, n.wrapper...)
	argv = append(argv, n.script, paths.Checkout, before, opts.After, opts.Ref)

	return &model.Command{
		Name: argv[0],
		Args: argv[1:],
		Dir:  n.home,
		Env:  []string{HomeEnv + "=" + n.home},
	}
}

// Notify implements interfaces.Notifier
func (n *GitCommitNotifier) Notify(ctx context.Context, paths *model.MirrorPaths, opts *model.NotifierOptions) error {
	logger := ctxlog.From(ctx)
	cmd := n.Command(paths, opts)

	result, err := n.runner.Run(ctx, cmd)
	if result != nil {
		logger.Info("git-commit-notifier output",
			"stdout", strings.TrimSpace(string(result.Stdout)),
			"stderr", strings.TrimSpace(string(result.Stderr)),
		)
	}
	if err != nil {
		logger.Error("git-commit-notifier failed", "checkout", paths.Checkout, "error", err)
		return goerr.Wrap(model.ErrNotifierFailed, "git-commit-notifier failed",
			goerr.V("checkout", paths.Checkout),
			goerr.V("command", cmd.String()),
			goerr.V("cause", err.Error()),
		)
	}

	return nil
}
