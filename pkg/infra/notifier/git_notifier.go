package notifier

import (
	"context"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/gitdub/pkg/domain/interfaces"
	"github.com/m-mizutani/gitdub/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
)

const (
	GitNotifierMarker     = ".git-notifier.dat"
	DefaultGitNotifierLog = "/var/log/git-notifier.log"
)

// optionNames translates config keys into git-notifier flag names
var optionNames = map[string]string{
	"from":    "sender",
	"to":      "mailinglist",
	"subject": "emailprefix",
}

// GitNotifier runs git-notifier inside the bare mirror. git-notifier keeps its own
// state in GitNotifierMarker and only reports commits it has not seen yet.
type GitNotifier struct {
	runner  interfaces.CommandRunner
	binary  string
	logFile string
}

// GitNotifierOption is a functional option for GitNotifier
type GitNotifierOption func(*GitNotifier)

// WithBinary sets the git-notifier executable
func WithBinary(binary string) GitNotifierOption {
	return func(n *GitNotifier) {
		n.binary = binary
	}
}

// WithLogFile sets the file passed to --log
func WithLogFile(path string) GitNotifierOption {
	return func(n *GitNotifier) {
		n.logFile = path
	}
}

// NewGitNotifier creates a new GitNotifier
func NewGitNotifier(runner interfaces.CommandRunner, opts ...GitNotifierOption) *GitNotifier {
	n := &GitNotifier{
		runner:  runner,
		binary:  "git-notifier",
		logFile: DefaultGitNotifierLog,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *GitNotifier) Kind() model.BackendKind {
	return model.BackendGitNotifier
}

// Executable returns the program started by Notify
func (n *GitNotifier) Executable() string {
	return n.binary
}

func (n *GitNotifier) MarkerPath(paths *model.MirrorPaths) string {
	return filepath.Join(paths.Bare, GitNotifierMarker)
}

// Notify implements interfaces.Notifier
func (n *GitNotifier) Notify(ctx context.Context, paths *model.MirrorPaths, opts *model.NotifierOptions) error {
	logger := ctxlog.From(ctx)

	args := n.Args(opts)
	logger.Debug("git-notifier arguments", "args", args)

	result, err := n.runner.Run(ctx, &model.Command{
		Name: n.binary,
		Args: args,
		Dir:  paths.Bare,
	})
	if err != nil {
		attrs := []any{"dir", paths.Bare, "error", err}
		if result != nil {
			attrs = append(attrs, "stderr", strings.TrimSpace(string(result.Stderr)))
		}
		logger.Error("git-notifier failed", attrs...)
		return goerr.Wrap(model.ErrNotifierFailed, "git-notifier failed",
			goerr.V("dir", paths.Bare),
			goerr.V("args", args),
			goerr.V("cause", err.Error()),
		)
	}

	return nil
}

// Args flattens opts into git-notifier flags. true becomes a bare flag, false and
// nil are dropped, anything else becomes "--key value". Keys are sorted.
func (n *GitNotifier) Args(opts *model.NotifierOptions) []string {
	values := make(map[string]any, len(opts.Values)+2)
	for k, v := range opts.Values {
		if _, renamed := optionNames[k]; !renamed {
			values[k] = v
		}
	}
	for from, to := range optionNames {
		if v, ok := opts.Values[from]; ok {
			values[to] = v
		}
	}
	if opts.Link != "" {
		values["link"] = opts.Link
	}
	if opts.UpdateOnly {
		values["updateonly"] = true
	}

	var args []string
	for _, key := range slices.Sorted(maps.Keys(values)) {
		v := values[key]
		if key == "mailinglist" {
			v = joinList(v)
		}

		switch tv := v.(type) {
		case nil:
			continue
		case bool:
			if tv {
				args = append(args, "--"+key)
			}
		default:
			args = append(args, "--"+key, fmt.Sprint(tv))
		}
	}

	return append(args, "--log", n.logFile)
}

func joinList(v any) any {
	switch tv := v.(type) {
	case []string:
		return strings.Join(tv, ",")
	case []any:
		items := make([]string, 0, len(tv))
		for _, item := range tv {
			items = append(items, fmt.Sprint(item))
		}
		return strings.Join(items, ",")
	default:
		return v
	}
}
