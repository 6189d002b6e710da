package interfaces

import (
	"context"

	"github.com/m-mizutani/gitdub/pkg/domain/model"
)

// CommandRunner executes external programs
type CommandRunner interface {
	// Run executes cmd and returns its captured output. A non-zero exit status is
	// returned as an error together with the output.
	Run(ctx context.Context, cmd *model.Command) (*model.CommandResult, error)
}

// MirrorManager keeps local mirrors of remote repositories
type MirrorManager interface {
	// Ensure clones the mirrors of owner/repo that are missing and fetches the ones
	// that already exist. created is true when the bare mirror was cloned.
	Ensure(ctx context.Context, owner, repo string) (paths *model.MirrorPaths, created bool, err error)

	// Resolve returns the commit hash ref points to in the bare mirror
	Resolve(paths *model.MirrorPaths, ref string) (string, error)
}

// Notifier sends change notifications for a mirror
type Notifier interface {
	Kind() model.BackendKind

	// MarkerPath returns where the notifier keeps its state marker for the mirror
	MarkerPath(paths *model.MirrorPaths) string

	Notify(ctx context.Context, paths *model.MirrorPaths, opts *model.NotifierOptions) error
}
