package usecase

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/gitdub/pkg/domain/interfaces"
	"github.com/m-mizutani/gitdub/pkg/domain/model"
)

// HasRun reports whether the notifier has left its state marker in the mirror.
// It never creates or removes the marker; that is up to the notifier itself.
func HasRun(ctx context.Context, paths *model.MirrorPaths, n interfaces.Notifier) bool {
	marker := n.MarkerPath(paths)

	_, err := os.Stat(marker)
	if err == nil {
		return true
	}
	if !errors.Is(err, fs.ErrNotExist) {
		// An unreadable marker counts as run so the push is not silenced
		ctxlog.From(ctx).Warn("failed to check notifier state marker", "marker", marker, "error", err)
		return true
	}
	return false
}
