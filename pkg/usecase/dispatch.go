package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/gitdub/pkg/domain/interfaces"
	"github.com/m-mizutani/gitdub/pkg/domain/model"
	"github.com/m-mizutani/gitdub/pkg/utils/errs"
	"github.com/m-mizutani/goerr/v2"
)

const zeroCommit = "0000000000000000000000000000000000000000"

type dispatchUseCase struct {
	matcher    *Matcher
	mirrors    interfaces.MirrorManager
	notifiers  map[model.BackendKind]interfaces.Notifier
	silentInit bool
	locks      *repoLocks
}

// DispatchOption is a functional option for the dispatcher
type DispatchOption func(*dispatchUseCase)

// WithNotifier registers a notifier backend under its Kind
func WithNotifier(n interfaces.Notifier) DispatchOption {
	return func(uc *dispatchUseCase) {
		uc.notifiers[n.Kind()] = n
	}
}

// WithSilentInit makes the first notifier run on a mirror record state only
func WithSilentInit(enabled bool) DispatchOption {
	return func(uc *dispatchUseCase) {
		uc.silentInit = enabled
	}
}

// NewDispatch creates a new instance of DispatchUseCase
func NewDispatch(matcher *Matcher, mirrors interfaces.MirrorManager, opts ...DispatchOption) *dispatchUseCase {
	uc := &dispatchUseCase{
		matcher:   matcher,
		mirrors:   mirrors,
		notifiers: make(map[model.BackendKind]interfaces.Notifier),
		locks:     newRepoLocks(),
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// ProcessPush implements interfaces.DispatchUseCase
func (uc *dispatchUseCase) ProcessPush(ctx context.Context, event *model.PushEvent) (outcome model.Outcome, err error) {
	// Processing outlives the webhook request; the caller hanging up cancels nothing.
	ctx = context.WithoutCancel(ctx)

	logger := ctxlog.From(ctx).With(
		"repository", event.FullName(),
		"delivery_id", event.DeliveryID,
	)
	ctx = ctxlog.With(ctx, logger)

	defer func() {
		if r := recover(); r != nil {
			err = goerr.New("panic while processing push", goerr.V("recover", fmt.Sprint(r)))
			errs.Report(ctx, "push processing aborted", err)
			outcome = model.OutcomeNotifyFailed
		}
	}()

	logger.Info(fmt.Sprintf("received push from %s for commits %s", event.FullName(), event.ShortRange()),
		"ref", event.Ref,
	)

	if err := event.Validate(); err != nil {
		logger.Warn("discarding malformed push event", "error", err)
		return model.OutcomeRejected, err
	}

	match, err := uc.matcher.Match(event.FullName())
	if err != nil {
		if errors.Is(err, model.ErrNoMatchingRepository) {
			logger.Warn("no matching repository found for " + event.FullName())
			return model.OutcomeRejected, err
		}
		errs.Report(ctx, "failed to match repository", err)
		return model.OutcomeRejected, err
	}

	notifier, ok := uc.notifiers[match.Kind]
	if !ok {
		err := goerr.Wrap(model.ErrUnknownBackend, "notifier is not configured",
			goerr.V("kind", match.Kind),
			goerr.V("rule", match.Rule.ID),
		)
		errs.Report(ctx, "failed to select notifier", err)
		return model.OutcomeRejected, err
	}
	logger = logger.With("rule", match.Rule.ID, "notifier", match.Kind)
	ctx = ctxlog.With(ctx, logger)

	unlock := uc.locks.Lock(event.FullName())
	defer unlock()

	paths, created, err := uc.mirrors.Ensure(ctx, event.Owner, event.Repo)
	if err != nil {
		errs.Report(ctx, "failed to update mirror", err)
		return model.OutcomeMirrorFailed, err
	}
	if !created {
		uc.checkMirrorHead(ctx, paths, event)
	}

	opts := &model.NotifierOptions{
		Kind:   match.Kind,
		Values: match.Values,
		Link:   event.CompareLink(),
		Before: event.Before,
		After:  event.After,
		Ref:    event.Ref,
	}
	if uc.silentInit && !HasRun(ctx, paths, notifier) {
		logger.Info(fmt.Sprintf("configuring %s for silent update", match.Kind))
		opts.UpdateOnly = true
	}

	if err := notifier.Notify(ctx, paths, opts); err != nil {
		errs.Report(ctx, "notification failed", err)
		return model.OutcomeNotifyFailed, err
	}

	logger.Info("notification completed", "update_only", opts.UpdateOnly)
	return model.OutcomeSucceeded, nil
}

// checkMirrorHead warns when the bare mirror does not point at the pushed commit
// after a fetch. Deleted branches and non-branch refs are skipped.
func (uc *dispatchUseCase) checkMirrorHead(ctx context.Context, paths *model.MirrorPaths, event *model.PushEvent) {
	logger := ctxlog.From(ctx)
	if event.After == "" || event.After == zeroCommit || !strings.HasPrefix(event.Ref, "refs/heads/") {
		return
	}

	head, err := uc.mirrors.Resolve(paths, event.Ref)
	if err != nil {
		logger.Debug("could not resolve pushed ref in mirror", "ref", event.Ref, "error", err)
		return
	}
	if head != event.After {
		logger.Warn("mirror is not at the pushed commit",
			"ref", event.Ref,
			"mirror_head", head,
			"after", event.After,
		)
	}
}

// ProcessPing implements interfaces.DispatchUseCase
func (uc *dispatchUseCase) ProcessPing(ctx context.Context, event *model.PingEvent) {
	ctxlog.From(ctx).Info(fmt.Sprintf("received ping for hook_id=%d with zen='%s'", event.HookID, event.Zen))
}
