package async

import (
	"context"
	"runtime/debug"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/gitdub/pkg/utils/errs"
	"github.com/m-mizutani/goerr/v2"
)

// Dispatch runs handler in a new goroutine after the webhook response has been
// written. The handler gets a background context carrying the caller's logger
// and Sentry hub, so it outlives the request. Returned errors and panics are
// reported through errs.Report.
func Dispatch(ctx context.Context, handler func(ctx context.Context) error) {
	newCtx := newBackgroundContext(ctx)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				err := goerr.New("panic in async handler",
					goerr.V("recover", r),
					goerr.V("stack", string(debug.Stack())),
				)
				errs.Report(newCtx, "panic in async handler", err)
			}
		}()

		if err := handler(newCtx); err != nil {
			errs.Report(newCtx, "error in async handler", err)
		}
	}()
}

// newBackgroundContext returns context.Background() with the ctxlog logger and,
// if present, a clone of the Sentry hub of ctx
func newBackgroundContext(ctx context.Context) context.Context {
	newCtx := context.Background()
	newCtx = ctxlog.With(newCtx, ctxlog.From(ctx))
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		newCtx = sentry.SetHubOnContext(newCtx, hub.Clone())
	}
	return newCtx
}
