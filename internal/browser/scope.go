package browser

import (
	"context"
	"time"
)

// StepContext scopes one browser step to timeout. Values come from tab, where
// chromedp keeps its target, and the step also ends as soon as caller ends.
// The caller's cancellation cause is kept on the returned context.
func StepContext(tab, caller context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(tab)
	stop := context.AfterFunc(caller, func() { cancel(context.Cause(caller)) })
	ctx, cancelTimeout := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancelTimeout()
		stop()
		cancel(nil)
	}
}
