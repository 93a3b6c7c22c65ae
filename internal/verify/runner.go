// Package verify drives a browser through a short scripted check of a web
// page: navigate, fill an input, trigger an action, and save a screenshot.
package verify

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/railscope/internal/browser"
	"github.com/xkilldash9x/railscope/internal/config"
)

// Runner executes scenarios, one fresh browser per run.
type Runner struct {
	browserCfg config.BrowserConfig
	cfg        config.VerifyConfig
	logger     *zap.Logger

	// launch is replaced in tests.
	launch func(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*browser.Browser, error)
}

// NewRunner creates a runner from the browser and verify configuration.
func NewRunner(cfg config.Interface, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		browserCfg: cfg.Browser(),
		cfg:        cfg.Verify(),
		logger:     logger.Named("verify"),
		launch:     browser.Launch,
	}
}

// Run executes one scenario. The browser is closed before Run returns, on
// every path. A non-nil error is always a *StepError. It wraps one of the
// Err* classes unless the scenario itself is invalid or the caller canceled
// ctx. The returned Result is never nil and records how far the run got.
func (r *Runner) Run(ctx context.Context, sc Scenario) (*Result, error) {
	res := &Result{
		RunID:    uuid.NewString(),
		Scenario: sc.Name,
		State:    StateNotStarted,
	}
	logger := r.logger.With(zap.String("run_id", res.RunID), zap.String("scenario", sc.Name))
	start := time.Now()
	defer func() { res.Duration = time.Since(start) }()

	if err := sc.Validate(); err != nil {
		return res, &StepError{Step: StepResolve, Err: err}
	}
	docURL, err := ResolveDocument(sc.Document)
	if err != nil {
		return res, &StepError{Step: StepResolve, Err: err}
	}
	out, err := filepath.Abs(sc.Output)
	if err != nil {
		return res, stepError(StepResolve, ErrIO, err)
	}
	res.Output = out

	logger.Info("Starting verification.", zap.String("document", docURL), zap.String("output", out))

	b, err := r.launch(ctx, r.browserCfg, logger)
	if err != nil {
		return res, stepError(StepLaunch, ErrBrowserLaunch, err)
	}
	res.BrowserPID = b.PID()
	defer func() {
		b.Close()
		if res.State == StateCaptured {
			res.State = StateClosed
		}
		logger.Debug("Browser released.", zap.Int("pid", res.BrowserPID), zap.Stringer("state", res.State))
	}()

	if err := r.execute(ctx, b.Context(), sc, docURL, res, logger); err != nil {
		logger.Error("Verification failed.", zap.Error(err), zap.Stringer("state", res.State))
		return res, err
	}
	logger.Info("Verification complete.",
		zap.String("output", res.Output),
		zap.Int("width", res.Width),
		zap.Int("height", res.Height),
		zap.Int("bytes", res.Bytes),
	)
	return res, nil
}

// execute runs the page steps in order against the tab. Each step gets its own
// deadline and is also canceled with ctx.
func (r *Runner) execute(ctx, tab context.Context, sc Scenario, docURL string, res *Result, logger *zap.Logger) error {
	step := func(timeout time.Duration, fn func(ctx context.Context) error) error {
		sctx, cancel := browser.StepContext(tab, ctx, timeout)
		defer cancel()
		return fn(sctx)
	}
	// The caller's cancellation is reported as is, not as a step failure class.
	fail := func(s Step, class, err error) error {
		if ctx.Err() != nil {
			return &StepError{Step: s, Err: ctx.Err()}
		}
		return stepError(s, class, err)
	}

	err := step(r.cfg.NavigationTimeout, func(ctx context.Context) error {
		resp, err := chromedp.RunResponse(ctx, chromedp.Navigate(docURL))
		if err != nil {
			return err
		}
		return checkResponse(docURL, resp)
	})
	if err != nil {
		return fail(StepNavigate, ErrNavigation, err)
	}
	res.State = StateNavigated
	logger.Debug("Navigated.", zap.String("url", docURL))

	var input *element
	if err := step(r.cfg.ElementTimeout, func(ctx context.Context) (err error) {
		input, err = locate(ctx, sc.InputLocator)
		return err
	}); err != nil {
		return fail(StepFill, ErrElementNotFound, err)
	}
	if err := step(r.cfg.ActionTimeout, func(ctx context.Context) error {
		return input.fill(ctx, sc.Input)
	}); err != nil {
		return fail(StepFill, ErrElementNotFound, err)
	}
	res.State = StateInputFilled
	logger.Debug("Input filled.", zap.Stringer("locator", sc.InputLocator))

	var action *element
	if err := step(r.cfg.ElementTimeout, func(ctx context.Context) (err error) {
		action, err = locate(ctx, sc.ActionLocator)
		return err
	}); err != nil {
		return fail(StepAction, ErrElementNotFound, err)
	}
	if err := step(r.cfg.ActionTimeout, action.click); err != nil {
		return fail(StepAction, ErrElementNotFound, err)
	}
	res.State = StateActionTriggered
	logger.Debug("Action triggered.", zap.Stringer("locator", sc.ActionLocator))

	if !sc.WaitFor.IsZero() {
		if err := step(r.cfg.ElementTimeout, func(ctx context.Context) error {
			_, err := locate(ctx, sc.WaitFor)
			return err
		}); err != nil {
			return fail(StepWait, ErrElementNotFound, err)
		}
	}

	var shot []byte
	err = step(r.cfg.ScreenshotTimeout, func(ctx context.Context) error {
		return chromedp.Run(ctx,
			chromedp.Sleep(r.cfg.SettleDelay),
			// Quality 100 keeps the lossless PNG encoding.
			chromedp.FullScreenshot(&shot, 100),
		)
	})
	if err != nil {
		return fail(StepCapture, ErrIO, err)
	}
	if res.Width, res.Height, err = pngSize(shot); err != nil {
		return fail(StepCapture, ErrIO, err)
	}
	if err := writeAtomic(res.Output, shot); err != nil {
		return fail(StepCapture, ErrIO, err)
	}
	res.Bytes = len(shot)
	res.State = StateCaptured
	return nil
}

// checkResponse fails an http(s) document whose main response is an error
// status. Other schemes have no status to check.
func checkResponse(docURL string, resp *network.Response) error {
	if resp == nil {
		return nil
	}
	u, err := url.Parse(docURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil
	}
	if resp.Status >= 400 {
		return fmt.Errorf("%s answered %d %s", docURL, resp.Status, resp.StatusText)
	}
	return nil
}

// RunSuite runs every scenario in order. It stops at the first failure
// unless keepGoing is set, in which case all failures are joined.
func (r *Runner) RunSuite(ctx context.Context, suite *Suite, keepGoing bool) ([]*Result, error) {
	var (
		results []*Result
		errs    []error
	)
	for _, sc := range suite.Scenarios {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := r.Run(ctx, sc)
		results = append(results, res)
		if err == nil {
			continue
		}
		if !keepGoing || errors.Is(err, context.Canceled) {
			return results, fmt.Errorf("scenario %q: %w", sc.Name, err)
		}
		errs = append(errs, fmt.Errorf("scenario %q: %w", sc.Name, err))
	}
	return results, errors.Join(errs...)
}
