// Package browser owns the lifecycle of a local Chrome process driven over
// the DevTools protocol with chromedp.
package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/railscope/internal/config"
)

// ErrNoBrowser is returned when no Chrome or Chromium binary can be found.
var ErrNoBrowser = errors.New("no chrome or chromium executable found")

// execCandidates mirrors the lookup order chromedp uses on unix-like systems.
var execCandidates = []string{
	"headless_shell",
	"headless-shell",
	"chromium",
	"chromium-browser",
	"google-chrome",
	"google-chrome-stable",
	"/usr/bin/google-chrome",
	"/usr/local/bin/chrome",
	"/snap/bin/chromium",
	"chrome",
}

// LookupExecPath resolves the browser binary. A configured path wins;
// otherwise the usual Chrome and Chromium names are searched on PATH.
func LookupExecPath(configured string) (string, error) {
	if configured != "" {
		path, err := exec.LookPath(configured)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrNoBrowser, configured, err)
		}
		return path, nil
	}
	candidates := execCandidates
	switch runtime.GOOS {
	case "darwin":
		candidates = append([]string{
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
		}, candidates...)
	case "windows":
		candidates = []string{
			"chrome.exe",
			`C:\Program Files\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
			filepath.Join(os.Getenv("LOCALAPPDATA"), `Google\Chrome\Application\chrome.exe`),
			`C:\Program Files (x86)\Microsoft\Edge\Application\msedge.exe`,
		}
	}
	for _, name := range candidates {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", ErrNoBrowser
}

// AllocatorOptions builds the exec allocator flags for cfg on top of chromedp's defaults.
func AllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)

	opts = append(opts,
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", cfg.Headless),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("mute-audio", true),
	)
	if cfg.IgnoreTLSErrors {
		opts = append(opts, chromedp.IgnoreCertErrors)
	}
	if cfg.DisableCache {
		opts = append(opts,
			chromedp.Flag("disk-cache-size", "1"),
			chromedp.Flag("media-cache-size", "1"),
		)
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	if cfg.Viewport.Width > 0 && cfg.Viewport.Height > 0 {
		opts = append(opts, chromedp.WindowSize(cfg.Viewport.Width, cfg.Viewport.Height))
	}
	if cfg.LaunchTimeout > 0 {
		opts = append(opts, chromedp.WSURLReadTimeout(cfg.LaunchTimeout))
	}

	// Extra command line switches, "--name=value" or "--name".
	for _, arg := range cfg.Args {
		parts := strings.SplitN(arg, "=", 2)
		name := strings.TrimPrefix(parts[0], "--")
		if name == "" {
			continue
		}
		if len(parts) == 2 {
			opts = append(opts, chromedp.Flag(name, parts[1]))
		} else {
			opts = append(opts, chromedp.Flag(name, true))
		}
	}

	// Containers rarely allow the setuid sandbox.
	if runtime.GOOS == "linux" {
		opts = append(opts,
			chromedp.NoSandbox,
			chromedp.Flag("disable-setuid-sandbox", true),
		)
	}

	return opts
}

// Browser is one running browser process with a single tab.
type Browser struct {
	logger *zap.Logger

	allocCtx    context.Context
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc

	pid       int
	closeOnce sync.Once
}

// Launch starts a browser process and opens its first tab. The process is
// detached from ctx: it lives until Close, which callers must defer.
// A missing binary fails with ErrNoBrowser before anything is started.
func Launch(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Browser, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	path, err := LookupExecPath(cfg.ExecPath)
	if err != nil {
		return nil, err
	}
	cfg.ExecPath = path
	b := &Browser{logger: logger}

	b.allocCtx, b.allocCancel = chromedp.NewExecAllocator(context.WithoutCancel(ctx), AllocatorOptions(cfg)...)
	b.tabCtx, b.tabCancel = chromedp.NewContext(b.allocCtx,
		chromedp.WithLogf(logger.Sugar().Debugf),
		chromedp.WithErrorf(logger.Sugar().Debugf),
	)

	// The first Run allocates the process; it must not carry a deadline or the
	// whole browser would die with it. Launch time is bounded by the
	// allocator's websocket read timeout instead.
	if err := chromedp.Run(b.tabCtx); err != nil {
		b.Close()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	if c := chromedp.FromContext(b.tabCtx); c != nil && c.Browser != nil {
		if p := c.Browser.Process(); p != nil {
			b.pid = p.Pid
		}
	}
	logger.Debug("Browser launched.", zap.Int("pid", b.pid), zap.String("exec_path", path))
	return b, nil
}

// Context is the tab context to run chromedp actions against.
func (b *Browser) Context() context.Context { return b.tabCtx }

// PID is the operating system process id of the browser, or 0 if unknown.
func (b *Browser) PID() int { return b.pid }

// Close shuts the browser down and waits for the process to exit. It is safe
// to call more than once; only the first call has an effect.
func (b *Browser) Close() {
	b.closeOnce.Do(func() {
		if err := chromedp.Cancel(b.tabCtx); err != nil && !errors.Is(err, context.Canceled) {
			b.logger.Debug("Graceful browser close failed, killing process.", zap.Error(err))
		}
		b.tabCancel()
		// Cancelling the allocator blocks until the process has been reaped.
		b.allocCancel()
		if !ProcessExited(b.pid) {
			b.logger.Warn("Browser process still running after close.", zap.Int("pid", b.pid))
			return
		}
		b.logger.Debug("Browser closed.", zap.Int("pid", b.pid))
	})
}
