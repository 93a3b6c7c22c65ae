package verify

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/railscope/internal/browser"
	"github.com/xkilldash9x/railscope/internal/config"
	"github.com/xkilldash9x/railscope/internal/decoderui"
)

// browserFixture is a decoder page server plus a config pointing at a local Chrome.
type browserFixture struct {
	cfg    *config.Config
	server *httptest.Server
	outDir string
}

func setupBrowserFixture(t *testing.T) *browserFixture {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	execPath, err := browser.LookupExecPath(os.Getenv("RAILSCOPE_BROWSER_EXEC_PATH"))
	if err != nil {
		t.Skipf("skipping browser test: %v", err)
	}

	cfg := config.NewDefaultConfig()
	cfg.SetBrowserExecPath(execPath)
	cfg.SetBrowserHeadless(true)
	cfg.VerifyCfg.ElementTimeout = 3 * time.Second
	cfg.VerifyCfg.SettleDelay = 50 * time.Millisecond

	srv := httptest.NewServer(decoderui.NewServer(cfg.Server(), zaptest.NewLogger(t)).Handler())
	t.Cleanup(srv.Close)

	return &browserFixture{cfg: cfg, server: srv, outDir: t.TempDir()}
}

func (f *browserFixture) scenario(i int, output string) Scenario {
	sc := DefaultSuite().Scenarios[i]
	sc.Document = f.server.URL + "/"
	sc.Output = filepath.Join(f.outDir, output)
	return sc
}

func assertExited(t *testing.T, res *Result) {
	t.Helper()
	require.NotZero(t, res.BrowserPID)
	assert.True(t, browser.ProcessExited(res.BrowserPID), "browser pid %d still alive", res.BrowserPID)
}

func TestRun_InfoScenarioByID(t *testing.T) {
	f := setupBrowserFixture(t)
	r := NewRunner(f.cfg, zaptest.NewLogger(t))

	res, err := r.Run(context.Background(), f.scenario(0, "info.png"))
	require.NoError(t, err)
	assert.Equal(t, StateClosed, res.State)
	assertExited(t, res)

	info, err := os.Stat(res.Output)
	require.NoError(t, err)
	assert.Equal(t, int64(res.Bytes), info.Size())
	assert.Positive(t, res.Width)
	assert.Positive(t, res.Height)

	entries, err := os.ReadDir(f.outDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "exactly one screenshot is written")
}

func TestRun_DecoderStateScenarioByRole(t *testing.T) {
	f := setupBrowserFixture(t)
	r := NewRunner(f.cfg, zaptest.NewLogger(t))

	res, err := r.Run(context.Background(), f.scenario(1, "dyn.png"))
	require.NoError(t, err)
	assert.Equal(t, StateClosed, res.State)
	assertExited(t, res)
}

func TestRun_TestIDLocator(t *testing.T) {
	f := setupBrowserFixture(t)
	r := NewRunner(f.cfg, zaptest.NewLogger(t))

	sc := f.scenario(0, "testid.png")
	sc.ActionLocator = MustParseLocator("testid:decode")
	_, err := r.Run(context.Background(), sc)
	require.NoError(t, err)
}

func TestRun_MissingInputElement(t *testing.T) {
	f := setupBrowserFixture(t)
	r := NewRunner(f.cfg, zaptest.NewLogger(t))

	sc := f.scenario(0, "missing.png")
	sc.InputLocator = MustParseLocator("#no-such-input")
	res, err := r.Run(context.Background(), sc)
	require.ErrorIs(t, err, ErrElementNotFound)
	var se *StepError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StepFill, se.Step)
	assert.Equal(t, StateNavigated, res.State)
	assertExited(t, res)

	_, statErr := os.Stat(sc.Output)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRun_MissingRoleElement(t *testing.T) {
	f := setupBrowserFixture(t)
	r := NewRunner(f.cfg, zaptest.NewLogger(t))

	sc := f.scenario(1, "missing-role.png")
	sc.ActionLocator = MustParseLocator("role:button:Encode")
	res, err := r.Run(context.Background(), sc)
	require.ErrorIs(t, err, ErrElementNotFound)
	assert.Equal(t, StateInputFilled, res.State)
	assertExited(t, res)
}

func TestRun_UnwritableOutput(t *testing.T) {
	f := setupBrowserFixture(t)
	r := NewRunner(f.cfg, zaptest.NewLogger(t))

	sc := f.scenario(0, filepath.Join("does", "not", "exist", "out.png"))
	res, err := r.Run(context.Background(), sc)
	require.ErrorIs(t, err, ErrIO)
	var se *StepError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StepCapture, se.Step)
	assertExited(t, res)
}

func TestRun_NavigationFailure(t *testing.T) {
	f := setupBrowserFixture(t)
	r := NewRunner(f.cfg, zaptest.NewLogger(t))

	sc := f.scenario(0, "nav.png")
	sc.Document = "file:///definitely/not/here.html"
	res, err := r.Run(context.Background(), sc)
	require.ErrorIs(t, err, ErrNavigation)
	assert.Equal(t, StateNotStarted, res.State)
	assertExited(t, res)
}

func TestRun_OverwritesPreviousScreenshot(t *testing.T) {
	f := setupBrowserFixture(t)
	r := NewRunner(f.cfg, zaptest.NewLogger(t))
	sc := f.scenario(0, "again.png")

	require.NoError(t, os.WriteFile(sc.Output, []byte("stale"), 0o644))

	first, err := r.Run(context.Background(), sc)
	require.NoError(t, err)
	second, err := r.Run(context.Background(), sc)
	require.NoError(t, err)

	assert.Equal(t, first.Width, second.Width)
	assert.Equal(t, first.Height, second.Height)
	assert.NotEqual(t, first.RunID, second.RunID)

	data, err := os.ReadFile(sc.Output)
	require.NoError(t, err)
	assert.Equal(t, second.Bytes, len(data))
	w, h, err := pngSize(data)
	require.NoError(t, err)
	assert.Equal(t, second.Width, w)
	assert.Equal(t, second.Height, h)
}

func TestRun_LocalFileDocument(t *testing.T) {
	f := setupBrowserFixture(t)
	r := NewRunner(f.cfg, zaptest.NewLogger(t))

	page := filepath.Join(t.TempDir(), "index.html")
	require.NoError(t, os.WriteFile(page, []byte(`<!DOCTYPE html>
<textarea id="input"></textarea>
<button id="decode" onclick="document.getElementById('out').textContent = document.getElementById('input').value">Decode</button>
<pre id="out"></pre>`), 0o644))

	sc := Scenario{
		Name:          "local",
		Document:      page,
		Input:         "0x74 0x72 0x6C",
		InputLocator:  MustParseLocator("#input"),
		ActionLocator: MustParseLocator("role:button:Decode"),
		WaitFor:       MustParseLocator("css:#out:not(:empty)"),
		Output:        filepath.Join(f.outDir, "local.png"),
	}
	res, err := r.Run(context.Background(), sc)
	require.NoError(t, err)
	assertExited(t, res)
}

func TestRunSuite_DefaultSuite(t *testing.T) {
	f := setupBrowserFixture(t)
	r := NewRunner(f.cfg, zaptest.NewLogger(t))

	suite := DefaultSuite()
	suite.ApplyDefaults(f.server.URL+"/", filepath.Join(f.outDir, "verification.png"))
	results, err := r.RunSuite(context.Background(), suite, false)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, res := range results {
		assert.Equal(t, StateClosed, res.State)
		assertExited(t, res)
		assert.FileExists(t, res.Output)
	}
}

func TestRun_HTTPErrorStatusIsNavigationFailure(t *testing.T) {
	f := setupBrowserFixture(t)
	r := NewRunner(f.cfg, zaptest.NewLogger(t))

	sc := f.scenario(0, "missing.png")
	sc.Document = f.server.URL + "/no-such-page"
	res, err := r.Run(context.Background(), sc)
	require.ErrorIs(t, err, ErrNavigation)
	var se *StepError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StepNavigate, se.Step)
	assert.Contains(t, err.Error(), "404")
	assert.Equal(t, StateNotStarted, res.State)
	assertExited(t, res)

	_, statErr := os.Stat(sc.Output)
	assert.ErrorIs(t, statErr, os.ErrNotExist, "no screenshot for a failed document")
}
