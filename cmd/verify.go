// File: cmd/verify.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/railscope/internal/config"
	"github.com/xkilldash9x/railscope/internal/decoderui"
	"github.com/xkilldash9x/railscope/internal/observability"
	"github.com/xkilldash9x/railscope/internal/verify"
)

type verifyOptions struct {
	document      string
	input         string
	output        string
	inputLocator  string
	actionLocator string
	waitFor       string
	suite         string
	serve         bool
	keepGoing     bool
	execPath      string
	headful       bool
}

func newVerifyCmd() *cobra.Command {
	var opts verifyOptions

	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Drive the decoder page in a headless browser and save a screenshot",
		Long: `Loads a document in a fresh headless browser, types the input into the
input control, activates the action control and saves a full-page PNG.

Without --input or --suite the two built-in decoder scenarios run.
Locators: #id, css:<selector>, testid:<value>, role:<role>:<name>.`,
		Example: `  railscope verify --serve
  railscope verify --document ./page.html --input "0x74 0x72 0x6C" --output out.png
  railscope verify --serve --action-locator role:button:Decode --input "2E 93 93 78 E4 B4"
  railscope verify --suite scenarios.yaml --keep-going`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			applyVerifyFlags(cmd, cfg, opts)
			return runVerify(cmd.Context(), cfg, opts, cmd.OutOrStdout())
		},
	}

	flags := verifyCmd.Flags()
	flags.StringVarP(&opts.document, "document", "d", "", "Document to load: a local path or an http(s)/file URL")
	flags.StringVarP(&opts.input, "input", "i", "", "Text typed into the input control")
	flags.StringVarP(&opts.output, "output", "o", "", "Screenshot path (overrides verify.output)")
	flags.StringVar(&opts.inputLocator, "input-locator", "#input", "Locator of the input control")
	flags.StringVar(&opts.actionLocator, "action-locator", "#decode", "Locator of the action control")
	flags.StringVar(&opts.waitFor, "wait-for", "", "Locator that must be visible after the action")
	flags.StringVarP(&opts.suite, "suite", "s", "", "YAML file with a list of scenarios (overrides verify.suite)")
	flags.BoolVar(&opts.serve, "serve", false, "Serve the decoder page on a loopback port and verify against it")
	flags.BoolVar(&opts.keepGoing, "keep-going", false, "Run every scenario even after a failure")
	flags.StringVar(&opts.execPath, "exec-path", "", "Chrome or Chromium binary (overrides browser.exec_path)")
	flags.BoolVar(&opts.headful, "headful", false, "Show the browser window")

	return verifyCmd
}

// applyVerifyFlags copies explicitly set flags over the loaded configuration.
func applyVerifyFlags(cmd *cobra.Command, cfg config.Interface, opts verifyOptions) {
	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.SetVerifyOutput(opts.output)
	}
	if flags.Changed("suite") {
		cfg.SetVerifySuite(opts.suite)
	}
	if flags.Changed("serve") {
		cfg.SetVerifyServe(opts.serve)
	}
	if flags.Changed("exec-path") {
		cfg.SetBrowserExecPath(opts.execPath)
	}
	if flags.Changed("headful") {
		cfg.SetBrowserHeadless(!opts.headful)
	}
}

// buildSuite decides what to run: a suite file, a single scenario from the
// flags, or the built-in decoder scenarios. Document and output defaults are
// applied later, once the served page address is known.
func buildSuite(cfg config.Interface, opts verifyOptions) (*verify.Suite, error) {
	if path := cfg.Verify().Suite; path != "" {
		return verify.LoadSuite(path)
	}
	if opts.input == "" {
		return verify.DefaultSuite(), nil
	}

	sc := verify.Scenario{Name: "cli", Input: opts.input}
	var err error
	if sc.InputLocator, err = verify.ParseLocator(opts.inputLocator); err != nil {
		return nil, fmt.Errorf("invalid --input-locator: %w", err)
	}
	if sc.ActionLocator, err = verify.ParseLocator(opts.actionLocator); err != nil {
		return nil, fmt.Errorf("invalid --action-locator: %w", err)
	}
	if opts.waitFor != "" {
		if sc.WaitFor, err = verify.ParseLocator(opts.waitFor); err != nil {
			return nil, fmt.Errorf("invalid --wait-for: %w", err)
		}
	}
	return &verify.Suite{Scenarios: []verify.Scenario{sc}}, nil
}

func runVerify(ctx context.Context, cfg config.Interface, opts verifyOptions, out io.Writer) error {
	logger := observability.GetLogger()

	suite, err := buildSuite(cfg, opts)
	if err != nil {
		return err
	}
	if !cfg.Verify().Serve {
		if opts.document == "" && !hasDocuments(suite) {
			return errors.New("no document to verify: pass --document or --serve")
		}
		suite.ApplyDefaults(opts.document, cfg.Verify().Output)
		return runSuite(ctx, verify.NewRunner(cfg, logger), suite, opts.keepGoing, out)
	}

	serverCfg := cfg.Server()
	serverCfg.Addr = "127.0.0.1:0"
	srv := decoderui.NewServer(serverCfg, logger)
	ln, err := srv.Listen()
	if err != nil {
		return err
	}
	document := decoderui.URL(ln)
	if opts.document != "" {
		document = opts.document
	}
	suite.ApplyDefaults(document, cfg.Verify().Output)
	logger.Info("Verifying against the built-in decoder page.", zap.String("url", decoderui.URL(ln)))

	g, gctx := errgroup.WithContext(ctx)
	serveCtx, stopServe := context.WithCancel(gctx)
	g.Go(func() error {
		return srv.Serve(serveCtx, ln)
	})
	g.Go(func() error {
		defer stopServe()
		return runSuite(gctx, verify.NewRunner(cfg, logger), suite, opts.keepGoing, out)
	})
	return g.Wait()
}

func hasDocuments(suite *verify.Suite) bool {
	for _, sc := range suite.Scenarios {
		if sc.Document == "" {
			return false
		}
	}
	return true
}

func runSuite(ctx context.Context, runner *verify.Runner, suite *verify.Suite, keepGoing bool, out io.Writer) error {
	results, err := runner.RunSuite(ctx, suite, keepGoing)
	for _, res := range results {
		printResult(out, res)
	}
	return err
}

func printResult(w io.Writer, res *verify.Result) {
	if res.State == verify.StateClosed {
		fmt.Fprintf(w, "PASS  %-16s %s (%dx%d, %d bytes, %s)\n",
			res.Scenario, res.Output, res.Width, res.Height, res.Bytes, res.Duration.Round(time.Millisecond))
		return
	}
	fmt.Fprintf(w, "FAIL  %-16s stopped at %s\n", res.Scenario, res.State)
}
