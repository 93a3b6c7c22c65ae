// File: cmd/commands_test.go
package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/xkilldash9x/railscope/internal/config"
	"github.com/xkilldash9x/railscope/internal/verify"
)

func TestDecodeCommand(t *testing.T) {
	t.Run("arguments", func(t *testing.T) {
		out, err := executeCommand(t, context.Background(), "", "decode", "0x74", "0x72", "0x6C")
		require.NoError(t, err)
		assert.Contains(t, out, "== 6-bit values ==\n0x74 (0b0111_0100) -> 19")
		assert.Contains(t, out, "== Raw IDs ==\nID: INFO/STAT1 (4)\nPayload: 0xD4")
		assert.Contains(t, out, "Status: 212")
		assert.Contains(t, out, "Warning: 1 leftover 6-bit chunk(s): 0b010101")
	})

	t.Run("stdin", func(t *testing.T) {
		out, err := executeCommand(t, context.Background(), "2E 93 93 78 E4 B4\n", "decode")
		require.NoError(t, err)
		assert.Contains(t, out, "ID: DECODER_STATE (13)")
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := executeCommand(t, context.Background(), "  \n", "decode")
		assert.EqualError(t, err, "no input to decode")
	})

	t.Run("acknowledgements are named", func(t *testing.T) {
		out, err := executeCommand(t, context.Background(), "", "decode", "F0", "3C")
		require.NoError(t, err)
		assert.Contains(t, out, "0xF0 (0b1111_0000) -> ACK\n")
		assert.Contains(t, out, "0x3C (0b0011_1100) -> NACK\n")
	})

	t.Run("data space", func(t *testing.T) {
		out, err := executeCommand(t, context.Background(), "", "decode", "--data-space", "2", "AC4E991BE256")
		require.NoError(t, err)
		assert.Contains(t, out, "== Data space 2 ==\n0x1234 (2 bytes, CRC ok)\n")

		out, err = executeCommand(t, context.Background(), "", "decode", "--data-space", "3", "AC4E991BE256")
		require.NoError(t, err)
		assert.Contains(t, out, "== Data space 3 ==\nError: railcom: data space crc mismatch")
	})

	t.Run("invalid bytes are listed", func(t *testing.T) {
		out, err := executeCommand(t, context.Background(), "", "decode", "FF")
		require.NoError(t, err)
		assert.Contains(t, out, "0xFF (0b1111_1111) -> Error: Invalid byte")
		assert.Contains(t, out, "== Raw IDs ==\n(none)")
	})
}

func TestEncodeCommand(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr string
	}{
		{"fields", []string{"--id", "4", "--field", "Status=212"}, "0x7472\n", ""},
		{"raw payload", []string{"--id", "4", "--payload", "D4"}, "0x7472\n", ""},
		{"time", []string{"--id", "5", "--field", "Time=00:00"}, "0x72ACACAC\n", ""},
		{"field with spaces", []string{"--id", "3", "-f", "Source=1", "-f", "Detector Location Type=10", "-f", "Detector Location Address=200"}, "", ""},
		{"missing id", []string{"--field", "Status=1"}, "", `required flag(s) "id" not set`},
		{"id out of range", []string{"--id", "16"}, "", "out of range"},
		{"malformed field", []string{"--id", "4", "--field", "Status"}, "", "want name=value"},
		{"unknown field", []string{"--id", "4", "--field", "Nope=1"}, "", "unknown field"},
		{"fields and payload", []string{"--id", "4", "--field", "Status=1", "--payload", "01"}, "", "none of the others can be"},
		{"data space", []string{"--data-space", "2", "--payload", "1234"}, "0xAC4E991BE256\n", ""},
		{"data space out of range", []string{"--data-space", "256", "--payload", "12"}, "", "out of range"},
		{"data space with id", []string{"--data-space", "2", "--id", "4"}, "", "none of the others can be"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := executeCommand(t, context.Background(), "", append([]string{"encode"}, tt.args...)...)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			if tt.want != "" {
				assert.Equal(t, tt.want, out)
			} else {
				assert.True(t, strings.HasPrefix(out, "0x"), out)
			}
		})
	}
}

func TestEncodeCommand_List(t *testing.T) {
	out, err := executeCommand(t, context.Background(), "", "encode", "--id", "3", "--list")
	require.NoError(t, err)
	assert.Contains(t, out, "EXT/STAT4 (3):")
	assert.Contains(t, out, "Decoder Padding")
	assert.Contains(t, out, "fixed=0")
	assert.Contains(t, out, "(Source=1)")
	assert.Contains(t, out, "10 = Dieseltankstelle (10)")
}

func TestEncodeCommand_ListAll(t *testing.T) {
	out, err := executeCommand(t, context.Background(), "", "encode", "--list")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 16)
	assert.Equal(t, " 0  POM              4 chunks", lines[0])
	assert.Contains(t, lines[13], "DECODER_STATE")
}

func TestDCCCommand(t *testing.T) {
	t.Run("arguments", func(t *testing.T) {
		out, err := executeCommand(t, context.Background(), "", "dcc", "C4", "D2", "EC", "1C", "05", "E3")
		require.NoError(t, err)
		assert.Equal(t, "POM_WRITE addr=1234 cv=29 value=5 (long address)\n", out)
	})

	t.Run("one packet per stdin line", func(t *testing.T) {
		out, err := executeCommand(t, context.Background(), "FF 00 FF\n\nFE 00 FE\n", "dcc")
		require.NoError(t, err)
		assert.Equal(t, "IDLE\nGET_DATA_START\n", out)
	})

	t.Run("bad checksum", func(t *testing.T) {
		_, err := executeCommand(t, context.Background(), "", "dcc", "03", "66", "00")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "checksum mismatch")
	})

	t.Run("nothing to classify", func(t *testing.T) {
		_, err := executeCommand(t, context.Background(), "\n", "dcc")
		assert.EqualError(t, err, "no packet to classify")
	})
}

func TestServeCommand(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	t.Run("stops when the context is canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := executeCommand(t, ctx, "", "serve", "--addr", "127.0.0.1:0")
		assert.NoError(t, err)
	})

	t.Run("bad address", func(t *testing.T) {
		_, err := executeCommand(t, context.Background(), "", "serve", "--addr", "not-an-address")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to listen")
	})
}

func TestApplyVerifyFlags(t *testing.T) {
	c := newVerifyCmd()
	require.NoError(t, c.ParseFlags([]string{
		"--output", "out.png", "--suite", "s.yaml", "--serve", "--exec-path", "/opt/chrome", "--headful",
	}))

	var opts verifyOptions
	opts.output, _ = c.Flags().GetString("output")
	opts.suite, _ = c.Flags().GetString("suite")
	opts.serve, _ = c.Flags().GetBool("serve")
	opts.execPath, _ = c.Flags().GetString("exec-path")
	opts.headful, _ = c.Flags().GetBool("headful")

	cfg := config.NewDefaultConfig()
	applyVerifyFlags(c, cfg, opts)
	assert.Equal(t, "out.png", cfg.Verify().Output)
	assert.Equal(t, "s.yaml", cfg.Verify().Suite)
	assert.True(t, cfg.Verify().Serve)
	assert.Equal(t, "/opt/chrome", cfg.Browser().ExecPath)
	assert.False(t, cfg.Browser().Headless)

	untouched := config.NewDefaultConfig()
	applyVerifyFlags(newVerifyCmd(), untouched, verifyOptions{output: "ignored.png"})
	assert.Equal(t, "verification.png", untouched.Verify().Output)
	assert.True(t, untouched.Browser().Headless)
}

func TestBuildSuite(t *testing.T) {
	defaults := verifyOptions{inputLocator: "#input", actionLocator: "#decode"}

	t.Run("built-in scenarios without input", func(t *testing.T) {
		suite, err := buildSuite(config.NewDefaultConfig(), defaults)
		require.NoError(t, err)
		assert.Equal(t, verify.DefaultSuite(), suite)
	})

	t.Run("single scenario from flags", func(t *testing.T) {
		opts := defaults
		opts.input = "2E 93 93 78 E4 B4"
		opts.actionLocator = "role:button:Decode"
		opts.waitFor = "testid:output-payload"
		suite, err := buildSuite(config.NewDefaultConfig(), opts)
		require.NoError(t, err)
		require.Len(t, suite.Scenarios, 1)
		sc := suite.Scenarios[0]
		assert.Equal(t, "2E 93 93 78 E4 B4", sc.Input)
		assert.Equal(t, verify.ByElementID, sc.InputLocator.Kind)
		assert.Equal(t, verify.Locator{Kind: verify.ByRole, Value: "button", Name: "Decode"}, sc.ActionLocator)
		assert.Equal(t, verify.ByTestID, sc.WaitFor.Kind)
	})

	t.Run("bad locator", func(t *testing.T) {
		opts := defaults
		opts.input = "74"
		opts.actionLocator = "role:"
		_, err := buildSuite(config.NewDefaultConfig(), opts)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--action-locator")
	})

	t.Run("suite file wins", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "suite.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`scenarios:
  - name: one
    input: "74 72"
    input_locator: "#input"
    action_locator: "testid:decode"
`), 0o600))
		cfg := config.NewDefaultConfig()
		cfg.SetVerifySuite(path)
		opts := defaults
		opts.input = "ignored"
		suite, err := buildSuite(cfg, opts)
		require.NoError(t, err)
		require.Len(t, suite.Scenarios, 1)
		assert.Equal(t, "one", suite.Scenarios[0].Name)
	})
}

func TestVerifyCommand_RequiresDocument(t *testing.T) {
	_, err := executeCommand(t, context.Background(), "", "verify", "--input", "74")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pass --document or --serve")
}

func TestVerifyCommand_MissingDocumentFile(t *testing.T) {
	out, err := executeCommand(t, context.Background(), "", "verify",
		"--document", filepath.Join(t.TempDir(), "missing.html"), "--input", "74")
	require.Error(t, err)
	assert.ErrorIs(t, err, verify.ErrNavigation)
	assert.Contains(t, out, "FAIL  cli")
}
