// File: cmd/decode.go
package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/railscope/internal/railcom"
)

// maxStdinInput bounds how much piped text decode reads.
const maxStdinInput = 1 << 20

func newDecodeCmd() *cobra.Command {
	var dataSpace int

	decodeCmd := &cobra.Command{
		Use:   "decode [hex...]",
		Short: "Decode RailCom 4-of-8 bytes",
		Long: `Decodes hex bytes through the RCN-217 4-of-8 table, frames the 6-bit chunks
into messages and prints the byte listing, the raw IDs and the interpreted
payloads. Bytes are read from the arguments or, without arguments, from stdin.`,
		Example: `  railscope decode 0x74 0x72 0x6C
  echo "2E 93 93 78 E4 B4" | railscope decode
  railscope decode --data-space 2 AC 4E 99 1B E2 56`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if len(args) == 0 {
				data, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), maxStdinInput))
				if err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
				text = string(data)
			}
			if strings.TrimSpace(text) == "" {
				return fmt.Errorf("no input to decode")
			}
			report := railcom.Decode(text)
			if len(report.Bytes) == 0 {
				return fmt.Errorf("no valid bytes in input %q", strings.TrimSpace(text))
			}
			if err := printReport(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if cmd.Flags().Changed("data-space") {
				return printDataSpace(cmd.OutOrStdout(), dataSpace, report)
			}
			return nil
		},
	}

	decodeCmd.Flags().IntVar(&dataSpace, "data-space", 0, "Also reassemble the chunks as RCN-218 data space N and check its CRC")
	return decodeCmd
}

func printDataSpace(w io.Writer, num int, r railcom.Report) error {
	if num < 0 || num > 255 {
		return fmt.Errorf("--data-space %d out of range 0-255", num)
	}
	body := ""
	data, err := railcom.DecodeDataSpace(uint8(num), r.Chunks())
	switch {
	case err != nil:
		body = "Error: " + err.Error()
	case len(data) == 0:
		body = "(empty, CRC ok)"
	default:
		body = fmt.Sprintf("%s (%d bytes, CRC ok)", railcom.FormatBytes(data), len(data))
	}
	_, err = fmt.Fprintf(w, "\n== Data space %d ==\n%s\n", num, body)
	return err
}

func printReport(w io.Writer, r railcom.Report) error {
	sections := []struct{ title, body string }{
		{"6-bit values", r.ByteListing()},
		{"Raw IDs", r.RawIDs()},
		{"Payloads", r.Payloads()},
	}
	for i, s := range sections {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		body := strings.TrimRight(s.body, "\n")
		if body == "" {
			body = "(none)"
		}
		if _, err := fmt.Fprintf(w, "== %s ==\n%s\n", s.title, body); err != nil {
			return err
		}
	}
	return nil
}
