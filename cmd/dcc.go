// File: cmd/dcc.go
package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/railscope/internal/dcc"
	"github.com/xkilldash9x/railscope/internal/railcom"
)

func newDCCCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dcc [hex...]",
		Short: "Classify DCC packets that trigger RailCom answers",
		Long: `Checks the XOR error byte of a DCC packet and names the instruction it
carries: speed, functions, POM CV access, accessory commands or the DCC-A
logon commands of RCN-218. Arguments form one packet; on stdin every
non-blank line is one packet.`,
		Example: `  railscope dcc C4 D2 EC 1C 05 E3
  printf 'FF 00 FF\nFE 00 FE\n' | railscope dcc`,
		RunE: func(cmd *cobra.Command, args []string) error {
			lines := []string{strings.Join(args, " ")}
			if len(args) == 0 {
				data, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), maxStdinInput))
				if err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
				lines = strings.Split(string(data), "\n")
			}

			w := cmd.OutOrStdout()
			n := 0
			for _, line := range lines {
				toks := railcom.ParseHex(line)
				if len(toks) == 0 {
					continue
				}
				raw := make([]byte, len(toks))
				for i, t := range toks {
					raw[i] = t.Value
				}
				p, err := dcc.Parse(raw)
				if err != nil {
					return fmt.Errorf("packet %s: %w", railcom.FormatBytes(raw), err)
				}
				if _, err := fmt.Fprintln(w, p); err != nil {
					return err
				}
				n++
			}
			if n == 0 {
				return errors.New("no packet to classify")
			}
			return nil
		},
	}
}
