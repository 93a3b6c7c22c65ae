// File: cmd/serve.go
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/xkilldash9x/railscope/internal/decoderui"
	"github.com/xkilldash9x/railscope/internal/observability"
)

func newServeCmd() *cobra.Command {
	var addr string

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the interactive decoder page and JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.SetServerAddr(addr)
			}
			srv := decoderui.NewServer(cfg.Server(), observability.GetLogger())
			return srv.Run(cmd.Context())
		},
	}

	serveCmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (overrides server.addr)")
	return serveCmd
}
