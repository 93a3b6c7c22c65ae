// File: cmd/root.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/railscope/internal/config"
	"github.com/xkilldash9x/railscope/internal/observability"
)

type contextKey string

const configKey contextKey = "config"

// dotenvFile is loaded before configuration, if present.
var dotenvFile = ".env"

// NewRootCommand builds a fresh command tree. Every execution gets its own
// instance so flags never leak between runs.
func NewRootCommand() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "railscope",
		Short: "railscope decodes RailCom 4-of-8 data and verifies the decoder page in a headless browser.",
		Long: `railscope decodes and encodes RailCom (RCN-217) 4-of-8 bytes, serves an
interactive decoder page, and runs scripted browser checks against it that
end in a full-page screenshot.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			config.SetDefaults(v)

			if err := initializeConfig(cmd, v, cfgFile); err != nil {
				observability.InitializeLogger(config.NewDefaultConfig().Logger())
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}

			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				observability.InitializeLogger(config.NewDefaultConfig().Logger())
				return fmt.Errorf("failed to load or validate config: %w", err)
			}

			observability.InitializeLogger(cfg.Logger())
			observability.GetLogger().Debug("Starting railscope", zap.String("version", Version))

			cmd.SetContext(context.WithValue(cmd.Context(), configKey, cfg))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./railscope.yaml)")
	rootCmd.SetVersionTemplate(`{{printf "%s version %s\n" .Name .Version}}`)

	rootCmd.AddCommand(
		newVerifyCmd(),
		newDecodeCmd(),
		newEncodeCmd(),
		newDCCCmd(),
		newServeCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the command line under ctx. context.Canceled is returned as is
// so the caller can treat an interrupt as a clean exit.
func Execute(ctx context.Context) error {
	err := NewRootCommand().ExecuteContext(ctx)
	if err == nil {
		return nil
	}
	logger := observability.GetLogger()
	if errors.Is(err, context.Canceled) {
		logger.Info("Operation canceled.")
		return err
	}
	logger.Error("Command failed.", zap.Error(err))
	fmt.Fprintln(os.Stderr, "Error:", err)
	return err
}

// initializeConfig wires the config file, .env and RAILSCOPE_* environment into v.
func initializeConfig(cmd *cobra.Command, v *viper.Viper, cfgFile string) error {
	if err := godotenv.Load(dotenvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("error loading %s: %w", dotenvFile, err)
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("railscope")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(config.EnvPrefix)
	v.SetEnvKeyReplacer(config.EnvKeyReplacer())
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

// getConfigFromContext returns the configuration stored by the root command.
func getConfigFromContext(ctx context.Context) (*config.Config, error) {
	cfg, ok := ctx.Value(configKey).(*config.Config)
	if !ok || cfg == nil {
		return nil, errors.New("configuration not found in context")
	}
	return cfg, nil
}
