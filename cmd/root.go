// File: cmd/root.go
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/multisteam/internal/config"
	"github.com/xkilldash9x/multisteam/internal/observability"
)

var (
	cfgFile string
	// appConfig is populated in PersistentPreRunE and consumed by run.go.
	appConfig *config.Config
)

// rootCmd runs the shell directly; there are no subcommands beyond version.
var rootCmd = &cobra.Command{
	Use:   "multisteam",
	Short: "Run multiple isolated, logged-in Steam browser sessions side by side.",
	// Version is set at build time. See cmd/version.go.
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initializeConfig(); err != nil {
			return err
		}

		cfg, err := config.NewConfigFromViper(viper.GetViper())
		if err != nil {
			// Fall back to a console logger so the error is visible.
			observability.InitializeLogger(config.LoggerConfig{
				Level: "info", Format: "console", ServiceName: "multisteam",
			})
			return fmt.Errorf("loading configuration: %w", err)
		}

		if cfg.Logger.LogFile == "" {
			cfg.Logger.LogFile = filepath.Join(cfg.LogsDir(), "multisteam.log")
		}

		observability.InitializeLogger(cfg.Logger)
		observability.GetLogger().Info("Starting multisteam.",
			zap.String("version", Version),
			zap.String("data_dir", cfg.Shell.DataDir))
		appConfig = cfg
		return nil
	},
	RunE: runShell,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if logger := observability.GetLogger(); logger != nil {
			logger.Error("Command execution failed.", zap.Error(err))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default is ./config.yaml)")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

// initializeConfig reads the config file and environment variables.
func initializeConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("MULTISTEAM")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	config.SetDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("reading config file: %w", err)
		}
		// No config file; defaults and env vars apply.
	}
	return nil
}
