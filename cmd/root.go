// Package cmd wires the BioScout command line interface.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bioscout/bioscout/cmd/ask"
	"github.com/bioscout/bioscout/cmd/identify"
	"github.com/bioscout/bioscout/cmd/observe"
	"github.com/bioscout/bioscout/cmd/serve"
	"github.com/bioscout/bioscout/cmd/version"
	"github.com/bioscout/bioscout/internal/conf"
	"github.com/bioscout/bioscout/internal/logger"
)

// RootCommand creates and returns the root command. settings is filled in
// before any subcommand runs.
func RootCommand(settings *conf.Settings) *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "bioscout",
		Short:         "BioScout community biodiversity log",
		Long:          "Record biodiversity observations, identify species from photos and ask questions about wildlife in Pakistan.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config file (default: search ., ~/.config/bioscout, /etc/bioscout)")
	if err := setupFlags(rootCmd); err != nil {
		panic(err)
	}

	versionCmd := version.Command()
	rootCmd.AddCommand(
		serve.Command(settings),
		observe.Command(settings),
		identify.Command(settings),
		ask.Command(settings),
		versionCmd,
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// version needs no configuration
		if cmd.Name() == versionCmd.Name() {
			return nil
		}
		return initialize(configFile, settings)
	}

	return rootCmd
}

// initialize loads the configuration, with flags taking precedence, and
// installs the global logger.
func initialize(configFile string, settings *conf.Settings) error {
	loaded, err := conf.Load(configFile)
	if err != nil {
		return err
	}
	*settings = *loaded

	logCfg := settings.Logging
	if settings.Debug {
		logCfg.DefaultLevel = string(logger.LogLevelDebug)
		if logCfg.Console != nil {
			console := *logCfg.Console
			console.Level = string(logger.LogLevelDebug)
			logCfg.Console = &console
		}
	}
	central, err := logger.NewCentralLogger(&logCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.SetGlobal(central)
	return nil
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command) error {
	flags := rootCmd.PersistentFlags()
	flags.BoolP("debug", "d", false, "Enable debug output")
	flags.String("backend", "", "Observation log backend (csv, sqlite, mysql)")
	flags.String("csv", "", "Path of the observation CSV file")
	flags.String("images", "", "Directory uploaded images are stored in")

	bindings := map[string]string{
		"debug":                "debug",
		"observation.backend":  "backend",
		"observation.csvpath":  "csv",
		"observation.imagedir": "images",
	}
	for key, name := range bindings {
		if err := viper.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", name, err)
		}
	}
	return nil
}
