// Package serve implements the serve command, which runs the HTTP API.
package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bioscout/bioscout/internal/api"
	"github.com/bioscout/bioscout/internal/app"
	"github.com/bioscout/bioscout/internal/conf"
	"github.com/bioscout/bioscout/internal/logger"
)

// Command creates the serve command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the BioScout HTTP API",
		Long:  "Serve the observation log, species identification and Q&A over a JSON HTTP API until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), settings)
		},
	}

	if err := setupFlags(cmd); err != nil {
		panic(err)
	}
	return cmd
}

func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().String("listen", "", "Listen address and port of the HTTP API")
	cmd.Flags().Bool("ratelimit", false, "Rate limit the identify and ask endpoints per client")
	cmd.Flags().Bool("metrics", true, "Expose Prometheus metrics on /metrics")

	if err := viper.BindPFlag("webserver.listen", cmd.Flags().Lookup("listen")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	if err := viper.BindPFlag("webserver.ratelimit.enabled", cmd.Flags().Lookup("ratelimit")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	if err := viper.BindPFlag("metrics.enabled", cmd.Flags().Lookup("metrics")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}

func run(ctx context.Context, settings *conf.Settings) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.Global().Module("serve")

	a, err := app.New(ctx, settings, app.Options{})
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("error releasing resources", logger.Error(err))
		}
	}()

	srv, err := api.New(a)
	if err != nil {
		return err
	}

	log.Info("starting BioScout", logger.String("version", a.Build.String()))
	srv.Start()

	served := make(chan error, 1)
	go func() { served <- srv.Wait() }()

	select {
	case err := <-served:
		return err
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	if err := srv.Shutdown(context.Background()); err != nil {
		return err
	}
	return <-served
}
