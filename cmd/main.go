package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/UnknownOlympus/tract/internal/census"
	"github.com/UnknownOlympus/tract/internal/config"
	"github.com/UnknownOlympus/tract/internal/geocoding"
	"github.com/UnknownOlympus/tract/internal/metrics"
	"github.com/UnknownOlympus/tract/internal/models"
	"github.com/UnknownOlympus/tract/internal/repository"
	"github.com/UnknownOlympus/tract/internal/service"
	"github.com/UnknownOlympus/tract/internal/xmlapi"
	"github.com/spf13/cobra"
)

// Exit statuses of the tract command.
const (
	exitError    = 1
	exitNotFound = 2
)

// app carries what every subcommand needs once the root command has loaded the configuration.
type app struct {
	cfgPath string
	cfg     *config.Config
	log     *slog.Logger
}

// main is the entry point of the application.
func main() {
	// Create a context that will be canceled when an interrupt signal is received.
	// This allows for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	if errors.Is(err, models.ErrNotFound) {
		return exitNotFound
	}

	return exitError
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "tract",
		Short:         "Resolve US street addresses to census tracts",
		Long:          `tract geocodes a street address and looks up the census block that contains it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&a.cfgPath, "config", "c", "",
		"path to a YAML config file (default ./config.yaml when present)")
	root.AddCommand(newResolveCmd(a), newServeCmd(a))

	return root
}

// loadConfig loads the configuration and sets up the logger. Only commands that
// talk to the upstream APIs run it, so help and completion work without credentials.
func (a *app) loadConfig(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.log = setupLogger(cfg.Env, cmd.ErrOrStderr())

	return nil
}

// newService wires the geocoding provider and the census block resolver into a tract service.
// The journal may be nil.
func (a *app) newService(m *metrics.Metrics, journal repository.Interface) (*service.TractService, error) {
	provider, err := geocoding.NewProvider(geocoding.ProviderConfig{
		Type:    geocoding.ProviderType(a.cfg.Provider.Type),
		APIKey:  a.cfg.Geocoder.APIKey,
		BaseURL: a.cfg.Geocoder.URL,
		Timeout: a.cfg.RequestTimeout,
		Logger:  a.log,
		Metrics: m,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create geocoding provider: %w", err)
	}

	fetcher := xmlapi.New("census", a.cfg.RequestTimeout, a.log, xmlapi.WithMetrics(m))
	resolver := census.NewBlockResolver(fetcher, a.cfg.Census.URL, a.cfg.Census.APIKey, a.log)

	a.log.Debug("Geocoding provider initialized", "type", a.cfg.Provider.Type)

	return service.NewTractService(a.log, provider, resolver, journal, m), nil
}

// setupLogger initializes and returns a logger based on the environment provided.
func setupLogger(env string, out io.Writer) *slog.Logger {
	var log *slog.Logger

	switch env {
	case config.EnvLocal:
		log = slog.New(
			slog.NewTextHandler(out, &slog.HandlerOptions{
				Level:     slog.LevelDebug,
				AddSource: true,
			}),
		)
	case config.EnvDev:
		log = slog.New(
			slog.NewJSONHandler(out, &slog.HandlerOptions{
				Level: slog.LevelInfo,
			}),
		)
	case config.EnvProd:
		log = slog.New(
			slog.NewJSONHandler(out, &slog.HandlerOptions{
				Level: slog.LevelWarn,
				ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
					if a.Key == slog.TimeKey {
						return slog.Attr{}
					}
					return a
				},
			}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(out, &slog.HandlerOptions{
				Level: slog.LevelError,
				ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
					if a.Key == slog.TimeKey {
						return slog.Attr{}
					}
					return a
				},
			}),
		)

		log.Error(
			"The env parameter was not specified or was invalid. Logging will be minimal, by default.",
			slog.String("available_envs", "local, development, production"))
	}

	return log
}
