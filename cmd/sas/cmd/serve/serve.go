package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"smart-audio/internal/api/server"
	"smart-audio/internal/app"
	"smart-audio/internal/config"
)

var port string

func init() {
	Cmd.Flags().StringVarP(&port, "port", "p", "", "port to listen on (overrides PORT)")
}

// Cmd represents the serve command
var Cmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API

- Accepts uploads under /files/upload-file
- Runs pipeline stages in the background on PUT /files/<stage>/<id>
- Stops accepting work on SIGINT/SIGTERM and waits for running stages`,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := config.InitializeConfig()
		if err != nil {
			return err
		}
		if port != "" {
			settings.Server.Port = port
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sc, cleanup, err := app.InitializeServiceContext(ctx, settings)
		if err != nil {
			return fmt.Errorf("failed to initialize backend: %w", err)
		}
		defer cleanup()

		go drainResults(ctx, sc)

		srv := server.NewServer(server.Config{
			Host:         settings.Server.Host,
			Port:         settings.Server.Port,
			ReadTimeout:  settings.Server.ReadTimeout,
			WriteTimeout: settings.Server.WriteTimeout,
			IdleTimeout:  settings.Server.IdleTimeout,
			Environment:  settings.Server.Environment,
			RecordStore:  settings.RecordStore.Driver,
		}, sc.Container, sc.HealthCheck, sc.Loggers.Slog)

		errCh := srv.Start()
		select {
		case err := <-errCh:
			if err != nil {
				return err
			}
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

// drainResults logs stage outcomes; the HTTP API reads state from the store
func drainResults(ctx context.Context, sc *app.ServiceContext) {
	logger := sc.Loggers.Zap
	for {
		select {
		case <-ctx.Done():
			return
		case res := <-sc.Dispatcher.Results():
			if res.Err != nil {
				logger.Warn("stage failed", zap.String("job", res.JobID), zap.String("stage", string(res.Stage)),
					zap.Duration("duration", res.Duration), zap.Error(res.Err))
				continue
			}
			logger.Info("stage finished", zap.String("job", res.JobID), zap.String("stage", string(res.Stage)),
				zap.String("status", string(res.Status)), zap.Duration("duration", res.Duration))
		}
	}
}
