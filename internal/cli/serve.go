package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jsexpertdev/ostad-ai-agent/pkg/server"
	"github.com/spf13/cobra"
)

// shutdownTimeout bounds the graceful stop
const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the travel planner HTTP service",
	Long: `Run the travel planner HTTP service.
POST /plan answers plan requests; GET /plan/stream streams run events over a
websocket; /health and /metrics serve operations. SIGINT or SIGTERM stops the
service gracefully.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(os.Stdout)
	if err != nil {
		return err
	}
	defer a.Close()

	srv, err := server.NewServer(server.OptionsFromConfig(a.cfg.Server), a.service.Planner, a.metrics, a.log.GetZerolog())
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		a.log.Info().Msg("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
