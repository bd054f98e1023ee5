package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/coldreach/leadctl/internal/devserver"
)

var devserverCmd = &cobra.Command{
	Use:   "devserver",
	Short: "Run a local fake backend for development",
	Long: `Run a local fake backend for development.

The server speaks the same routes and error shapes as the hosted API and
comes pre-seeded with an account (dev@example.com / devpass) and a few
leads. Point the CLI at it with:

  leadctl config set api.base_url http://127.0.0.1:8000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetInt("port")

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		addr := fmt.Sprintf("127.0.0.1:%d", port)
		srv := &http.Server{
			Addr:    addr,
			Handler: devserver.New().Handler(),
		}

		errCh := make(chan error, 1)
		go func() {
			fmt.Fprintf(os.Stderr, "devserver listening on %s\n", addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case <-ctx.Done():
			fmt.Fprintln(os.Stderr, "shutting down...")
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	devserverCmd.Flags().Int("port", 8000, "port to listen on")
}
