package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/mmcdole/crate/internal/fakeapi"
	"github.com/spf13/cobra"
)

var (
	devAddr   string
	devSecret string
	devSeed   bool
	devDelay  time.Duration
)

var devServerCmd = &cobra.Command{
	Use:   "dev-server",
	Short: "Run an in-memory catalog server for local development",
	Long: `Run an in-memory catalog server for local development.

It serves the same API crate talks to under /api, prints a signed token
and exits on Ctrl-C. Data is lost on exit.`,
	Args: cobra.NoArgs,
	RunE: runDevServer,
}

func init() {
	devServerCmd.Flags().StringVar(&devAddr, "addr", "localhost:8080", "listen address")
	devServerCmd.Flags().StringVar(&devSecret, "secret", "crate-dev-secret", "HS256 signing secret")
	devServerCmd.Flags().BoolVar(&devSeed, "seed", true, "start with demo artists and albums")
	devServerCmd.Flags().DurationVar(&devDelay, "delay", 0, "artificial latency added to every request")
	rootCmd.AddCommand(devServerCmd)
}

func runDevServer(cmd *cobra.Command, args []string) error {
	api := fakeapi.New(devSecret, app.logger)
	if devSeed {
		api.Seed()
	}
	api.SetDelay(devDelay)

	token, err := api.IssueToken("dev", 24*time.Hour)
	if err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}

	srv := &http.Server{
		Addr:              devAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Catalog API listening on http://%s/api\n\n", devAddr)
	fmt.Fprintf(out, "  export CRATE_SERVER_URL=http://%s/api\n", devAddr)
	fmt.Fprintf(out, "  export CRATE_SERVER_TOKEN=%s\n\n", token)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
