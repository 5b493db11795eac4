package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

func newServeCmd(envFiles *[]string) *cobra.Command {
	var withWorkers bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, and the import workers unless --workers=false",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop, a, log, err := setup(cmd.Context(), *envFiles, "serve")
			if err != nil {
				return err
			}
			defer stop()
			defer a.Close()

			server := a.NewHTTPServer()

			workerCtx, stopWorkers := context.WithCancel(ctx)
			defer stopWorkers()

			worker := a.NewImportWorker()
			if withWorkers {
				worker.Start(workerCtx)
			}

			serverErr := make(chan error, 1)
			go func() {
				addr := fmt.Sprintf(":%d", a.Config.HTTP.Port)
				log.Info().Str("addr", addr).Msg("http server listening")
				if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
				close(serverErr)
			}()

			select {
			case <-ctx.Done():
				log.Info().Msg("shutdown signal received")
			case err := <-serverErr:
				if err != nil {
					return fmt.Errorf("server failed: %w", err)
				}
			}

			stopWorkers()
			if withWorkers {
				worker.Wait()
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.HTTP.ShutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("graceful shutdown failed: %w", err)
			}
			log.Info().Msg("server stopped")
			return nil
		},
	}
	cmd.Flags().BoolVar(&withWorkers, "workers", true, "run import workers in this process")
	return cmd
}
