package main

import (
	"github.com/spf13/cobra"
)

func newWorkerCmd(envFiles *[]string) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run only the import workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop, a, log, err := setup(cmd.Context(), *envFiles, "worker")
			if err != nil {
				return err
			}
			defer stop()
			defer a.Close()

			worker := a.NewImportWorker()
			worker.Start(ctx)
			log.Info().Msg("import workers running")

			<-ctx.Done()
			log.Info().Msg("shutdown signal received, waiting for workers")
			worker.Wait()
			return nil
		},
	}
}
