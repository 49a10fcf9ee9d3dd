package process

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"smart-audio/internal/app"
	"smart-audio/internal/app/converter"
	"smart-audio/internal/config"
)

var (
	inputDir   string
	extensions []string
	limit      int
	progress   bool
)

func init() {
	Cmd.Flags().StringVarP(&inputDir, "dir", "d", "", "folder with the recordings to process")
	Cmd.Flags().StringSliceVarP(&extensions, "ext", "e", nil, "file extensions to pick up (default: ALLOWED_EXTENSIONS)")
	Cmd.Flags().IntVarP(&limit, "limit", "n", 0, "process at most this many files, oldest first (0 = all)")
	Cmd.Flags().BoolVar(&progress, "progress", false, "show progress bars even when not attached to a terminal")

	Cmd.MarkFlagRequired("dir")
}

// Cmd represents the process command
var Cmd = &cobra.Command{
	Use:   "process",
	Short: "Run every pipeline stage over a folder of recordings",
	Long: `Run every pipeline stage over a folder of recordings

- Each file is stored as a new job, exactly like an HTTP upload
- Jobs run diarization, identification, recognition, translation and conversion
- Exports land in <UPLOAD_FOLDER>/<id>/<CONVERTED_FOLDER>`,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := config.InitializeConfig()
		if err != nil {
			return err
		}
		if len(extensions) == 0 {
			extensions = settings.Storage.AllowedExtensions
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sc, cleanup, err := app.InitializeServiceContext(ctx, settings)
		if err != nil {
			return fmt.Errorf("failed to initialize backend: %w", err)
		}
		defer cleanup()

		var bars *converter.Progress
		if converter.Interactive(progress) {
			bars = converter.NewProgress(cmd.ErrOrStderr())
		}

		processor := converter.NewBatchProcessor(sc.Container.FileService, sc.Dispatcher, sc.Store, bars, sc.Loggers.Zap)
		outcomes, err := processor.Run(ctx, inputDir, extensions, limit)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		failed := 0
		for _, o := range outcomes {
			if o.Failed() {
				failed++
				fmt.Fprintf(out, "FAILED  %s (%s): %s\n", o.File, o.JobID, o.Cause)
				continue
			}
			fmt.Fprintf(out, "OK      %s (%s)\n", o.File, o.JobID)
		}
		fmt.Fprintf(out, "processed %d files, %d failed\n", len(outcomes), failed)
		if failed > 0 {
			return fmt.Errorf("%d of %d files failed", failed, len(outcomes))
		}
		return nil
	},
}
