package migrate

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"smart-audio/internal/app"
	"smart-audio/internal/app/repository/migrate"
	"smart-audio/internal/config"
)

var (
	toDriver string
	toURL    string
)

func init() {
	Cmd.Flags().StringVar(&toDriver, "to", "", "destination record store driver: json, sqlite or postgres")
	Cmd.Flags().StringVar(&toURL, "to-url", "", "destination path (json, sqlite) or connection string (postgres)")

	Cmd.MarkFlagRequired("to")
	Cmd.MarkFlagRequired("to-url")
}

// Cmd represents the migrate command
var Cmd = &cobra.Command{
	Use:   "migrate",
	Short: "Copy job records from the configured record store into another one",
	Long: `Copy job records from the configured record store into another one

- The source is the store selected by RECORD_STORE
- Records already present in the destination are skipped, so the copy can be re-run`,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := config.InitializeConfig()
		if err != nil {
			return err
		}
		ctx := context.Background()

		src, closeSrc, err := app.OpenRecordStore(ctx, settings)
		if err != nil {
			return err
		}
		defer closeSrc()

		dstSettings := *settings
		dstSettings.RecordStore = config.RecordStoreSettings{Driver: toDriver, JSONPath: toURL, DatabaseURL: toURL, Bootstrap: true}
		dst, closeDst, err := app.OpenRecordStore(ctx, &dstSettings)
		if err != nil {
			return err
		}
		defer closeDst()

		res, err := migrate.CopyRecords(ctx, src, dst)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "migration finished: %d copied, %d skipped\n", res.Copied, res.Skipped)
		return nil
	},
}
