package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"smart-audio/cmd/sas/cmd/export"
	"smart-audio/cmd/sas/cmd/migrate"
	"smart-audio/cmd/sas/cmd/process"
	"smart-audio/cmd/sas/cmd/serve"
	"smart-audio/cmd/sas/cmd/version"
)

var Verbose bool

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sas",
	Short: "Smart audio backend: speaker diarization, identification, recognition and translation",
	Long: `Smart audio backend: speaker diarization, identification, recognition and translation.
- Run "sas serve" to accept uploads over HTTP and run pipeline stages on request
- Run "sas process" to push a local folder of recordings through the whole pipeline
- Settings are read from the environment and an optional .env file`,
	TraverseChildren: true,
	SilenceUsage:     true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serve.Cmd)
	rootCmd.AddCommand(process.Cmd)
	rootCmd.AddCommand(export.Cmd)
	rootCmd.AddCommand(migrate.Cmd)
	rootCmd.AddCommand(version.Cmd)

	rootCmd.PersistentFlags().BoolVarP(&Verbose, "verbose", "V", false, "verbose output")
}
