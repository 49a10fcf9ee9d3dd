package export

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"smart-audio/internal/app"
	"smart-audio/internal/app/converter/export"
	"smart-audio/internal/app/model"
	"smart-audio/internal/app/stages"
	"smart-audio/internal/app/util/files"
	"smart-audio/internal/config"
)

var (
	jobID          string
	outputFilePath string
	outputDir      string
)

func init() {
	Cmd.Flags().StringVarP(&jobID, "id", "i", "", "job id")
	Cmd.Flags().StringVarP(&outputFilePath, "outputFilePath", "o", "", "write the segment table as an xlsx workbook to this path")
	Cmd.Flags().StringVar(&outputDir, "bundle", "", "write every export (csv, trn, txt, xlsx) into this folder")

	Cmd.MarkFlagRequired("id")
}

// Cmd represents the export command
var Cmd = &cobra.Command{
	Use:   "export",
	Short: "Export the result of a job to excel or to the full export bundle",
	Long: `Export the result of a job to excel or to the full export bundle

- Uses the translation when present, otherwise the transcription
- Identification scores are included when the job has an identification report`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if outputFilePath == "" && outputDir == "" {
			return fmt.Errorf("one of --outputFilePath or --bundle is required")
		}

		settings, err := config.InitializeConfig()
		if err != nil {
			return err
		}
		ctx := context.Background()

		rc, cleanup, err := app.InitializeResultContext(ctx, settings)
		if err != nil {
			return err
		}
		defer cleanup()

		in, err := loadInput(ctx, rc)
		if err != nil {
			return err
		}

		if outputFilePath != "" {
			data, err := export.ToExcel(in.Translation, in.Report)
			if err != nil {
				return err
			}
			if err := files.WriteFileAtomic(outputFilePath, data); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "export finished, exported file path: %v\n", outputFilePath)
		}
		if outputDir != "" {
			paths, err := export.WriteBundle(outputDir, in)
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
		}
		return nil
	},
}

// loadInput reads the documents of the job. The assembled result stands in
// for a missing translation.
func loadInput(ctx context.Context, rc *app.ResultContext) (export.Input, error) {
	doc, err := rc.Assembler.Assemble(ctx, jobID)
	if err != nil {
		return export.Input{}, err
	}
	in := export.Input{FileLabel: rc.Layout.AudioFile}

	transcription, err := stages.ReadSegmentDocument(rc.Layout.Transcription(jobID))
	if err != nil {
		return export.Input{}, err
	}
	in.Transcription = transcription
	in.Translation = &model.SegmentDocument{
		SchemaVersion: model.SegmentSchemaVersion,
		ID:            doc.ID,
		TotalSpeakers: doc.TotalSpeakers,
		Segments:      doc.Segments,
	}

	if report, err := stages.ReadIdentificationReport(rc.Layout.IdentificationReport(jobID)); err == nil {
		in.Report = report
	}
	return in, nil
}
