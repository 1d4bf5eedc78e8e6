package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Lcking/throttle/internal/samples"
)

var samplesCmd = &cobra.Command{
	Use:   "samples",
	Short: "Work with labelled sample corpora",
}

// defaultSamplesPath is the conventional corpus location inside a workspace.
const defaultSamplesPath = "samples/prompts.jsonl"

var samplesCheckCmd = &cobra.Command{
	Use:   "check [file]",
	Short: "Run a JSONL sample corpus through the evaluator",
	Long: `Each line is {"prompt", "mode", "modelTier", "expected": "HIT"|"NO_HIT"|"LOW",
"note"?}. Malformed lines are skipped. The run bypasses mute, cooldown, and
dedupe so the report reflects rule quality alone. Without an argument the
corpus is read from ` + defaultSamplesPath + `. Exits non-zero when the
corpus has misclassifications.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, span := tracer.Start(cmd.Context(), "samples.check")
		defer span.End()

		path := defaultSamplesPath
		if len(args) > 0 {
			path = args[0]
		}
		return withApp(ctx, func(ctx context.Context, a *app) error {
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("opening samples file: %w", err)
			}
			defer f.Close()

			report, err := samples.Run(f, a.cfg.Eval)
			if err != nil {
				return err
			}
			fmt.Print(report.Format())
			if !report.Clean() {
				return fmt.Errorf("%d false positives, %d false negatives",
					len(report.FalsePositives), len(report.FalseNegatives))
			}
			return nil
		})
	},
}

func init() {
	samplesCmd.AddCommand(samplesCheckCmd)
	rootCmd.AddCommand(samplesCmd)
}
