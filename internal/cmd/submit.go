package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/atotto/clipboard"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Lcking/throttle/internal/arbiter"
	"github.com/Lcking/throttle/internal/locale"
)

// samplePrompt reliably trips the plan/exec rule, for the guided first run.
const samplePrompt = "Write code to implement a retry queue for failed jobs."

var (
	submitFromClipboard bool
	submitSample        bool
)

var submitCmd = &cobra.Command{
	Use:   "submit [prompt]",
	Short: "Run a prompt through the pre-flight check",
	Long: `Runs a prompt through the governance pipeline. The prompt comes from the
argument, --clipboard, --sample, or stdin, in that order of precedence.
Inline overrides at the start of the prompt ([mode:exec], mode: exec,
/exec and their tier equivalents) are honored and persisted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, span := tracer.Start(cmd.Context(), "submit")
		defer span.End()

		prompt, err := resolvePrompt(args)
		if err != nil {
			return err
		}

		return withApp(ctx, func(ctx context.Context, a *app) error {
			maybeShowOnboarding(ctx, a)

			outcome := a.arbiter().Submit(ctx, prompt)
			if outcome.Presented() && a.cfg.LogEnabled {
				appendHitLog(a, outcome)
			}
			reportOutcome(a, outcome)
			return nil
		})
	},
}

func resolvePrompt(args []string) (string, error) {
	switch {
	case len(args) == 1:
		return args[0], nil
	case submitSample:
		return samplePrompt, nil
	case submitFromClipboard:
		text, err := clipboard.ReadAll()
		if err != nil {
			return "", fmt.Errorf("reading clipboard: %w", err)
		}
		return text, nil
	default:
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading prompt from stdin: %w", err)
		}
		return string(data), nil
	}
}

// maybeShowOnboarding prints the first-run hint exactly once.
func maybeShowOnboarding(ctx context.Context, a *app) {
	seen, err := a.settings.OnboardingSeen(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("reading onboarding flag")
		return
	}
	if seen {
		return
	}
	fmt.Println(a.strings.Get(locale.KeyOnboarding))
	if err := a.settings.MarkOnboardingSeen(ctx); err != nil {
		log.Warn().Err(err).Msg("marking onboarding seen")
	}
}

// appendHitLog writes one line per displayed nudge to the hit log. Open
// failures are warnings; a broken log file never blocks a submission.
func appendHitLog(a *app, outcome arbiter.Outcome) {
	f, err := os.OpenFile(a.cfg.HitLogPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		log.Warn().Err(err).Str("path", a.cfg.HitLogPath()).Msg("opening hit log")
		return
	}
	defer f.Close()

	line := fmt.Sprintf("%s\t%s\t%.2f\t%s\n",
		time.Now().Format(time.RFC3339),
		outcome.Result.RuleID,
		outcome.Result.Confidence,
		outcome.Action,
	)
	if _, err := f.WriteString(line); err != nil {
		log.Warn().Err(err).Msg("writing hit log")
	}
}

func reportOutcome(a *app, outcome arbiter.Outcome) {
	if outcome.Presented() {
		fmt.Printf("%s -> %s\n", outcome.Result.RuleID, outcome.Action)
		return
	}
	if outcome.Mode != "" {
		fmt.Printf("ok (mode=%s tier=%s)\n", outcome.Mode, outcome.Tier)
	}
}

func init() {
	submitCmd.Flags().BoolVar(&submitFromClipboard, "clipboard", false, "read the prompt from the clipboard")
	submitCmd.Flags().BoolVar(&submitSample, "sample", false, "run the built-in sample prompt")
	rootCmd.AddCommand(submitCmd)
}
