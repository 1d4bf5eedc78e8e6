package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Lcking/throttle/internal/locale"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Manage the hit log file",
}

var logPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the hit log file path",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, span := tracer.Start(cmd.Context(), "log.path")
		defer span.End()

		return withApp(ctx, func(ctx context.Context, a *app) error {
			fmt.Println(a.cfg.HitLogPath())
			return nil
		})
	},
}

var logClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Truncate the hit log file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, span := tracer.Start(cmd.Context(), "log.clear")
		defer span.End()

		return withApp(ctx, func(ctx context.Context, a *app) error {
			if err := os.Truncate(a.cfg.HitLogPath(), 0); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("truncating hit log: %w", err)
			}
			fmt.Println(a.strings.Get(locale.KeyLogCleared))
			return nil
		})
	},
}

var lasthitCmd = &cobra.Command{
	Use:   "lasthit",
	Short: "Manage the last-hit marker",
}

var lasthitClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the last-hit rule marker",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, span := tracer.Start(cmd.Context(), "lasthit.clear")
		defer span.End()

		return withApp(ctx, func(ctx context.Context, a *app) error {
			if err := a.settings.ClearLastHit(ctx); err != nil {
				return err
			}
			fmt.Println(a.strings.Get(locale.KeyLastHitCleared))
			return nil
		})
	},
}

func init() {
	logCmd.AddCommand(logPathCmd)
	logCmd.AddCommand(logClearCmd)
	rootCmd.AddCommand(logCmd)

	lasthitCmd.AddCommand(lasthitClearCmd)
	rootCmd.AddCommand(lasthitCmd)
}
