package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Lcking/throttle/internal/locale"
	"github.com/Lcking/throttle/internal/rules"
)

var modeCmd = &cobra.Command{
	Use:   "mode [plan|ask|exec]",
	Short: "Show or set the working mode",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, span := tracer.Start(cmd.Context(), "mode")
		defer span.End()

		return withApp(ctx, func(ctx context.Context, a *app) error {
			if len(args) == 0 {
				mode, tier := currentModeTier(ctx, a)
				fmt.Printf("mode=%s tier=%s\n", mode, tier)
				return nil
			}
			mode, ok := rules.ParseMode(args[0])
			if !ok {
				return fmt.Errorf("unknown mode %q (plan, ask, exec)", args[0])
			}
			if err := a.settings.SetMode(ctx, mode); err != nil {
				return err
			}
			fmt.Println(a.strings.Get(locale.KeyModeSaved))
			return nil
		})
	},
}

// switchCmd resolves its argument the way slash overrides do: mode names
// first, tier names second.
var switchCmd = &cobra.Command{
	Use:   "switch <mode-or-tier>",
	Short: "Quick-switch the working mode or model tier",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, span := tracer.Start(cmd.Context(), "switch")
		defer span.End()

		return withApp(ctx, func(ctx context.Context, a *app) error {
			if mode, ok := rules.ParseMode(args[0]); ok {
				if err := a.settings.SetMode(ctx, mode); err != nil {
					return err
				}
				fmt.Println(a.strings.Get(locale.KeyModeSaved))
				return nil
			}
			if tier, ok := rules.ParseTier(args[0]); ok {
				if err := a.settings.SetModelTier(ctx, tier); err != nil {
					return err
				}
				fmt.Println(a.strings.Get(locale.KeyTierSaved))
				return nil
			}
			return fmt.Errorf("%q is neither a mode nor a tier", args[0])
		})
	},
}

func currentModeTier(ctx context.Context, a *app) (string, string) {
	mode := "(unset)"
	if m, ok, err := a.settings.Mode(ctx); err == nil && ok {
		mode = string(m)
	}
	tier := "(unset)"
	if t, ok, err := a.settings.ModelTier(ctx); err == nil && ok {
		tier = string(t)
	}
	return mode, tier
}

func init() {
	rootCmd.AddCommand(modeCmd)
	rootCmd.AddCommand(switchCmd)
}
