package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Lcking/throttle/internal/locale"
	"github.com/Lcking/throttle/internal/state"
)

var mutesCmd = &cobra.Command{
	Use:   "mutes",
	Short: "Manage muted rules",
}

var mutesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List muted rules by scope",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, span := tracer.Start(cmd.Context(), "mutes.list")
		defer span.End()

		return withApp(ctx, func(ctx context.Context, a *app) error {
			found := false
			for _, scope := range []state.Scope{state.ScopeGlobal, state.ScopeWorkspace} {
				muted, err := a.settings.MutedRules(ctx, scope)
				if err != nil {
					return err
				}
				for _, id := range muted {
					fmt.Printf("%s\t%s\n", scope, id)
					found = true
				}
			}
			if !found {
				fmt.Println(a.strings.Get(locale.KeyNoMutes))
			}
			return nil
		})
	},
}

var mutesResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear all muted rules in every scope",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, span := tracer.Start(cmd.Context(), "mutes.reset")
		defer span.End()

		return withApp(ctx, func(ctx context.Context, a *app) error {
			if err := a.settings.ClearMutedRules(ctx); err != nil {
				return err
			}
			a.session.Clear()
			fmt.Println(a.strings.Get(locale.KeyMutesCleared))
			return nil
		})
	},
}

func init() {
	mutesCmd.AddCommand(mutesListCmd)
	mutesCmd.AddCommand(mutesResetCmd)
	rootCmd.AddCommand(mutesCmd)
}
