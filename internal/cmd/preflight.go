package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Lcking/throttle/internal/arbiter"
	"github.com/Lcking/throttle/internal/state"
)

var preflightCmd = &cobra.Command{
	Use:   "preflight",
	Short: "Show the current governance posture",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, span := tracer.Start(cmd.Context(), "preflight")
		defer span.End()

		return withApp(ctx, func(ctx context.Context, a *app) error {
			mode, tier := currentModeTier(ctx, a)
			fmt.Printf("mode/tier:        %s/%s\n", mode, tier)

			muted := 0
			for _, scope := range []state.Scope{state.ScopeGlobal, state.ScopeWorkspace} {
				ids, err := a.settings.MutedRules(ctx, scope)
				if err != nil {
					return err
				}
				muted += len(ids)
			}
			fmt.Printf("muted rules:      %d\n", muted)
			fmt.Printf("active cooldowns: %d (window %s)\n",
				a.cooldowns.ActiveCount(time.Now()), arbiter.CooldownWindow)
			fmt.Printf("doc drift:        %s\n", onOff(a.cfg.DocDriftEnabled))
			fmt.Printf("enabled:          %s\n", onOff(a.cfg.Enabled))
			return nil
		})
	},
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func init() {
	rootCmd.AddCommand(preflightCmd)
}
