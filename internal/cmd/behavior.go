package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Lcking/throttle/internal/behavior"
	"github.com/Lcking/throttle/internal/locale"
	"github.com/Lcking/throttle/internal/panel"
)

var behaviorServeAddr string

var behaviorCmd = &cobra.Command{
	Use:   "behavior",
	Short: "Show behavior analytics",
	Long: `Prints the rolled-up behavior stats: reroute rates for the last seven
days and all time, governance share and adoption, and the badge ladder.
With --serve, serves the HTML panel instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, span := tracer.Start(cmd.Context(), "behavior")
		defer span.End()

		return withApp(ctx, func(ctx context.Context, a *app) error {
			if behaviorServeAddr != "" {
				srv := panel.NewServer(a.events, a.cfg.TargetRerouteRate)
				log.Info().Str("addr", behaviorServeAddr).Msg("serving behavior panel")
				return http.ListenAndServe(behaviorServeAddr, srv.Routes())
			}

			events, err := a.events.Events(ctx)
			if err != nil {
				return err
			}
			printStats(behavior.ComputeStats(events, time.Now()), a.cfg.TargetRerouteRate)
			return nil
		})
	},
}

var behaviorClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the behavior event log",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, span := tracer.Start(cmd.Context(), "behavior.clear")
		defer span.End()

		return withApp(ctx, func(ctx context.Context, a *app) error {
			if err := a.events.Clear(ctx); err != nil {
				return err
			}
			fmt.Println(a.strings.Get(locale.KeyBehaviorCleared))
			return nil
		})
	},
}

func printStats(stats behavior.Stats, target int) {
	fmt.Printf("events: %d\n", stats.TotalEvents)
	fmt.Printf("reroute rate 7d:  %3.0f%% (target %d%%, delta %+.0f%%)\n",
		stats.Last7DaysRerouteRate*100, target, stats.RerouteRateDelta*100)
	fmt.Printf("reroute rate all: %3.0f%%\n", stats.TotalsRerouteRate*100)
	fmt.Printf("governance 7d:    %3.0f%% share, %3.0f%% adopted\n",
		stats.GovernanceRate*100, stats.GovernanceAdoptionRate*100)

	fmt.Println("counts (7d / total):")
	for _, et := range behavior.EventTypes {
		fmt.Printf("  %-15s %4d / %d\n", et, stats.Last7Days[et], stats.Totals[et])
	}

	fmt.Println("badges:")
	for _, badge := range stats.Badges {
		mark := " "
		if badge.Unlocked {
			mark = "*"
		}
		fmt.Printf("  [%s] %s\n", mark, badge.ID)
	}
}

func init() {
	behaviorCmd.Flags().StringVar(&behaviorServeAddr, "serve", "", "serve the HTML panel on this address (e.g. 127.0.0.1:7077)")
	behaviorCmd.AddCommand(behaviorClearCmd)
	rootCmd.AddCommand(behaviorCmd)
}
