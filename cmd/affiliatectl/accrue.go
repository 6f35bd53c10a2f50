package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dhoini/affiliate-service/internal/app"
	"github.com/Dhoini/affiliate-service/internal/domain"
	"github.com/spf13/cobra"
)

func accrueCmd() *cobra.Command {
	var year, month int

	cmd := &cobra.Command{
		Use:   "accrue",
		Short: "Create pending commission payments for a billing month",
		Long: `Creates one pending commission payment per active recurring referral
for the given month. Running it twice for the same month creates nothing new.

Examples:
  affiliatectl accrue
  affiliatectl accrue --year 2026 --month 3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now().UTC()
			if year == 0 {
				year = now.Year()
			}
			if month == 0 {
				month = int(now.Month())
			}
			if month < 1 || month > 12 {
				return fmt.Errorf("month must be 1..12, got %d", month)
			}

			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			application, err := app.New(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer application.Close()

			return runAccrue(ctx, cmd, application, domain.PeriodFor(year, time.Month(month)))
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "billing year (default current)")
	cmd.Flags().IntVar(&month, "month", 0, "billing month 1-12 (default current)")
	return cmd
}

func runAccrue(ctx context.Context, cmd *cobra.Command, application *app.App, period domain.Period) error {
	result, err := application.Service().AccrueCommissions(ctx, period)
	if err != nil {
		return fmt.Errorf("accrue: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "period %s..%s: examined %d referrals, created %d payments\n",
		result.PeriodStart.Format("2006-01-02"),
		result.PeriodEnd.Format("2006-01-02"),
		result.Examined,
		result.Created,
	)
	return nil
}
