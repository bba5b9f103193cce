package main

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"
)

func sweepCmd() *cobra.Command {
	var (
		olderThan time.Duration
		limit     int
	)
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Settle or expire abandoned pending registrations",
		Long: `Checks every pending registration older than --older-than (default
PENDING_TTL) against the payment gateway. Registrations whose payment
succeeded are confirmed; the rest are marked failed and their payment
intent cancelled. Intended to run from cron.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			svc, err := a.registrationService()
			if err != nil {
				return err
			}
			if olderThan <= 0 {
				olderThan = a.cfg.PendingTTL
			}

			res, err := svc.ExpireStalePending(ctx, olderThan, limit)
			if err != nil {
				return err
			}
			a.logger.Info("sweep finished",
				"older_than", olderThan,
				"scanned", res.Scanned,
				"confirmed", res.Confirmed,
				"expired", res.Expired,
				"skipped", res.Skipped,
				"errors", res.Errors,
			)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Age after which a pending registration is stale (default PENDING_TTL)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 500, "Maximum registrations to process")

	return cmd
}
