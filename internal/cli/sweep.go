package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smartticket/ticket-api/internal/idempotency"
	"github.com/smartticket/ticket-api/internal/worker"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep-idempotency",
	Short: "Delete expired idempotency records",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.close()

		ledger := idempotency.NewLedger(rt.stores.Idempotency, idempotency.Options{
			ExpirationHours: rt.cfg.Idempotency.ExpirationHours,
		}, rt.logger)
		removed, err := worker.NewIdempotencySweeper(ledger, 0, rt.logger).SweepOnce(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired record(s)\n", removed)
		return nil
	},
}
