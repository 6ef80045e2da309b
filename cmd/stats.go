package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"votebot/internal/bootstrap"
	"votebot/internal/bootstrap/logging"
	"votebot/internal/errs"
	"votebot/internal/usecase/voting"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show totals across all contests",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *voting.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		stats, err := svc.GlobalStats(ctx)
		if err != nil {
			logging.Error(ctx, "load global stats failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "load global stats")
		}

		if _, err := fmt.Fprintf(
			cmd.OutOrStdout(),
			"contests=%d active=%d votes=%d voters=%d\n",
			stats.TotalContests,
			stats.ActiveContests,
			stats.TotalVotes,
			stats.TotalVoters,
		); err != nil {
			return errs.Wrap(err, "write stats output")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
