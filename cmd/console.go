package cmd

import (
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"votebot/internal/bootstrap"
	"votebot/internal/bootstrap/logging"
	"votebot/internal/errs"
	"votebot/internal/usecase/resultsconsole"
	"votebot/internal/usecase/voting"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Terminal console commands",
}

var consoleResultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Start live results console",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, svc *voting.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		archived, _ := cmd.Flags().GetBool("archived")
		boardChat, _ := cmd.Flags().GetString("chat")
		if boardChat == "" {
			boardChat = app.Config.Bot.ChannelID
		}
		refreshInterval, _ := cmd.Flags().GetDuration("refresh-interval")
		if refreshInterval <= 0 {
			refreshInterval = 3 * time.Second
		}

		model := resultsconsole.NewResultsModel(ctx, svc, resultsconsole.ResultsOptions{
			OnlyArchived:    archived,
			BoardChatRef:    boardChat,
			TimePolicy:      svc.TimePolicy(),
			RefreshInterval: refreshInterval,
		})

		program := tea.NewProgram(model, tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return errs.Wrap(err, "run results console")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(consoleCmd)
	consoleCmd.AddCommand(consoleResultsCmd)
	consoleResultsCmd.Flags().Bool("archived", false, "Browse archived contests only")
	consoleResultsCmd.Flags().String("chat", "", "Board chat used by the publish key (default: bot.channel_id)")
	consoleResultsCmd.Flags().Duration("refresh-interval", 3*time.Second, "Auto refresh interval")
}
