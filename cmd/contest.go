package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"votebot/internal/bootstrap"
	"votebot/internal/bootstrap/logging"
	"votebot/internal/errs"
	"votebot/internal/ports"
	"votebot/internal/usecase/voting"
)

var contestCmd = &cobra.Command{
	Use:   "contest",
	Short: "Contest lifecycle commands",
}

var contestCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a contest from a TOML definition, superseding the active one",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *voting.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		file, _ := cmd.Flags().GetString("file")
		input, err := loadContestFile(file, svc.TimePolicy())
		if err != nil {
			return errs.Wrap(err, "load contest file")
		}

		created, err := svc.CreateContest(ctx, input)
		if err != nil {
			logging.Error(ctx, "create contest failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "create contest")
		}

		policy := svc.TimePolicy()
		if _, err := fmt.Fprintf(
			cmd.OutOrStdout(),
			"created contest: %d name=%s start=%s end=%s candidates=%d channels=%d superseded=%d\n",
			created.Contest.ContestID,
			created.Contest.Name,
			policy.Format(created.Contest.StartAt),
			policy.Format(created.Contest.EndAt),
			len(created.Candidates),
			len(created.Channels),
			created.Superseded,
		); err != nil {
			return errs.Wrap(err, "write create output")
		}

		publish, _ := cmd.Flags().GetBool("publish")
		if !publish {
			return nil
		}
		chatRef, _ := cmd.Flags().GetString("chat")
		return publishBoard(cmd, svc, created.Contest.ContestID, chatRef)
	}),
}

var contestPublishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Post the live board for a contest",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *voting.Service) error {
		contestID, _ := cmd.Flags().GetUint64("contest")
		chatRef, _ := cmd.Flags().GetString("chat")
		return publishBoard(cmd, svc, contestID, chatRef)
	}),
}

var contestStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a contest now and archive it",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *voting.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		contestID, _ := cmd.Flags().GetUint64("contest")
		stopped, err := svc.StopContest(ctx, contestID)
		if err != nil {
			logging.Error(ctx, "stop contest failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "stop contest")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "stopped contest: %d end=%s\n", stopped.ContestID, svc.TimePolicy().Format(stopped.EndAt)); err != nil {
			return errs.Wrap(err, "write stop output")
		}
		return nil
	}),
}

var contestArchiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Archive a contest without changing its window",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *voting.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		contestID, _ := cmd.Flags().GetUint64("contest")
		if err := svc.ArchiveContest(ctx, contestID); err != nil {
			logging.Error(ctx, "archive contest failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "archive contest")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "archived contest: %d\n", contestID); err != nil {
			return errs.Wrap(err, "write archive output")
		}
		return nil
	}),
}

var contestResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all votes of a contest and zero its tallies",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *voting.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		confirmed, _ := cmd.Flags().GetBool("yes")
		if !confirmed {
			return errors.New("reset deletes every vote; pass --yes to confirm")
		}

		contestID, _ := cmd.Flags().GetUint64("contest")
		removed, err := svc.ResetVotes(ctx, contestID)
		if err != nil {
			logging.Error(ctx, "reset votes failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "reset votes")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "reset contest: %d removed_votes=%d\n", contestID, removed); err != nil {
			return errs.Wrap(err, "write reset output")
		}
		return nil
	}),
}

var contestListCmd = &cobra.Command{
	Use:   "list",
	Short: "List contests, newest first",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *voting.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		archived, _ := cmd.Flags().GetBool("archived")
		limit, _ := cmd.Flags().GetInt("limit")
		items, err := svc.ListContests(ctx, archived, limit)
		if err != nil {
			logging.Error(ctx, "list contests failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "list contests")
		}

		if len(items) == 0 {
			if _, err := fmt.Fprintln(cmd.OutOrStdout(), "no contests"); err != nil {
				return errs.Wrap(err, "write list output")
			}
			return nil
		}

		policy := svc.TimePolicy()
		for _, item := range items {
			if _, err := fmt.Fprintf(
				cmd.OutOrStdout(),
				"%d [%s] start=%s end=%s name=%s\n",
				item.ContestID,
				contestStatus(item),
				policy.Format(item.StartAt),
				policy.Format(item.EndAt),
				item.Name,
			); err != nil {
				return errs.Wrap(err, "write list item")
			}
		}
		return nil
	}),
}

var contestShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show contest detail with ranked results",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *voting.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		contestID, _ := cmd.Flags().GetUint64("contest")
		report, err := svc.DetailedReport(ctx, contestID)
		if err != nil {
			logging.Error(ctx, "show contest failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "show contest")
		}
		if err := writeContestDetail(cmd.OutOrStdout(), svc, report); err != nil {
			return errs.Wrap(err, "write show output")
		}
		return nil
	}),
}

var contestExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export results and vote audit rows as json, jsonl or csv",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *voting.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		contestID, _ := cmd.Flags().GetUint64("contest")
		format, _ := cmd.Flags().GetString("format")
		outPath, _ := cmd.Flags().GetString("out")

		var out io.Writer = cmd.OutOrStdout()
		if strings.TrimSpace(outPath) != "" {
			file, err := os.Create(outPath)
			if err != nil {
				return errs.Wrapf(err, "create export file %q", outPath)
			}
			defer file.Close()
			out = file
		}

		if err := svc.Export(ctx, contestID, format, out); err != nil {
			logging.Error(ctx, "export contest failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "export contest")
		}
		if strings.TrimSpace(outPath) != "" {
			logging.Info(ctx, "contest exported", slog.Uint64("contest_id", contestID), slog.String("format", format), slog.String("out", outPath))
		}
		return nil
	}),
}

func publishBoard(cmd *cobra.Command, svc *voting.Service, contestID uint64, chatRef string) error {
	ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

	post, err := svc.PublishBoard(ctx, contestID, chatRef)
	if err != nil {
		logging.Error(ctx, "publish board failed", slog.Any("err", errs.Loggable(err)))
		return errs.Wrap(err, "publish board")
	}

	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "published board: contest=%d chat=%s message=%d\n", contestID, post.ChatRef, post.MessageID); err != nil {
		return errs.Wrap(err, "write publish output")
	}
	return nil
}

func contestStatus(item ports.Contest) string {
	switch {
	case item.IsActive:
		return "active"
	case item.IsArchived:
		return "archived"
	default:
		return "inactive"
	}
}

func writeContestDetail(w io.Writer, svc *voting.Service, report voting.DetailedReport) error {
	policy := svc.TimePolicy()
	item := report.Contest
	lines := []string{
		fmt.Sprintf("ContestID: %d", item.ContestID),
		fmt.Sprintf("Name: %s", item.Name),
		fmt.Sprintf("Status: %s", contestStatus(item)),
		fmt.Sprintf("Start: %s", policy.Format(item.StartAt)),
		fmt.Sprintf("End: %s", policy.Format(item.EndAt)),
		fmt.Sprintf("TotalVotes: %d", report.TotalVotes),
		fmt.Sprintf("TotalVoters: %d", report.TotalVoters),
	}
	if item.Board != nil {
		lines = append(lines, fmt.Sprintf("Board: %s/%d", item.Board.ChatRef, item.Board.MessageID))
	}
	for _, channel := range report.Channels {
		lines = append(lines, fmt.Sprintf("Channel: %s %s", channel.ChannelRef, channel.Title))
	}
	lines = append(lines, "", "Results:")
	for _, result := range report.Results {
		lines = append(lines, fmt.Sprintf("%d. %s votes=%d share=%.2f%%", result.Rank, result.Name, result.Votes, result.Percentage))
	}

	if _, err := fmt.Fprintln(w, strings.Join(lines, "\n")); err != nil {
		return err
	}
	return nil
}

func init() {
	rootCmd.AddCommand(contestCmd)
	contestCmd.AddCommand(contestCreateCmd)
	contestCmd.AddCommand(contestPublishCmd)
	contestCmd.AddCommand(contestStopCmd)
	contestCmd.AddCommand(contestArchiveCmd)
	contestCmd.AddCommand(contestResetCmd)
	contestCmd.AddCommand(contestListCmd)
	contestCmd.AddCommand(contestShowCmd)
	contestCmd.AddCommand(contestExportCmd)

	contestCreateCmd.Flags().String("file", "", "Path to contest definition TOML")
	contestCreateCmd.Flags().Bool("publish", false, "Post the live board right after creating")
	contestCreateCmd.Flags().String("chat", "", "Board chat for --publish (default: bot.channel_id)")
	_ = contestCreateCmd.MarkFlagRequired("file")

	contestPublishCmd.Flags().Uint64("contest", 0, "Contest id")
	contestPublishCmd.Flags().String("chat", "", "Board chat (default: bot.channel_id)")
	_ = contestPublishCmd.MarkFlagRequired("contest")

	for _, c := range []*cobra.Command{contestStopCmd, contestArchiveCmd, contestResetCmd, contestShowCmd, contestExportCmd} {
		c.Flags().Uint64("contest", 0, "Contest id")
		_ = c.MarkFlagRequired("contest")
	}
	contestResetCmd.Flags().Bool("yes", false, "Confirm deleting every vote")

	contestListCmd.Flags().Bool("archived", false, "Only archived contests")
	contestListCmd.Flags().Int("limit", 20, "Maximum contests to list")

	contestExportCmd.Flags().String("format", voting.ExportJSON, "Export format: json|jsonl|csv")
	contestExportCmd.Flags().String("out", "", "Write to file instead of stdout")
}
