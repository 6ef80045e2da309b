package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"votebot/internal/bootstrap"
	"votebot/internal/bootstrap/logging"
	"votebot/internal/errs"
	"votebot/internal/infrastructure/livefeed"
	"votebot/internal/infrastructure/telegram"
	"votebot/internal/usecase/voting"
)

const (
	startedNotice = "<b>Bot ishga tushdi✅</b>"
	stoppedNotice = "⚠️ <b>Bot to'xtatildi</b>"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot: long polling, live feed and admin notices",
	RunE: withBot(func(cmd *cobra.Command, app *bootstrap.App, svc *voting.Service, bot botDeps) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg := app.Config
		if strings.TrimSpace(cfg.Bot.Token) == "" {
			return errors.New("bot.token is required to serve")
		}

		migrate, _ := cmd.Flags().GetBool("migrate")
		if migrate {
			if _, err := app.InitSchema(ctx); err != nil {
				return errs.Wrap(err, "initialize schema")
			}
		}

		feedAddr, _ := cmd.Flags().GetString("feed-addr")
		if strings.TrimSpace(feedAddr) == "" {
			feedAddr = cfg.Feed.Addr
		}
		if strings.TrimSpace(feedAddr) != "" {
			server := livefeed.NewServer(feedAddr, bot.Hub, svc)
			if err := server.Start(ctx); err != nil {
				return errs.Wrap(err, "start live feed")
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
				defer cancel()
				if err := server.Stop(shutdownCtx); err != nil {
					logging.Warn(ctx, "live feed shutdown failed", slog.Any("err", errs.Loggable(err)))
				}
			}()
		}

		notifyAdmins(ctx, svc, cfg.Bot.AdminIDs, startedNotice)

		runner := telegram.NewRunner(bot.Client, bot.Dialog, telegram.RunnerOptions{
			PollTimeout: cfg.Bot.PollTimeout,
			Workers:     cfg.Bot.Workers,
		})
		runErr := runner.Run(ctx)

		svc.WaitBoardSyncs()
		notifyAdmins(context.WithoutCancel(ctx), svc, cfg.Bot.AdminIDs, stoppedNotice)

		if runErr != nil {
			return errs.Wrap(runErr, "run telegram updates")
		}
		logging.Info(ctx, "serve finished")
		return nil
	}),
}

func notifyAdmins(ctx context.Context, svc *voting.Service, admins []int64, text string) {
	if len(admins) == 0 {
		return
	}
	sent, err := svc.NotifyAdmins(ctx, admins, text)
	if err != nil {
		logging.Warn(ctx, "notify admins failed", slog.Any("err", errs.Loggable(err)))
		return
	}
	logging.Info(ctx, "admins notified", slog.Int("sent", sent), slog.Int("admins", len(admins)))
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Bool("migrate", true, "Migrate the database schema before polling")
	serveCmd.Flags().String("feed-addr", "", "Live feed listen address (overrides feed.addr)")
}
