package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"votebot/internal/bootstrap"
	"votebot/internal/bootstrap/logging"
	"votebot/internal/errs"
	"votebot/internal/infrastructure/livefeed"
	"votebot/internal/infrastructure/telegram"
	"votebot/internal/usecase/dialog"
	"votebot/internal/usecase/voting"
)

// botDeps carries the long-running pieces only serve needs.
type botDeps struct {
	Client *telegram.Client
	Dialog *dialog.Handler
	Hub    *livefeed.Hub
}

func withApp(run func(cmd *cobra.Command, app *bootstrap.App, svc *voting.Service) error) func(cmd *cobra.Command, args []string) error {
	return withBot(func(cmd *cobra.Command, app *bootstrap.App, svc *voting.Service, _ botDeps) error {
		return run(cmd, app, svc)
	})
}

func withBot(run func(cmd *cobra.Command, app *bootstrap.App, svc *voting.Service, bot botDeps) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := logging.WithAttrs(
			cmd.Context(),
			slog.String("command", cmd.CommandPath()),
			slog.String("config_file", cfgFile),
		)

		var app *bootstrap.App
		var svc *voting.Service
		var bot botDeps
		fxApp := fx.New(
			bootstrap.Module,
			fx.Provide(func() context.Context { return ctx }),
			fx.Provide(
				fx.Annotate(
					func() string { return cfgFile },
					fx.ResultTags(`name:"configFile"`),
				),
			),
			fx.Populate(&app, &svc, &bot.Client, &bot.Dialog, &bot.Hub),
		)

		startCtx, cancelStart := context.WithTimeout(ctx, 10*time.Second)
		defer cancelStart()
		if err := fxApp.Start(startCtx); err != nil {
			logging.Error(ctx, "bootstrap application failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "start fx application")
		}

		defer func() {
			stopCtx, cancelStop := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancelStop()
			if err := fxApp.Stop(stopCtx); err != nil {
				logging.Error(ctx, "fx application stop failed", slog.Any("err", errs.Loggable(err)))
			}
		}()

		logger := logging.NewTextLogger(cmd.ErrOrStderr(), app.Config.App.LogLevel)
		cmd.SetContext(logging.WithLogger(cmd.Context(), logger))

		runErr := run(cmd, app, svc, bot)
		svc.WaitBoardSyncs()
		if runErr != nil {
			return errs.Wrap(runErr, "run command")
		}
		return nil
	}
}
