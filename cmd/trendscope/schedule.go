package main

import (
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"TrendScope/internal/metrics"
	"TrendScope/internal/notifier"
	"TrendScope/internal/scheduler"
)

func newScheduleCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Re-run detection on the configured cron schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			col, eng, release, err := pipeline(cfg)
			if err != nil {
				return err
			}
			defer release()

			sched := scheduler.NewScheduler(ctx, col, eng, cfg.Source.Symbol)
			if err := sched.Register(cfg.Schedule.Cron); err != nil {
				return err
			}

			// Everything that can reach the bar source finishes before release.
			var pollers sync.WaitGroup
			if cfg.Metrics.Listen != "" {
				reg := metrics.NewRegistry()
				sched.Metrics = reg
				go func() {
					if err := reg.Serve(ctx, cfg.Metrics.Listen); err != nil {
						log.Error().Err(err).Msg("metrics endpoint stopped")
					}
				}()
			}
			if cfg.TelegramEnabled() {
				tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
				sched.Notifier = tn
				pollers.Add(1)
				go func() {
					defer pollers.Done()
					tn.StartPolling(ctx, sched.HandleCommand)
				}()
				log.Info().Msg("telegram polling started")
			}

			sched.Start()
			defer sched.Stop()
			defer pollers.Wait()

			if cfg.Schedule.RunOnStart {
				log.Info().Msg("run_on_start enabled, scanning now")
				sched.RunInBackground(ctx, true)
			}

			log.Info().Str("cron", cfg.Schedule.Cron).Msg("trendscope is running, press Ctrl+C to stop")
			<-ctx.Done()
			log.Info().Msg("shutdown signal received, stopping")
			return nil
		},
	}
}
