package runner

import (
	"context"
	"os"

	"github.com/robfig/cron/v3"
	"go.uber.org/fx"

	"pigeon_bot/internal/exchange"
	"pigeon_bot/internal/modules/config"
	healthservice "pigeon_bot/internal/modules/health/service"
	mdservice "pigeon_bot/internal/modules/marketdata/service"
	portfolioservice "pigeon_bot/internal/modules/portfolio/service"
	pricestreamservice "pigeon_bot/internal/modules/pricestream/service"
	regimeservice "pigeon_bot/internal/modules/regime/service"
	screenerservice "pigeon_bot/internal/modules/screener/service"
	"pigeon_bot/internal/modules/strategy"
	"pigeon_bot/internal/notify"
	"pigeon_bot/pkg/logger"
)

// balance drift tolerated before live startup refuses to run
const reconcileTolerance = 0.05

// NewNotifier prefers telegram when a token is configured, stdout
// otherwise. The ledger backs the /status command.
func NewNotifier(cfg *config.Config, ledger *portfolioservice.Ledger) notify.Notifier {
	if cfg.Telegram.Token == "" || cfg.Telegram.ChatID == 0 {
		return notify.NewStdout()
	}
	tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, ledger)
	if err != nil {
		logger.Warn("telegram init failed, falling back to stdout: %v", err)
		return notify.NewStdout()
	}
	return tg
}

func NewRunContext(
	cfg *config.Config,
	market *mdservice.Client,
	scr *screenerservice.Screener,
	reg *regimeservice.Provider,
	book strategy.Book,
	ledger *portfolioservice.Ledger,
	stream *pricestreamservice.Streamer,
	health *healthservice.State,
	notifier notify.Notifier,
) *RunContext {
	return &RunContext{
		Cfg:      cfg,
		Market:   market,
		Screener: scr,
		Regime:   reg,
		Book:     book,
		Ledger:   ledger,
		Stream:   stream,
		Health:   health,
		Notifier: notifier,
	}
}

// Run wires the schedule: live reconciliation first (fatal on mismatch),
// then an immediate tick, then the cron cadence. Stopping the app stops
// the cron and the price stream.
func Run(lc fx.Lifecycle, rc *RunContext) {
	c := cron.New()
	runCtx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if rc.Cfg.Live {
				acct := exchange.NewClient(os.Getenv("MEXC_API_KEY"), os.Getenv("MEXC_API_SECRET"))
				if err := rc.Ledger.Reconcile(ctx, acct, reconcileTolerance); err != nil {
					return err
				}
			}

			if tg, ok := rc.Notifier.(*notify.Telegram); ok {
				if err := tg.Start(runCtx); err != nil {
					logger.Warn("telegram polling not started: %v", err)
				}
			}
			if rc.Stream != nil {
				go rc.Stream.Run(runCtx)
			}

			if _, err := c.AddFunc(rc.Cfg.CronSpec, func() {
				if err := rc.Tick(runCtx); err != nil {
					logger.Error("tick failed: %v", err)
				}
			}); err != nil {
				return err
			}

			go func() {
				if err := rc.Tick(runCtx); err != nil {
					logger.Error("startup tick failed: %v", err)
				}
				rc.Health.SetReady(true)
				c.Start()
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			stop := c.Stop()
			select {
			case <-stop.Done():
			case <-ctx.Done():
			}
			return nil
		},
	})
}

func Module() fx.Option {
	return fx.Module("runner",
		fx.Provide(
			NewNotifier,
			NewRunContext,
		),
		fx.Invoke(Run),
	)
}
