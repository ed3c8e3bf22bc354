package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"go.uber.org/fx"

	"pigeon_bot/internal/models"
	"pigeon_bot/internal/modules/config"
	"pigeon_bot/internal/modules/health"
	"pigeon_bot/internal/modules/marketdata"
	"pigeon_bot/internal/modules/portfolio"
	portfolioservice "pigeon_bot/internal/modules/portfolio/service"
	"pigeon_bot/internal/modules/postgres"
	"pigeon_bot/internal/modules/pricestream"
	"pigeon_bot/internal/modules/regime"
	"pigeon_bot/internal/modules/screener"
	"pigeon_bot/internal/modules/strategy"
	"pigeon_bot/internal/runner"
	"pigeon_bot/pkg/logger"
	"pigeon_bot/pkg/tracing"
)

func main() {
	zl, err := logger.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	logger.Init(zl)

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "status", "add-funds", "flush":
			if err := runAdmin(os.Args[1], os.Args[2:]); err != nil {
				logger.Error("%s: %v", os.Args[1], err)
				os.Exit(1)
			}
			return
		}
	}

	mode := flag.String("mode", "", "pools to run: echo|nia|all (default from config)")
	live := flag.Bool("live", false, "enable live mode (startup balance reconciliation)")
	flag.Parse()

	app := fx.New(
		fx.Provide(
			func() context.Context { return context.Background() },
		),
		config.Module(),
		fx.Decorate(func(cfg *config.Config) (*config.Config, error) {
			if *mode != "" {
				cfg.Mode = *mode
			}
			if *live {
				cfg.Live = true
			}
			switch cfg.Mode {
			case "echo", "nia", "all":
			default:
				return nil, fmt.Errorf("invalid mode %q", cfg.Mode)
			}
			return cfg, nil
		}),
		postgres.Module(),
		marketdata.Module(),
		regime.Module(),
		screener.Module(),
		strategy.Module(),
		portfolio.Module(),
		pricestream.Module(),
		health.Module(),
		runner.Module(),
		fx.Invoke(initTracing),
	)
	app.Run()
}

func initTracing(lc fx.Lifecycle, cfg *config.Config) error {
	_, closer, err := tracing.InitTracer(tracing.Config{
		Host: cfg.Jaeger.Host,
		Port: cfg.Jaeger.Port,
	})
	if err != nil {
		return err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			closer()
			return nil
		},
	})
	return nil
}

// runAdmin runs the maintenance subcommands against the state file
// directly, without spinning up the scheduler.
func runAdmin(cmd string, args []string) error {
	cfg, err := config.NewConfig()
	if err != nil {
		return err
	}
	ledger := portfolioservice.NewLedger(portfolio.NewParams(cfg), portfolio.NewStore(cfg), nil)
	ctx := context.Background()

	switch cmd {
	case "status":
		text, err := ledger.StatusText(ctx)
		if err != nil {
			return err
		}
		fmt.Println(text)
		return nil

	case "add-funds":
		fs := flag.NewFlagSet("add-funds", flag.ExitOnError)
		echoAmt := fs.Float64("echo", 0, "amount to add to the echo pool")
		niaAmt := fs.Float64("nia", 0, "amount to add to the nia pool")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if err := ledger.AddFunds(ctx, *echoAmt, *niaAmt); err != nil {
			return err
		}
		fmt.Printf("added %.2f to echo, %.2f to nia\n", *echoAmt, *niaAmt)
		return nil

	case "flush":
		fs := flag.NewFlagSet("flush", flag.ExitOnError)
		pool := fs.String("pool", "echo", "pool to flush: echo|nia")
		n := fs.Int("n", 1, "number of oldest positions to close")
		haircut := fs.Float64("haircut", 0.10, "fraction below entry the flush values positions at")
		if err := fs.Parse(args); err != nil {
			return err
		}
		kind := models.PoolKind(*pool)
		if kind != models.PoolEcho && kind != models.PoolNia {
			return fmt.Errorf("invalid pool %q", *pool)
		}
		proceeds, err := ledger.EmergencyFlush(ctx, kind, *n, *haircut)
		if err != nil {
			return err
		}
		fmt.Printf("flushed %d position(s) from %s, returned %.2f\n", *n, kind, proceeds)
		return nil
	}
	return fmt.Errorf("unknown subcommand %q", cmd)
}
