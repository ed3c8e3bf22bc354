package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"pigeon_bot/internal/backtest"
	"pigeon_bot/internal/models"
	strategyservice "pigeon_bot/internal/modules/strategy/service"
	"pigeon_bot/pkg/logger"
)

func main() {
	zl, err := logger.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	logger.Init(zl)

	var (
		file     = flag.String("file", "", "single csv to replay")
		dataDir  = flag.String("data", "", "directory of csv files to replay")
		stratArg = flag.String("strategy", "echo_rebound", "strategy kind")
		pool     = flag.String("pool", "echo", "pool to run under: echo|nia")
		capital  = flag.Float64("capital", 1000, "starting capital")
		risk     = flag.Float64("risk", 0.05, "risk fraction per entry")
		fee      = flag.Float64("fee", 0.004, "fee rate, both sides")
		maxPos   = flag.Int("max-positions", 8, "max concurrent positions")
	)
	flag.Parse()

	kind, err := models.ParseStrategyKind(*stratArg)
	if err != nil {
		fail(err)
	}
	strat, err := strategyservice.New(kind)
	if err != nil {
		fail(err)
	}

	cfg := backtest.Config{
		Pool:            models.PoolKind(*pool),
		StartingCapital: *capital,
		FeeRate:         *fee,
		DustFloor:       5.0,
		RiskFraction:    *risk,
		MaxPositions:    *maxPos,
	}
	if cfg.Pool != models.PoolEcho && cfg.Pool != models.PoolNia {
		fail(fmt.Errorf("invalid pool %q", *pool))
	}

	ctx := context.Background()
	var results []backtest.Result

	switch {
	case *file != "":
		series, err := backtest.LoadCSV(*file)
		if err != nil {
			fail(err)
		}
		res, err := backtest.Run(ctx, series, strat, models.Candidate{Instrument: stem(*file), Symbol: stem(*file)}, cfg)
		if err != nil {
			fail(err)
		}
		results = []backtest.Result{res}
	case *dataDir != "":
		results, err = backtest.RunDir(ctx, *dataDir, strat, cfg)
		if err != nil {
			fail(err)
		}
	default:
		fail(fmt.Errorf("one of -file or -data is required"))
	}

	fmt.Printf("%-16s %6s %6s %5s %12s %8s %8s\n",
		"instrument", "days", "trades", "wins", "final", "roi%", "maxdd%")
	for _, r := range results {
		fmt.Printf("%-16s %6d %6d %5d %12.2f %8.2f %8.2f\n",
			r.Instrument, r.Days, r.Trades, r.Wins, r.FinalEquity, r.ROI*100, r.MaxDrawdown*100)
	}
}

func stem(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
