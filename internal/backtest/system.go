package backtest

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"pigeon_bot/internal/models"
	strategyservice "pigeon_bot/internal/modules/strategy/service"
	"pigeon_bot/pkg/logger"
)

// RunDir replays every *.csv in dataDir through the same strategy and
// config. The file stem is the instrument id. A file that fails to load
// or replay is logged and skipped; one bad export should not sink the
// whole sweep.
func RunDir(ctx context.Context, dataDir string, strat strategyservice.Strategy, cfg Config) ([]Result, error) {
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return nil, errors.Wrap(err, "read data dir")
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".csv") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	if len(names) == 0 {
		return nil, errors.Errorf("no csv files in %s", dataDir)
	}

	results := make([]Result, 0, len(names))
	for _, name := range names {
		inst := strings.TrimSuffix(name, ".csv")
		series, err := LoadCSV(filepath.Join(dataDir, name))
		if err != nil {
			logger.Warn("backtest: skip %s: %v", name, err)
			continue
		}
		res, err := Run(ctx, series, strat, models.Candidate{Instrument: inst, Symbol: inst}, cfg)
		if err != nil {
			logger.Warn("backtest: %s failed: %v", inst, err)
			continue
		}
		results = append(results, res)
	}
	return results, nil
}
