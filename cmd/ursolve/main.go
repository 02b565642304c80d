// Command ursolve is the batch solver entrypoint: it loads the runtime
// configuration, runs the layered value-iteration solve, and persists
// the result, following the teacher's flag-driven main.go entrypoint
// idiom.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/bluebear94/ursolve/internal/urconfig"
	"github.com/bluebear94/ursolve/persist"
	"github.com/bluebear94/ursolve/solve"
)

var (
	configPath    = flag.String("config", "", "path to an optional YAML config file")
	dataDir       = flag.String("data-dir", "", "override the cache directory (default from config)")
	goalScore     = flag.Int("goal-score", 0, "override GOAL_SCORE (default from config)")
	epsilon       = flag.Float64("epsilon", 0, "override the CPU convergence epsilon (default from config)")
	maxIterations = flag.Int("max-iterations", 0, "override the per-layer iteration cap (default from config)")
	verbose       = flag.Bool("verbose", false, "enable debug-level logging")
)

func main() {
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg, err := urconfig.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	applyOverrides(&cfg)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatal().Err(err).Str("data_dir", cfg.DataDir).Msg("failed to create data directory")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	driver := &solve.Driver{Config: cfg}
	result, err := driver.Solve(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("solve failed")
	}

	if err := persistResult(cfg, result); err != nil {
		log.Fatal().Err(err).Msg("failed to persist solved values")
	}

	log.Info().Int("states", len(result.States)).Msg("solve complete")
}

func applyOverrides(cfg *urconfig.Config) {
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *goalScore != 0 {
		cfg.GoalScore = *goalScore
	}
	if *epsilon != 0 {
		cfg.Epsilon = *epsilon
	}
	if *maxIterations != 0 {
		cfg.MaxIterations = *maxIterations
	}
}

func persistResult(cfg urconfig.Config, result *solve.Result) error {
	orderPath := persist.OrderPath(cfg.DataDir, cfg.GoalScore)
	if err := persist.WriteOrder(orderPath, result.States); err != nil {
		return err
	}
	valsPath := persist.ValsPath(cfg.DataDir, cfg.GoalScore, 0)
	return persist.WriteVals(valsPath, result.Values)
}
