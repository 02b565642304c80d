// Package urconfig loads the solver's runtime configuration, modeled on
// the teacher's config.Config value-object-passed-everywhere idiom
// (see alphabet/bag_test.go for the pattern this follows).
package urconfig

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds every tunable the layer driver and evaluators need.
type Config struct {
	// GoalScore is the number of pieces a team must bring home to win.
	GoalScore int
	// Epsilon is the convergence threshold for the CPU (f64) refinement
	// pass; the GPU (f32) pass uses EpsilonGPU.
	Epsilon float64
	// EpsilonGPU is the looser f32-precision convergence threshold used
	// before upcasting to f64 (spec.md §4.6).
	EpsilonGPU float64
	// GPUThreshold is the minimum layer size (state count) at which the
	// driver routes a layer through the GPU evaluator instead of CPU-only.
	GPUThreshold int
	// MaxIterations bounds a single layer's iteration count before the
	// driver gives up with a DivergentLayer error.
	MaxIterations int
	// Threads is the CPU evaluator's worker pool size; 0 means
	// GOMAXPROCS.
	Threads int
	// DataDir is where order/value cache files are read from and
	// written to.
	DataDir string
}

// Default returns the solver's out-of-the-box configuration.
func Default() Config {
	return Config{
		GoalScore:     7,
		Epsilon:       1e-15,
		EpsilonGPU:    1e-6,
		GPUThreshold:  100_000,
		MaxIterations: 10_000,
		Threads:       0,
		DataDir:       "data",
	}
}

// Load reads configuration from environment variables prefixed
// URSOLVE_ and, if present, a YAML file at configPath, layered over
// Default(). An empty configPath skips the file lookup.
func Load(configPath string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetEnvPrefix("URSOLVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("goal_score", cfg.GoalScore)
	v.SetDefault("epsilon", cfg.Epsilon)
	v.SetDefault("epsilon_gpu", cfg.EpsilonGPU)
	v.SetDefault("gpu_threshold", cfg.GPUThreshold)
	v.SetDefault("max_iterations", cfg.MaxIterations)
	v.SetDefault("threads", cfg.Threads)
	v.SetDefault("data_dir", cfg.DataDir)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	cfg.GoalScore = v.GetInt("goal_score")
	cfg.Epsilon = v.GetFloat64("epsilon")
	cfg.EpsilonGPU = v.GetFloat64("epsilon_gpu")
	cfg.GPUThreshold = v.GetInt("gpu_threshold")
	cfg.MaxIterations = v.GetInt("max_iterations")
	cfg.Threads = v.GetInt("threads")
	cfg.DataDir = v.GetString("data_dir")
	return cfg, nil
}
