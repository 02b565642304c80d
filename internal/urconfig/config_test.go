package urconfig

import (
	"testing"

	"github.com/matryer/is"
)

func TestDefaultIsInternallyConsistent(t *testing.T) {
	is := is.New(t)
	cfg := Default()
	is.True(cfg.GoalScore > 0)
	is.True(cfg.Epsilon > 0 && cfg.Epsilon < cfg.EpsilonGPU)
	is.True(cfg.GPUThreshold > 0)
	is.True(cfg.MaxIterations > 0)
	is.True(cfg.DataDir != "")
}

func TestLoadWithNoFileFallsBackToDefaults(t *testing.T) {
	is := is.New(t)
	cfg, err := Load("")
	is.NoErr(err)
	is.Equal(cfg, Default())
}

func TestLoadReadsEnvOverride(t *testing.T) {
	is := is.New(t)
	t.Setenv("URSOLVE_GOAL_SCORE", "3")
	cfg, err := Load("")
	is.NoErr(err)
	is.Equal(cfg.GoalScore, 3)
}
