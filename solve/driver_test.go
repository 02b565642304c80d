package solve

import (
	"testing"

	"github.com/matryer/is"

	"github.com/bluebear94/ursolve/enumerate"
	"github.com/bluebear94/ursolve/game"
	"github.com/bluebear94/ursolve/internal/urconfig"
	"github.com/bluebear94/ursolve/key"
	"github.com/bluebear94/ursolve/persist"
)

// scoreKey builds the PermaKey of a state whose two teams' scores are
// hi and lo (order doesn't matter: PermaKey sorts them into gt/lt
// itself), for dependency-window tests that only care about the
// score-delta logic in PermaKey.ReachableInOneMoveFrom.
func scoreKey(hi, lo uint8) key.PermaKey {
	var g game.GameState
	g.MoverState.Score = hi
	g.OpponentState.Score = lo
	return key.FromGame(g)
}

func TestDependencyStartFindsMinimalReachableWindow(t *testing.T) {
	is := is.New(t)
	layers := []enumerate.Layer{
		{Key: scoreKey(2, 0), Start: 0, End: 5},
		{Key: scoreKey(1, 0), Start: 5, End: 9},
		{Key: scoreKey(0, 0), Start: 9, End: 12},
	}
	// Layer 2 (scores (0,0)) can reach layer 1 (scores (1,0)) in one
	// move but not layer 0 (scores (2,0)), giving dep_start = 5, not 0.
	is.Equal(dependencyStart(layers, 2), 5)
}

func TestDependencyStartWithNoReachablePredecessorKeepsOwnStart(t *testing.T) {
	is := is.New(t)
	layers := []enumerate.Layer{
		{Key: scoreKey(0, 0), Start: 0, End: 5},
		{Key: scoreKey(5, 0), Start: 5, End: 9}, // a two-point jump: not reachable in one move
	}
	is.Equal(dependencyStart(layers, 1), layers[1].Start)
}

func TestDefaultGPUThresholdIsPositive(t *testing.T) {
	is := is.New(t)
	is.True(defaultGPUThreshold() > 0)
}

func TestLoadCachedValsResumesHighestNumberedFile(t *testing.T) {
	is := is.New(t)
	cfg := urconfig.Default()
	cfg.DataDir = t.TempDir()
	cfg.GoalScore = 7
	d := &Driver{Config: cfg}

	states := []key.Compact{0, 1, 2}
	is.NoErr(persist.WriteVals(persist.ValsPath(cfg.DataDir, cfg.GoalScore, 0), []float64{0.1, 0.2, 0.3}))
	is.NoErr(persist.WriteVals(persist.ValsPath(cfg.DataDir, cfg.GoalScore, 1), []float64{0.4, 0.5, 0.6}))

	vals, ok := d.loadCachedVals(states)
	is.True(ok)
	is.Equal(vals, []float64{0.4, 0.5, 0.6})
}

func TestLoadCachedValsRejectsLengthMismatch(t *testing.T) {
	is := is.New(t)
	cfg := urconfig.Default()
	cfg.DataDir = t.TempDir()
	cfg.GoalScore = 7
	d := &Driver{Config: cfg}

	is.NoErr(persist.WriteVals(persist.ValsPath(cfg.DataDir, cfg.GoalScore, 0), []float64{0.1, 0.2}))

	_, ok := d.loadCachedVals([]key.Compact{0, 1, 2})
	is.True(!ok)
}

func TestLoadCachedValsMissingReturnsNotOK(t *testing.T) {
	is := is.New(t)
	cfg := urconfig.Default()
	cfg.DataDir = t.TempDir()
	d := &Driver{Config: cfg}

	_, ok := d.loadCachedVals([]key.Compact{0, 1, 2})
	is.True(!ok)
}
