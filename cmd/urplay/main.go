// Command urplay is a minimal interactive REPL client over a solved
// (states, vals) pair, matching the "collaborator" contract in
// spec.md §6: look up a position by its compact key, enumerate the
// successors of a rolled die, and report the value (or 1-value for a
// turn-passing successor). It is not part of the solver's core
// contract, matching the teacher's REPL-style command parsing in
// turnplayer/analyzer.
package main

import (
	"flag"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/chzyer/readline"
	shellquote "github.com/kballard/go-shellquote"

	"github.com/bluebear94/ursolve/game"
	"github.com/bluebear94/ursolve/internal/urconfig"
	"github.com/bluebear94/ursolve/key"
	"github.com/bluebear94/ursolve/persist"
	"github.com/bluebear94/ursolve/render"
)

var configPath = flag.String("config", "", "path to an optional YAML config file")

// session holds the loaded solve output, the position currently under
// inspection, and the outcomes of the most recently rolled die (so
// "goto" can select among them).
type session struct {
	states   []key.Compact
	vals     []float64
	current  game.GameState
	lastRoll []game.Outcome
}

func (s *session) lookup(g game.GameState) (float64, bool) {
	k := key.Encode(g)
	i := sort.Search(len(s.states), func(i int) bool { return !key.Less(s.states[i], k) })
	if i < len(s.states) && s.states[i] == k {
		return s.vals[i], true
	}
	return 0, false
}

func main() {
	flag.Parse()

	cfg, err := urconfig.Load(*configPath)
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		return
	}

	states, err := persist.ReadOrder(persist.OrderPath(cfg.DataDir, cfg.GoalScore))
	if err != nil {
		fmt.Printf("failed to load state order (run ursolve first): %v\n", err)
		return
	}
	vals, err := persist.ReadVals(persist.ValsPath(cfg.DataDir, cfg.GoalScore, 0))
	if err != nil {
		fmt.Printf("failed to load values (run ursolve first): %v\n", err)
		return
	}

	sess := &session{states: states, vals: vals, current: game.New()}

	rl, err := readline.New("urplay> ")
	if err != nil {
		fmt.Printf("failed to start console: %v\n", err)
		return
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err == io.EOF || err == readline.ErrInterrupt {
			return
		}
		if err != nil {
			fmt.Printf("read error: %v\n", err)
			return
		}
		args, err := shellquote.Split(line)
		if err != nil || len(args) == 0 {
			continue
		}
		if !sess.dispatch(args) {
			return
		}
	}
}

// dispatch runs one command and reports whether the REPL should keep
// reading (false on "quit"/"exit").
func (s *session) dispatch(args []string) bool {
	switch args[0] {
	case "show":
		fmt.Print(render.Render(s.current))
	case "value":
		v, ok := s.lookup(s.current)
		if !ok {
			fmt.Println("position not found in solved table")
			return true
		}
		fmt.Printf("%.6f\n", v)
	case "roll":
		if len(args) != 2 {
			fmt.Println("usage: roll <0-4>")
			return true
		}
		d, err := strconv.Atoi(args[1])
		if err != nil || d < 0 || d > 4 {
			fmt.Println("roll must be 0..4")
			return true
		}
		s.printOutcomes(d)
	case "goto":
		if len(args) != 2 {
			fmt.Println("usage: goto <successor-index>, after roll")
			return true
		}
		idx, err := strconv.Atoi(args[1])
		if err != nil {
			fmt.Println("invalid index")
			return true
		}
		s.goTo(idx)
	case "reset":
		s.current = game.New()
		s.lastRoll = nil
	case "quit", "exit":
		return false
	default:
		fmt.Println("commands: show, value, roll <d>, goto <index>, reset, quit")
	}
	return true
}

func (s *session) printOutcomes(d int) {
	s.lastRoll = game.PossibleMoves(s.current, game.Roll{Delta: d})
	for i, o := range s.lastRoll {
		if o.Kind == game.MoveEnd {
			fmt.Printf("[%d] win\n", i)
			continue
		}
		status := "not found"
		if v, ok := s.lookup(o.Next); ok {
			if o.TurnPassed {
				v = 1 - v
			}
			status = fmt.Sprintf("%.6f", v)
		}
		fmt.Printf("[%d] %s\n", i, status)
	}
}

func (s *session) goTo(idx int) {
	if idx < 0 || idx >= len(s.lastRoll) {
		fmt.Println("roll first, then pick a printed index")
		return
	}
	o := s.lastRoll[idx]
	if o.Kind == game.MoveEnd {
		fmt.Println("that move wins; resetting to a fresh game")
		s.current = game.New()
	} else {
		s.current = o.Next
	}
	s.lastRoll = nil
}
