// Package persist reads and writes the solver's cache files: the
// sorted state order and the per-layer value vectors, each framed as a
// varint element count followed by that many fixed-width little-endian
// words, via google.golang.org/protobuf/encoding/protowire. This gives
// round-trip byte-identical framing without a generated .proto schema.
package persist

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/avast/retry-go"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/bluebear94/ursolve/key"
)

// ErrNotFound is returned when a requested cache file does not exist.
// It is a soft signal: callers fall through to "enumerate and solve"
// rather than treating it as a hard failure (spec.md §6, §4.6).
var ErrNotFound = fmt.Errorf("persist: cache file not found")

// OrderPath returns the path of the state-order cache file for a given
// GOAL_SCORE.
func OrderPath(dataDir string, goalScore int) string {
	return filepath.Join(dataDir, fmt.Sprintf("order_%d.bin", goalScore))
}

// ValsPath returns the path of the value-table cache file for a given
// GOAL_SCORE and layer index k.
func ValsPath(dataDir string, goalScore, k int) string {
	return filepath.Join(dataDir, fmt.Sprintf("vals_%d_%d.bin", goalScore, k))
}

// LatestValsPath finds the highest-numbered vals_<goalScore>_<k>.bin
// file present in dataDir, for the driver's resume-from-cache path
// (spec.md §6). ok is false if none exist.
func LatestValsPath(dataDir string, goalScore int) (path string, ok bool) {
	prefix := fmt.Sprintf("vals_%d_", goalScore)
	matches, err := filepath.Glob(filepath.Join(dataDir, prefix+"*.bin"))
	if err != nil {
		return "", false
	}
	best := -1
	for _, m := range matches {
		var k int
		if _, err := fmt.Sscanf(filepath.Base(m), prefix+"%d.bin", &k); err != nil {
			continue
		}
		if k > best {
			best = k
			path = m
		}
	}
	return path, best >= 0
}

// readWithRetry reads path whole. A missing file is reported as
// ErrNotFound immediately, without retry — that is the soft
// read-or-create signal. Any other error (a present-but-transiently-
// locked file, most often) is retried a few times via avast/retry-go
// before being surfaced, per original_source/src/save.rs's
// read_or_create distinction between "absent" and "present but
// unreadable".
func readWithRetry(path string) ([]byte, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	var buf []byte
	err := retry.Do(func() error {
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		buf = b
		return nil
	}, retry.Attempts(3), retry.Delay(20*time.Millisecond))
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// WriteOrder writes a sorted state vector as a varint count followed by
// that many Fixed32 words.
func WriteOrder(path string, states []key.Compact) error {
	buf := protowire.AppendVarint(nil, uint64(len(states)))
	for _, s := range states {
		buf = protowire.AppendFixed32(buf, uint32(s))
	}
	return os.WriteFile(path, buf, 0o644)
}

// ReadOrder reads a state vector written by WriteOrder. It returns
// ErrNotFound if path does not exist, and retries a few times
// on other transient I/O errors via avast/retry-go before giving up,
// matching original_source/src/save.rs's read_or_create distinction
// between "absent" (soft) and "present but unreadable" (retry, then
// hard fail).
func ReadOrder(path string) ([]key.Compact, error) {
	buf, err := readWithRetry(path)
	if err != nil {
		return nil, err
	}

	count, n := protowire.ConsumeVarint(buf)
	if n < 0 {
		return nil, fmt.Errorf("persist: corrupt order file %s: bad count", path)
	}
	buf = buf[n:]
	states := make([]key.Compact, 0, count)
	for i := uint64(0); i < count; i++ {
		v, n := protowire.ConsumeFixed32(buf)
		if n < 0 {
			return nil, fmt.Errorf("persist: corrupt order file %s: truncated at element %d", path, i)
		}
		states = append(states, key.Compact(v))
		buf = buf[n:]
	}
	return states, nil
}

// WriteVals writes a value vector as a varint count followed by that
// many Fixed64 words (f64 bit patterns).
func WriteVals(path string, vals []float64) error {
	buf := protowire.AppendVarint(nil, uint64(len(vals)))
	for _, v := range vals {
		buf = protowire.AppendFixed64(buf, math.Float64bits(v))
	}
	return os.WriteFile(path, buf, 0o644)
}

// ReadVals reads a value vector written by WriteVals, with the same
// ErrNotFound/retry semantics as ReadOrder.
func ReadVals(path string) ([]float64, error) {
	buf, err := readWithRetry(path)
	if err != nil {
		return nil, err
	}

	count, n := protowire.ConsumeVarint(buf)
	if n < 0 {
		return nil, fmt.Errorf("persist: corrupt vals file %s: bad count", path)
	}
	buf = buf[n:]
	vals := make([]float64, 0, count)
	for i := uint64(0); i < count; i++ {
		v, n := protowire.ConsumeFixed64(buf)
		if n < 0 {
			return nil, fmt.Errorf("persist: corrupt vals file %s: truncated at element %d", path, i)
		}
		vals = append(vals, math.Float64frombits(v))
		buf = buf[n:]
	}
	return vals, nil
}
