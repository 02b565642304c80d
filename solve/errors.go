// Package solve implements the layer driver and the CPU/GPU evaluators
// that iterate each layer to its fixed point, per spec.md §4.6-§4.8.
package solve

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/bluebear94/ursolve/key"
)

// Kind tags the category of a solve Error, mirroring the teacher's
// sentinel-error style in endgame/negamax/solver.go but extended to a
// struct since several kinds carry a structured diagnostic payload.
type Kind uint8

const (
	// EncodingOverflow: the reachable state count exceeds the 29-bit
	// variable-index space the expression stream can address.
	EncodingOverflow Kind = iota
	// InvariantViolation: a state failed a structural invariant check
	// (e.g. an encode/decode round-trip mismatch, a score out of range).
	InvariantViolation
	// DivergentLayer: a layer's iteration did not reach ε within the
	// configured max-iterations cap.
	DivergentLayer
	// PersistenceError: reading or writing a cache file failed in a way
	// retry-go's retry policy could not recover from.
	PersistenceError
	// NotFound: a requested cache file does not exist. Soft by default;
	// callers that want a hard failure should check Kind explicitly.
	NotFound
)

func (k Kind) String() string {
	switch k {
	case EncodingOverflow:
		return "EncodingOverflow"
	case InvariantViolation:
		return "InvariantViolation"
	case DivergentLayer:
		return "DivergentLayer"
	case PersistenceError:
		return "PersistenceError"
	case NotFound:
		return "NotFound"
	default:
		return "Unknown"
	}
}

// Error is the solver's single error type. Diagnostic carries whatever
// structured payload is relevant to Kind (a layer descriptor, a state
// dump, iteration counts); it is marshaled to YAML in Error() the way
// the teacher's preendgame package dumps per-thread diagnostics.
type Error struct {
	Kind       Kind
	Message    string
	Diagnostic interface{}
	Cause      error
}

func (e *Error) Error() string {
	if e.Diagnostic == nil {
		if e.Cause != nil {
			return fmt.Sprintf("solve: %s: %s: %v", e.Kind, e.Message, e.Cause)
		}
		return fmt.Sprintf("solve: %s: %s", e.Kind, e.Message)
	}
	dump, err := yaml.Marshal(e.Diagnostic)
	if err != nil {
		dump = []byte(fmt.Sprintf("<diagnostic marshal failed: %v>", err))
	}
	return fmt.Sprintf("solve: %s: %s\n%s", e.Kind, e.Message, string(dump))
}

func (e *Error) Unwrap() error { return e.Cause }

// LayerDiagnostic is the YAML payload attached to a DivergentLayer
// error: enough to reproduce and inspect the stuck layer by hand.
type LayerDiagnostic struct {
	LayerIndex  int     `yaml:"layer_index"`
	Start       int     `yaml:"range_start"`
	End         int     `yaml:"range_end"`
	Iterations  int     `yaml:"iterations"`
	FinalDelta  float64 `yaml:"final_delta"`
	Epsilon     float64 `yaml:"epsilon"`
}

// StateDiagnostic is the YAML payload attached to an InvariantViolation
// error, naming the offending state.
type StateDiagnostic struct {
	Compact key.Compact `yaml:"compact_key"`
	Reason  string      `yaml:"reason"`
}

// NewEncodingOverflow builds an EncodingOverflow Error.
func NewEncodingOverflow(count int, limit int) *Error {
	return &Error{
		Kind:    EncodingOverflow,
		Message: fmt.Sprintf("%d reachable states exceeds the %d-state limit", count, limit),
	}
}

// NewInvariantViolation builds an InvariantViolation Error with a state
// diagnostic attached.
func NewInvariantViolation(k key.Compact, reason string) *Error {
	return &Error{
		Kind:       InvariantViolation,
		Message:    "state invariant violated",
		Diagnostic: StateDiagnostic{Compact: k, Reason: reason},
	}
}

// NewDivergentLayer builds a DivergentLayer Error with a layer
// diagnostic attached.
func NewDivergentLayer(layerIndex, start, end, iterations int, finalDelta, epsilon float64) *Error {
	return &Error{
		Kind:    DivergentLayer,
		Message: "layer failed to converge within the iteration cap",
		Diagnostic: LayerDiagnostic{
			LayerIndex: layerIndex, Start: start, End: end,
			Iterations: iterations, FinalDelta: finalDelta, Epsilon: epsilon,
		},
	}
}

// NewPersistenceError wraps a lower-level I/O error.
func NewPersistenceError(message string, cause error) *Error {
	return &Error{Kind: PersistenceError, Message: message, Cause: cause}
}

// NewNotFound builds a soft NotFound Error for a missing cache file.
func NewNotFound(path string) *Error {
	return &Error{Kind: NotFound, Message: fmt.Sprintf("no cache file at %s", path)}
}
