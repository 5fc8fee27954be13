package api

import (
	"errors"
	"fmt"
)

// Phase names used in PhaseError.
const (
	PhasePrep = "prep"
	PhaseExec = "exec"
	PhasePost = "post"
)

// ErrNoStartNode is returned by a flow whose start node was never configured.
var ErrNoStartNode = errors.New("grafo: flow has no start node")

// PhaseError reports a failure in one lifecycle phase of a node. Exec-phase
// errors are produced only after the node's retry policy is exhausted and its
// fallback (if any) has also failed; prep and post failures are never retried.
type PhaseError struct {
	Node  string
	Phase string
	Err   error
}

func (e *PhaseError) Error() string {
	if e.Node == "" {
		return fmt.Sprintf("grafo: %s phase failed: %v", e.Phase, e.Err)
	}
	return fmt.Sprintf("grafo: node %q %s phase failed: %v", e.Node, e.Phase, e.Err)
}

// Unwrap allows errors.Is and errors.As to reach the underlying cause.
func (e *PhaseError) Unwrap() error {
	return e.Err
}

func newPhaseError(node, phase string, err error) error {
	return &PhaseError{Node: node, Phase: phase, Err: err}
}

// IsPhaseError returns the PhaseError in err's chain, if any.
func IsPhaseError(err error) (*PhaseError, bool) {
	var pe *PhaseError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
