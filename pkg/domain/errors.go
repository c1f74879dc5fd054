package domain

import (
	"errors"
	"fmt"
)

// ErrFlowNotFound is returned when a flow ID does not key a loaded flow.
var ErrFlowNotFound = errors.New("flow not found")

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrNodeMismatch is returned when an answer targets a node other than the
// session's current node.
var ErrNodeMismatch = errors.New("node mismatch")

// ErrNoTransition is returned when none of a node's edges matches.
var ErrNoTransition = errors.New("no valid next node found")

// ErrInvalidFlow marks a flow definition that cannot be executed.
var ErrInvalidFlow = errors.New("invalid flow definition")

// NodeMismatchError carries the node the session expected and the node submitted.
type NodeMismatchError struct {
	SessionID string
	Expected  string
	Got       string
}

func (e *NodeMismatchError) Error() string {
	return fmt.Sprintf("node mismatch: session %s is at %q, answer submitted for %q", e.SessionID, e.Expected, e.Got)
}

func (e *NodeMismatchError) Is(target error) bool { return target == ErrNodeMismatch }

// NoTransitionError reports the node whose edges all failed to match.
type NoTransitionError struct {
	NodeID string
}

func (e *NoTransitionError) Error() string {
	return fmt.Sprintf("no valid next node found from %q", e.NodeID)
}

func (e *NoTransitionError) Is(target error) bool { return target == ErrNoTransition }
