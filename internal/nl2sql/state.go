/*-------------------------------------------------------------------------
 *
 * pgEdge NL2SQL - Correction Loop States
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package nl2sql

import "fmt"

// State is a position in the generate/execute/correct cycle of a question
type State int

const (
	StateStart State = iota
	StateGenerated
	StateExtracted
	StateExecuted
	StateCorrected
	StateReExecuted
	StateDone
)

var stateNames = map[State]string{
	StateStart:      "start",
	StateGenerated:  "generated",
	StateExtracted:  "extracted",
	StateExecuted:   "executed",
	StateCorrected:  "corrected",
	StateReExecuted: "re-executed",
	StateDone:       "done",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Kind classifies why a question failed
type Kind int

const (
	KindNone Kind = iota
	KindExtraction
	KindExecution
	KindModelService
	// KindPrompt is a local failure to render a prompt
	KindPrompt
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindExtraction:
		return "extraction"
	case KindExecution:
		return "execution"
	case KindModelService:
		return "model service"
	case KindPrompt:
		return "prompt"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is a failure for a single question. It never aborts the session.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Msg != "" {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}
