// Package policy decides whether the current stability window justifies a
// commit to the text buffer.
//
// Decide is a pure function. The caller reads the clock once per frame and
// passes the reading in.
package policy

import (
	"math"
	"time"
)

// Action is the outcome of a commit decision.
type Action int

const (
	NoOp Action = iota
	Accept
	Delete
)

// String returns a human-readable representation of the action.
func (a Action) String() string {
	switch a {
	case NoOp:
		return "noop"
	case Accept:
		return "accept"
	case Delete:
		return "delete"
	default:
		return "unknown"
	}
}

// Input carries the window state and timing needed for a decision.
type Input struct {
	// Label and Count are the window majority and its support.
	Label string
	Count int

	// Capacity is the window size N. A commit requires Count == Capacity.
	Capacity int

	Now        time.Time
	LastCommit time.Time
	Interval   time.Duration

	DeleteToken string
	IdleToken   string
}

// Decision is the result of Decide.
type Decision struct {
	Action Action

	// Label is the accepted label for Accept and empty otherwise.
	Label string

	// Remaining is the whole number of seconds, rounded up, before the
	// cooldown elapses. It is never negative.
	Remaining int
}

// Decide applies the commit rules to in.
func Decide(in Input) Decision {
	elapsed := in.Now.Sub(in.LastCommit)
	d := Decision{Action: NoOp, Remaining: RemainingSeconds(in.Interval, elapsed)}

	if in.Capacity <= 0 || in.Count != in.Capacity || elapsed < in.Interval {
		return d
	}

	switch in.Label {
	case in.DeleteToken:
		d.Action = Delete
	case in.IdleToken:
	default:
		d.Action = Accept
		d.Label = in.Label
	}
	return d
}

// RemainingSeconds returns ceil(interval - elapsed) in seconds, floored at 0.
func RemainingSeconds(interval, elapsed time.Duration) int {
	left := interval - elapsed
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Seconds()))
}
