package signtype

import (
	"time"

	"github.com/bft-labs/signtype/pkg/lifecycle"
	"github.com/bft-labs/signtype/pkg/session"
)

// State is the lifecycle state of a Server.
type State = lifecycle.State

// Lifecycle states.
const (
	StateStopped  = lifecycle.StateStopped
	StateStarting = lifecycle.StateStarting
	StateRunning  = lifecycle.StateRunning
	StateStopping = lifecycle.StateStopping
	StateCrashed  = lifecycle.StateCrashed
)

// StateChangeEvent is emitted on every lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// SessionEvent is emitted when a connection opens or closes its session.
type SessionEvent struct {
	SessionID string
	At        time.Time

	// Err is set on close when the connection ended abnormally.
	Err error
}

// CommitEvent is emitted for every accept and delete.
type CommitEvent = session.Commit

// EventHandler receives server notifications. Session and commit events are
// delivered synchronously from the connection loop that produced them, so
// implementations must return quickly and be safe for concurrent use.
type EventHandler interface {
	OnStateChange(event StateChangeEvent)
	OnSessionOpened(event SessionEvent)
	OnSessionClosed(event SessionEvent)
	OnCommit(event CommitEvent)
}

// BaseEventHandler implements EventHandler with no-ops. Embed it to handle a
// subset of events.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent) {}
func (BaseEventHandler) OnSessionOpened(SessionEvent)   {}
func (BaseEventHandler) OnSessionClosed(SessionEvent)   {}
func (BaseEventHandler) OnCommit(CommitEvent)           {}
