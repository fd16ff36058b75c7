package lifecycle

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bft-labs/signtype/pkg/log"
)

// Common lifecycle errors.
var (
	ErrNotRunning      = errors.New("not running")
	ErrAlreadyRunning  = errors.New("already running")
	ErrShutdownTimeout = errors.New("shutdown timeout")
)

// ShutdownTimeout is the default maximum time to wait for graceful shutdown.
const ShutdownTimeout = 30 * time.Second

// TransitionError reports a rejected state transition. It unwraps to
// ErrNotRunning when leaving a stopped or crashed state was refused, and to
// ErrAlreadyRunning otherwise.
type TransitionError struct {
	From, To State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid lifecycle transition %s -> %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	if e.From == StateStopped || e.From == StateCrashed {
		return ErrNotRunning
	}
	return ErrAlreadyRunning
}

// DefaultManager implements Manager.
type DefaultManager struct {
	mu           sync.RWMutex
	state        State
	since        time.Time
	wg           sync.WaitGroup
	logger       log.Logger
	eventEmitter EventEmitter
	now          func() time.Time
}

// NewManager creates a lifecycle manager in the Stopped state. emitter may be
// nil.
func NewManager(logger log.Logger, emitter EventEmitter) *DefaultManager {
	m := &DefaultManager{
		state:        StateStopped,
		logger:       log.With(logger, log.String("component", "lifecycle")),
		eventEmitter: emitter,
		now:          time.Now,
	}
	m.since = m.now()
	return m
}

// State returns the current lifecycle state.
func (l *DefaultManager) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Since returns when the current state was entered.
func (l *DefaultManager) Since() time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.since
}

// TransitionTo moves the machine to newState.
func (l *DefaultManager) TransitionTo(newState State, reason string) error {
	l.mu.Lock()
	oldState := l.state
	if !CanTransition(oldState, newState) {
		l.mu.Unlock()
		return &TransitionError{From: oldState, To: newState}
	}
	l.state = newState
	l.since = l.now()
	l.mu.Unlock()

	// Emit outside the lock so handlers may query the manager.
	if l.eventEmitter != nil {
		l.eventEmitter.OnStateChange(oldState, newState, reason)
	}

	logFn := l.logger.Info
	if newState == StateCrashed {
		logFn = l.logger.Error
	}
	logFn("state transition",
		log.String("from", oldState.String()),
		log.String("to", newState.String()),
		log.String("reason", reason),
	)
	return nil
}

// CanStart returns true if Start() can be called.
func (l *DefaultManager) CanStart() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return CanTransition(l.state, StateStarting)
}

// CanStop returns true if Stop() can be called.
func (l *DefaultManager) CanStop() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == StateRunning
}

// Go runs fn in a goroutine tracked by WaitWithTimeout.
func (l *DefaultManager) Go(fn func()) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		fn()
	}()
}

// WaitWithTimeout waits for all workers started with Go to finish.
// Returns ErrShutdownTimeout if the timeout expires.
func (l *DefaultManager) WaitWithTimeout(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
		l.logger.Warn("shutdown timeout, abandoning workers",
			log.Duration("timeout", timeout),
		)
		return ErrShutdownTimeout
	}
}
