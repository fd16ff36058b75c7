package lifecycle

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

type recordingEmitter struct {
	mu     sync.Mutex
	events [][2]State
}

func (e *recordingEmitter) OnStateChange(previous, current State, reason string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, [2]State{previous, current})
}

func TestTransitions(t *testing.T) {
	tests := []struct {
		name    string
		path    []State
		next    State
		wantErr error
	}{
		{name: "start", path: nil, next: StateStarting},
		{name: "stopped to running", path: nil, next: StateRunning, wantErr: ErrNotRunning},
		{name: "run", path: []State{StateStarting}, next: StateRunning},
		{name: "start twice", path: []State{StateStarting, StateRunning}, next: StateStarting, wantErr: ErrAlreadyRunning},
		{name: "stop", path: []State{StateStarting, StateRunning, StateStopping}, next: StateStopped},
		{name: "crash while starting", path: []State{StateStarting}, next: StateCrashed},
		{name: "restart after crash", path: []State{StateStarting, StateCrashed}, next: StateStarting},
		{name: "crashed to running", path: []State{StateStarting, StateCrashed}, next: StateRunning, wantErr: ErrNotRunning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager(nil, nil)
			for _, s := range tt.path {
				if err := m.TransitionTo(s, "setup"); err != nil {
					t.Fatalf("setup transition to %s: %v", s, err)
				}
			}

			err := m.TransitionTo(tt.next, "test")
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("TransitionTo(%s) error = %v", tt.next, err)
				}
				if m.State() != tt.next {
					t.Errorf("State() = %s, want %s", m.State(), tt.next)
				}
				return
			}

			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("TransitionTo(%s) error = %v, want %v", tt.next, err, tt.wantErr)
			}
			var te *TransitionError
			if !errors.As(err, &te) || te.To != tt.next {
				t.Errorf("error = %#v, want *TransitionError to %s", err, tt.next)
			}
		})
	}
}

func TestManager_EmitsEvents(t *testing.T) {
	emitter := &recordingEmitter{}
	m := NewManager(nil, emitter)

	before := m.Since()
	time.Sleep(time.Millisecond)
	_ = m.TransitionTo(StateStarting, "start")
	_ = m.TransitionTo(StateRunning, "ready")
	_ = m.TransitionTo(StateStarting, "invalid")

	if len(emitter.events) != 2 {
		t.Fatalf("events = %d, want 2", len(emitter.events))
	}
	if emitter.events[1] != [2]State{StateStarting, StateRunning} {
		t.Errorf("events[1] = %v, want Starting->Running", emitter.events[1])
	}
	if !m.Since().After(before) {
		t.Error("Since() not advanced by transition")
	}
	if m.CanStart() || !m.CanStop() {
		t.Errorf("CanStart/CanStop = %v/%v, want false/true", m.CanStart(), m.CanStop())
	}
}

func TestManager_WaitWithTimeout(t *testing.T) {
	m := NewManager(nil, nil)

	release := make(chan struct{})
	m.Go(func() { <-release })

	if err := m.WaitWithTimeout(20 * time.Millisecond); !errors.Is(err, ErrShutdownTimeout) {
		t.Fatalf("WaitWithTimeout() error = %v, want ErrShutdownTimeout", err)
	}

	close(release)
	if err := m.WaitWithTimeout(time.Second); err != nil {
		t.Errorf("WaitWithTimeout() error = %v, want nil", err)
	}
}

func TestState_MarshalText(t *testing.T) {
	b, err := json.Marshal(map[string]State{"state": StateRunning})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"state":"running"}` {
		t.Errorf("json = %s, want {\"state\":\"running\"}", b)
	}
	if _, err := State(42).MarshalText(); err == nil {
		t.Error("MarshalText(42) error = nil, want error")
	}
	if State(42).String() != "Unknown" {
		t.Errorf("String() = %s, want Unknown", State(42).String())
	}
}
