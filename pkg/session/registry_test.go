package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/bft-labs/signtype/pkg/log"
)

// recordingLogger captures error messages for assertions.
type recordingLogger struct {
	log.NoopLogger
	mu     sync.Mutex
	errors []string
}

func (l *recordingLogger) Error(msg string, fields ...log.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

func TestRegistry_CreateGetRemove(t *testing.T) {
	r := NewRegistry(testConfig(), nil)

	s := r.Create("conn-1")
	if s == nil {
		t.Fatal("Create returned nil")
	}
	got, ok := r.Get("conn-1")
	if !ok || got != s {
		t.Fatalf("Get(conn-1) = (%p, %v), want (%p, true)", got, ok, s)
	}

	r.Remove("conn-1")
	if _, ok := r.Get("conn-1"); ok {
		t.Error("Get after Remove found session")
	}

	// Removing twice, or removing an unknown id, is a no-op.
	r.Remove("conn-1")
	r.Remove("never-created")
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
}

func TestRegistry_DuplicateReplacesAndLogs(t *testing.T) {
	logger := &recordingLogger{}
	r := NewRegistry(testConfig(), logger)

	first := r.Create("dup")
	first.Ingest("A")
	second := r.Create("dup")

	if first == second {
		t.Fatal("duplicate Create returned the stale session")
	}
	got, _ := r.Get("dup")
	if got != second {
		t.Error("registry still holds the stale session")
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
	logger.mu.Lock()
	defer logger.mu.Unlock()
	if len(logger.errors) != 1 {
		t.Errorf("logged %d errors, want 1", len(logger.errors))
	}
}

func TestRegistry_ConcurrentCreate(t *testing.T) {
	r := NewRegistry(testConfig(), nil)

	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("conn-%d", i)
			s := r.Create(id)
			// Each goroutine drives its own session only.
			for j := 0; j <= i%5; j++ {
				s.Ingest(fmt.Sprintf("L%d", i))
			}
		}(i)
	}
	wg.Wait()

	if r.Len() != n {
		t.Fatalf("Len() = %d, want %d", r.Len(), n)
	}
	for i := 0; i < n; i++ {
		s, ok := r.Get(fmt.Sprintf("conn-%d", i))
		if !ok {
			t.Fatalf("conn-%d not reachable", i)
		}
		if got, want := s.WindowLen(), i%5+1; got != want {
			t.Errorf("conn-%d WindowLen() = %d, want %d", i, got, want)
		}
		label, count := s.window.Majority()
		if label != fmt.Sprintf("L%d", i) || count != i%5+1 {
			t.Errorf("conn-%d majority = (%s, %d), cross-contaminated", i, label, count)
		}
	}
}

func TestRegistry_ConcurrentChurn(t *testing.T) {
	r := NewRegistry(testConfig(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("churn-%d", i)
			for j := 0; j < 20; j++ {
				r.Create(id)
				r.Get(id)
				r.Remove(id)
			}
		}(i)
	}
	wg.Wait()

	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
}
