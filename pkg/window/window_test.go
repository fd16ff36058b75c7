package window

import (
	"reflect"
	"testing"
)

func TestNew_ClampsCapacity(t *testing.T) {
	tests := []struct {
		capacity int
		want     int
	}{
		{capacity: -3, want: 1},
		{capacity: 0, want: 1},
		{capacity: 1, want: 1},
		{capacity: 8, want: 8},
	}

	for _, tt := range tests {
		if got := New(tt.capacity).Cap(); got != tt.want {
			t.Errorf("New(%d).Cap() = %d, want %d", tt.capacity, got, tt.want)
		}
	}
}

func TestWindow_PushEvictsOldest(t *testing.T) {
	w := New(3)
	for _, l := range []string{"A", "B", "C", "D", "E"} {
		w.Push(l)
		if w.Len() > w.Cap() {
			t.Fatalf("Len() = %d exceeds Cap() = %d", w.Len(), w.Cap())
		}
	}

	if got, want := w.Labels(), []string{"C", "D", "E"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Labels() = %v, want %v", got, want)
	}
	if !w.Full() {
		t.Error("Full() = false, want true")
	}
}

func TestWindow_MajorityEmpty(t *testing.T) {
	w := New(4)

	label, count := w.Majority()
	if label != "" || count != 0 {
		t.Errorf("Majority() = (%q, %d), want (\"\", 0)", label, count)
	}

	label, count = w.MajorityOr("nothing")
	if label != "nothing" || count != 0 {
		t.Errorf("MajorityOr() = (%q, %d), want (nothing, 0)", label, count)
	}
}

func TestWindow_Majority(t *testing.T) {
	tests := []struct {
		name      string
		capacity  int
		pushes    []string
		wantLabel string
		wantCount int
	}{
		{
			name:      "single label",
			capacity:  8,
			pushes:    []string{"A"},
			wantLabel: "A",
			wantCount: 1,
		},
		{
			name:      "unanimous full window",
			capacity:  4,
			pushes:    []string{"B", "B", "B", "B"},
			wantLabel: "B",
			wantCount: 4,
		},
		{
			name:      "plurality",
			capacity:  5,
			pushes:    []string{"A", "B", "A", "C", "A"},
			wantLabel: "A",
			wantCount: 3,
		},
		{
			name:      "tie resolves to most recent",
			capacity:  4,
			pushes:    []string{"A", "B", "A", "B"},
			wantLabel: "B",
			wantCount: 2,
		},
		{
			name:      "tie resolves to most recent regardless of first appearance",
			capacity:  4,
			pushes:    []string{"B", "A", "B", "A"},
			wantLabel: "A",
			wantCount: 2,
		},
		{
			name:      "evicted labels do not count",
			capacity:  3,
			pushes:    []string{"A", "A", "A", "B", "B"},
			wantLabel: "B",
			wantCount: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := New(tt.capacity)
			for _, l := range tt.pushes {
				w.Push(l)
			}
			label, count := w.Majority()
			if label != tt.wantLabel || count != tt.wantCount {
				t.Errorf("Majority() = (%q, %d), want (%q, %d)", label, count, tt.wantLabel, tt.wantCount)
			}
		})
	}
}

func TestWindow_Reset(t *testing.T) {
	w := New(3)
	w.Push("A")
	w.Push("B")
	w.Reset()

	if w.Len() != 0 {
		t.Errorf("Len() after Reset = %d, want 0", w.Len())
	}
	w.Push("C")
	if got := w.Labels(); !reflect.DeepEqual(got, []string{"C"}) {
		t.Errorf("Labels() after Reset+Push = %v, want [C]", got)
	}
}
