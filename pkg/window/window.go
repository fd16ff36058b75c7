package window

// Window is a fixed-capacity ring of labels. The zero value is not usable;
// construct with New. A Window is not safe for concurrent use.
type Window struct {
	buf   []string
	head  int // index of the oldest entry
	count int
}

// New creates a window holding at most capacity labels. Capacities below one
// are clamped to one.
func New(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{buf: make([]string, capacity)}
}

// Push appends label, evicting the oldest entry when the window is full.
func (w *Window) Push(label string) {
	if w.count < len(w.buf) {
		w.buf[(w.head+w.count)%len(w.buf)] = label
		w.count++
		return
	}
	w.buf[w.head] = label
	w.head = (w.head + 1) % len(w.buf)
}

// Len returns the number of labels currently held.
func (w *Window) Len() int {
	return w.count
}

// Cap returns the window capacity.
func (w *Window) Cap() int {
	return len(w.buf)
}

// Full reports whether the window holds Cap labels.
func (w *Window) Full() bool {
	return w.count == len(w.buf)
}

// Reset empties the window.
func (w *Window) Reset() {
	for i := range w.buf {
		w.buf[i] = ""
	}
	w.head = 0
	w.count = 0
}

// Labels returns a copy of the window contents ordered oldest to newest.
func (w *Window) Labels() []string {
	out := make([]string, w.count)
	for i := 0; i < w.count; i++ {
		out[i] = w.at(i)
	}
	return out
}

// Majority returns the most frequent label and its count. An empty window
// returns ("", 0). Ties resolve to the most recently pushed label.
func (w *Window) Majority() (string, int) {
	if w.count == 0 {
		return "", 0
	}

	counts := make(map[string]int, w.count)
	best := 0
	for i := 0; i < w.count; i++ {
		label := w.at(i)
		counts[label]++
		if counts[label] > best {
			best = counts[label]
		}
	}

	// Newest first: the first label reaching the maximum wins the tie.
	for i := w.count - 1; i >= 0; i-- {
		label := w.at(i)
		if counts[label] == best {
			return label, best
		}
	}
	return "", 0
}

// MajorityOr behaves like Majority but reports fallback with a zero count when
// the window is empty.
func (w *Window) MajorityOr(fallback string) (string, int) {
	if w.count == 0 {
		return fallback, 0
	}
	return w.Majority()
}

// at returns the i-th label counted from the oldest.
func (w *Window) at(i int) string {
	return w.buf[(w.head+i)%len(w.buf)]
}
