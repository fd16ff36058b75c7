package vocab

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var (
	// ErrEmpty is returned when a vocabulary source lists no labels.
	ErrEmpty = errors.New("vocabulary is empty")

	// ErrDuplicate is returned when a label appears more than once.
	ErrDuplicate = errors.New("duplicate label")

	// ErrMissingToken is returned by Validate when a required token is absent.
	ErrMissingToken = errors.New("required token missing from vocabulary")
)

// Vocabulary is an ordered, immutable set of labels.
type Vocabulary struct {
	labels []string
	index  map[string]int
}

// New builds a vocabulary from labels in class order.
func New(labels []string) (*Vocabulary, error) {
	v := &Vocabulary{
		labels: make([]string, 0, len(labels)),
		index:  make(map[string]int, len(labels)),
	}
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		if _, ok := v.index[l]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicate, l)
		}
		v.index[l] = len(v.labels)
		v.labels = append(v.labels, l)
	}
	if len(v.labels) == 0 {
		return nil, ErrEmpty
	}
	return v, nil
}

// Default returns the 28-class alphabet vocabulary: A through Z, del and
// nothing.
func Default() *Vocabulary {
	labels := make([]string, 0, 28)
	for c := 'A'; c <= 'Z'; c++ {
		labels = append(labels, string(c))
	}
	labels = append(labels, "del", "nothing")
	v, _ := New(labels)
	return v
}

// Load reads a vocabulary file.
func Load(path string) (*Vocabulary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open vocabulary file: %w", err)
	}
	defer f.Close()

	v, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load vocabulary %s: %w", path, err)
	}
	return v, nil
}

// Read parses a vocabulary from r.
func Read(r io.Reader) (*Vocabulary, error) {
	var labels []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		labels = append(labels, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return New(labels)
}

// Contains reports whether label is in the vocabulary.
func (v *Vocabulary) Contains(label string) bool {
	_, ok := v.index[label]
	return ok
}

// Index returns the class index of label, or -1.
func (v *Vocabulary) Index(label string) int {
	if i, ok := v.index[label]; ok {
		return i
	}
	return -1
}

// Labels returns a copy of the labels in class order.
func (v *Vocabulary) Labels() []string {
	out := make([]string, len(v.labels))
	copy(out, v.labels)
	return out
}

// Size returns the number of labels.
func (v *Vocabulary) Size() int {
	return len(v.labels)
}

// Validate checks that every token is a member of the vocabulary.
func (v *Vocabulary) Validate(tokens ...string) error {
	for _, t := range tokens {
		if !v.Contains(t) {
			return fmt.Errorf("%w: %q", ErrMissingToken, t)
		}
	}
	return nil
}
