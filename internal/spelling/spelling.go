// Package spelling checks committed text against a word list and suggests the
// closest known word.
package spelling

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// defaultWords is the built-in dictionary.
var defaultWords = []string{
	"CAT", "DOG", "BIRD", "FISH", "BEAR", "LION", "TREE", "BOOK", "BALL", "STAR",
	"SUN", "MOON", "RAIN", "SNOW", "HAND", "FOOT", "HEAD", "EYE", "EAR", "NOSE",
	"APPLE", "BANANA", "ORANGE", "GRAPE", "WATER", "MILK", "BREAD", "CAKE",
	"HELLO", "GOODBYE", "PLEASE", "THANKS", "SORRY", "HAPPY", "SAD", "LOVE",
	"MOM", "DAD", "BABY", "FRIEND", "SCHOOL", "HOME", "PLAY", "EAT", "DRINK", "SLEEP",
}

// Result is the outcome of a spelling check.
type Result struct {
	Word       string
	Correct    bool
	Suggestion string
}

// Dictionary is an immutable word list. Words are compared upper-cased.
type Dictionary struct {
	words []string
	set   map[string]struct{}
}

// NewDictionary builds a dictionary from words. Blank entries are skipped and
// duplicates collapse.
func NewDictionary(words []string) *Dictionary {
	d := &Dictionary{set: make(map[string]struct{}, len(words))}
	for _, w := range words {
		w = strings.ToUpper(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		if _, ok := d.set[w]; ok {
			continue
		}
		d.set[w] = struct{}{}
		d.words = append(d.words, w)
	}
	return d
}

// Default returns the built-in dictionary.
func Default() *Dictionary {
	return NewDictionary(defaultWords)
}

// Load reads a dictionary file with one word per line. Lines starting with
// '#' are ignored.
func Load(path string) (*Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dictionary: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read parses a dictionary from r.
func Read(r io.Reader) (*Dictionary, error) {
	var words []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read dictionary: %w", err)
	}
	return NewDictionary(words), nil
}

// Size returns the number of words.
func (d *Dictionary) Size() int {
	return len(d.words)
}

// Contains reports whether word is in the dictionary.
func (d *Dictionary) Contains(word string) bool {
	_, ok := d.set[strings.ToUpper(word)]
	return ok
}

// Check reports whether word is spelled correctly and, if not, the closest
// dictionary word. An empty word is never correct and has no suggestion.
func (d *Dictionary) Check(word string) Result {
	word = strings.ToUpper(strings.TrimSpace(word))
	res := Result{Word: word}
	if word == "" {
		return res
	}
	if d.Contains(word) {
		res.Correct = true
		return res
	}
	res.Suggestion = d.Closest(word)
	return res
}

// Closest returns the dictionary word with the smallest edit distance to
// word. Ties go to the word listed first.
func (d *Dictionary) Closest(word string) string {
	word = strings.ToUpper(word)
	best, bestDist := "", -1
	for _, w := range d.words {
		dist := Distance(word, w)
		if bestDist < 0 || dist < bestDist {
			best, bestDist = w, dist
		}
	}
	return best
}

// Distance returns the Levenshtein distance between a and b, counted in runes.
func Distance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			if ra[i-1] == rb[j-1] {
				cur[j] = prev[j-1]
				continue
			}
			cur[j] = 1 + min(prev[j], cur[j-1], prev[j-1])
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}
