// Package chunk splits brand guideline documents into retrievable units
// ahead of indexing. Structured documents split on heading boundaries;
// unstructured text falls back to fixed-size word windows with a small
// overlap so context spanning a window edge survives the split.
package chunk

import "strings"

// MinChars is the noise threshold: chunks at or below this length are
// discarded.
const MinChars = 20

// DefaultWindowWords and DefaultOverlapWords size the fallback windows.
const (
	DefaultWindowWords  = 512
	DefaultOverlapWords = 50
)

// defaultMarkers are the heading prefixes that open a new section.
// Longer markers first so "##" isn't consumed as "#".
var defaultMarkers = []string{"##", "#"}

// BySection splits text at heading markers. Blank lines also close a
// section once it holds more than one line. Chunks of MinChars or fewer
// characters are dropped as noise.
func BySection(text string, markers []string) []string {
	if markers == nil {
		markers = defaultMarkers
	}

	var chunks []string
	var current []string

	flush := func() {
		if len(current) > 0 {
			chunks = append(chunks, strings.Join(current, "\n"))
			current = nil
		}
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)

		isHeader := false
		for _, m := range markers {
			if strings.HasPrefix(line, m) {
				isHeader = true
				break
			}
		}

		switch {
		case isHeader && len(current) > 0:
			flush()
			current = []string{line}
		case line != "":
			current = append(current, line)
		case len(current) > 1:
			flush()
		}
	}
	flush()

	out := chunks[:0]
	for _, c := range chunks {
		if len(strings.TrimSpace(c)) > MinChars {
			out = append(out, c)
		}
	}
	return out
}

// ByWordWindow splits text into windows of at most size words, stepping
// size-overlap words each time. Used when no structural markers exist.
func ByWordWindow(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultWindowWords
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultOverlapWords
		if overlap >= size {
			overlap = size / 4
		}
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	step := size - overlap
	var chunks []string
	for start := 0; start < len(words); start += step {
		end := start + size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}
	return chunks
}

// Document chunks a whole document: section splitting when any heading
// marker is present, word windows otherwise.
func Document(text string, windowWords, overlapWords int) []string {
	if strings.Contains(text, "#") {
		if chunks := BySection(text, nil); len(chunks) > 0 {
			return chunks
		}
	}

	var out []string
	for _, c := range ByWordWindow(text, windowWords, overlapWords) {
		if len(strings.TrimSpace(c)) > MinChars {
			out = append(out, c)
		}
	}
	return out
}
