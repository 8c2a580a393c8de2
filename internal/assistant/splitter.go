package assistant

import (
	"strings"
	"unicode/utf8"
)

const (
	DefaultChunkSize    = 1024
	DefaultChunkOverlap = 100
)

var defaultSeparators = []string{"\n\n", "\n", " ", ""}

// SplitText cuts text into chunks of at most size characters, preferring
// paragraph, then line, then word boundaries. Consecutive chunks share up to
// overlap characters.
func SplitText(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	return splitRecursive(text, size, overlap, defaultSeparators)
}

func splitRecursive(text string, size, overlap int, separators []string) []string {
	sep := ""
	var rest []string
	for i, s := range separators {
		if s == "" {
			break
		}
		if strings.Contains(text, s) {
			sep = s
			rest = separators[i+1:]
			break
		}
	}

	var splits []string
	if sep == "" {
		for _, r := range text {
			splits = append(splits, string(r))
		}
	} else {
		splits = strings.Split(text, sep)
	}

	var chunks []string
	var small []string
	for _, s := range splits {
		if utf8.RuneCountInString(s) < size {
			small = append(small, s)
			continue
		}
		if len(small) > 0 {
			chunks = append(chunks, merge(small, sep, size, overlap)...)
			small = nil
		}
		if rest == nil {
			chunks = append(chunks, s)
		} else {
			chunks = append(chunks, splitRecursive(s, size, overlap, rest)...)
		}
	}
	if len(small) > 0 {
		chunks = append(chunks, merge(small, sep, size, overlap)...)
	}
	return chunks
}

// merge packs splits into chunks no longer than size, carrying a tail of up
// to overlap characters into the next chunk.
func merge(splits []string, sep string, size, overlap int) []string {
	sepLen := utf8.RuneCountInString(sep)
	joinLen := func(n int) int {
		if n > 0 {
			return sepLen
		}
		return 0
	}

	var chunks []string
	var current []string
	total := 0

	for _, s := range splits {
		n := utf8.RuneCountInString(s)

		if total+n+joinLen(len(current)) > size && len(current) > 0 {
			if chunk := strings.TrimSpace(strings.Join(current, sep)); chunk != "" {
				chunks = append(chunks, chunk)
			}
			for total > overlap || (total+n+joinLen(len(current)) > size && total > 0) {
				total -= utf8.RuneCountInString(current[0]) + joinLen(len(current)-1)
				current = current[1:]
			}
		}

		current = append(current, s)
		total += n + joinLen(len(current)-1)
	}

	if chunk := strings.TrimSpace(strings.Join(current, sep)); chunk != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}
