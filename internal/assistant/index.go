package assistant

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// Okapi BM25 parameters.
const (
	paramK1      = 1.2
	paramB       = 0.75
	paramEpsilon = 0.25
)

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

func tokenize(text string) []string {
	tokens := tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := tokens[:0]
	for _, t := range tokens {
		if len(t) >= 2 {
			out = append(out, t)
		}
	}
	return out
}

type passage struct {
	Source  string
	Content string
}

type hit struct {
	passage
	Score float64
}

// index is an immutable BM25 index over memory chunks.
type index struct {
	passages     []passage
	termFreqs    []map[string]int
	lengths      []int
	avgLength    float64
	inverseFreqs map[string]float64
}

func newIndex(passages []passage) *index {
	idx := &index{
		passages:     passages,
		termFreqs:    make([]map[string]int, len(passages)),
		lengths:      make([]int, len(passages)),
		inverseFreqs: make(map[string]float64),
	}

	docFreq := make(map[string]int)
	total := 0

	for i, p := range passages {
		tokens := tokenize(p.Content)
		idx.lengths[i] = len(tokens)
		total += len(tokens)

		tf := make(map[string]int)
		for _, tok := range tokens {
			if tf[tok] == 0 {
				docFreq[tok]++
			}
			tf[tok]++
		}
		idx.termFreqs[i] = tf
	}

	if len(passages) > 0 {
		idx.avgLength = float64(total) / float64(len(passages))
	}

	n := float64(len(passages))
	for term, df := range docFreq {
		idf := math.Log(1 + (n-float64(df)+0.5)/(float64(df)+0.5))
		if idf < 0 {
			idf = paramEpsilon
		}
		idx.inverseFreqs[term] = idf
	}
	return idx
}

// search returns up to limit passages scoring above minScore, best first.
func (idx *index) search(query string, limit int, minScore float64) []hit {
	terms := tokenize(query)
	if len(terms) == 0 || idx.avgLength == 0 {
		return nil
	}

	var hits []hit
	for i, p := range idx.passages {
		score := idx.score(i, terms)
		if score > 0 && score >= minScore {
			hits = append(hits, hit{passage: p, Score: score})
		}
	}

	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].Score > hits[b].Score
	})

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

func (idx *index) score(i int, terms []string) float64 {
	tf := idx.termFreqs[i]
	length := float64(idx.lengths[i])

	var score float64
	for _, term := range terms {
		idf, ok := idx.inverseFreqs[term]
		if !ok {
			continue
		}
		f := float64(tf[term])
		if f == 0 {
			continue
		}
		score += idf * (f * (paramK1 + 1)) / (f + paramK1*(1-paramB+paramB*length/idx.avgLength))
	}
	return score
}
