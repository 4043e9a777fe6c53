package ctfidf

import (
	"math"
	"sort"
)

// Transform applies the class TF-IDF weighting to a count matrix whose rows
// are cluster pseudo-documents. Term frequency is L1-normalized per class
// and square-root dampened; the inverse document frequency uses the
// BM25-style form log(1 + (avg - df + 0.5) / (df + 0.5)), where avg is the
// average class size and df the term's total frequency across classes. This
// down-weights terms frequent in many clusters.
func Transform(counts [][]float64) [][]float64 {
	nClasses := len(counts)
	if nClasses == 0 {
		return nil
	}
	nTerms := len(counts[0])

	classSizes := make([]float64, nClasses)
	var totalSize float64
	for i, row := range counts {
		for _, c := range row {
			classSizes[i] += c
		}
		totalSize += classSizes[i]
	}
	avgClassSize := totalSize / float64(nClasses)

	df := make([]float64, nTerms)
	for _, row := range counts {
		for j, c := range row {
			df[j] += c
		}
	}

	idf := make([]float64, nTerms)
	for j := range idf {
		idf[j] = math.Log1p((avgClassSize - df[j] + 0.5) / (df[j] + 0.5))
	}

	scores := make([][]float64, nClasses)
	for i, row := range counts {
		scoreRow := make([]float64, nTerms)
		if classSizes[i] > 0 {
			for j, c := range row {
				tf := math.Sqrt(c / classSizes[i])
				scoreRow[j] = tf * idf[j]
			}
		}
		scores[i] = scoreRow
	}

	return scores
}

// TermScore is one scored vocabulary term.
type TermScore struct {
	Term  string
	Score float64
}

// TopTerms returns the k highest-scoring terms of a row in descending score
// order. Ties keep vocabulary order, so extraction is deterministic.
func TopTerms(row []float64, vocab []string, k int) []TermScore {
	scored := make([]TermScore, 0, len(vocab))
	for j, term := range vocab {
		if row[j] > 0 {
			scored = append(scored, TermScore{Term: term, Score: row[j]})
		}
	}
	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].Score > scored[b].Score
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored
}
