// Package ctfidf implements class-based TF-IDF keyword extraction: each
// cluster's member documents are concatenated into one pseudo-document, a
// shared bag-of-words matrix is built over all pseudo-documents, and a
// BM25-weighted class TF-IDF transform scores every term per cluster.
package ctfidf

import (
	"sort"
	"strings"
	"unicode"
)

// EmptyDoc stands in for clusters with no members or content that
// preprocessing stripped entirely.
const EmptyDoc = "emptydoc"

// Preprocess normalizes a pseudo-document: newlines and tabs become spaces,
// everything outside letters, digits, German umlauts and spaces is removed.
// An empty result is replaced by EmptyDoc.
func Preprocess(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r == '\n' || r == '\t' || r == '\r':
			b.WriteRune(' ')
		case r == ' ':
			b.WriteRune(' ')
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case strings.ContainsRune("äöüÄÖÜß", r):
			b.WriteRune(r)
		}
	}
	cleaned := strings.TrimSpace(b.String())
	if cleaned == "" {
		return EmptyDoc
	}
	return cleaned
}

// CountVectorizer builds a shared-vocabulary bag-of-words matrix: unigrams,
// lowercased, English stopwords removed. All documents must be vectorized
// together so the column dimension is comparable across clusters.
type CountVectorizer struct {
	stopwords map[string]bool
}

func NewCountVectorizer() *CountVectorizer {
	return &CountVectorizer{stopwords: englishStopwords}
}

func (v *CountVectorizer) tokenize(doc string) []string {
	fields := strings.FieldsFunc(strings.ToLower(doc), func(r rune) bool {
		return unicode.IsSpace(r)
	})
	tokens := make([]string, 0, len(fields))
	for _, token := range fields {
		if token == "" || v.stopwords[token] {
			continue
		}
		tokens = append(tokens, token)
	}
	return tokens
}

// FitTransform returns the count matrix (one row per document) and the
// vocabulary in sorted order, so columns are deterministic.
func (v *CountVectorizer) FitTransform(docs []string) ([][]float64, []string) {
	vocabSet := make(map[string]int)
	tokenized := make([][]string, len(docs))
	for i, doc := range docs {
		tokenized[i] = v.tokenize(doc)
		for _, token := range tokenized[i] {
			vocabSet[token] = 0
		}
	}

	vocab := make([]string, 0, len(vocabSet))
	for term := range vocabSet {
		vocab = append(vocab, term)
	}
	sort.Strings(vocab)
	for idx, term := range vocab {
		vocabSet[term] = idx
	}

	counts := make([][]float64, len(docs))
	for i, tokens := range tokenized {
		row := make([]float64, len(vocab))
		for _, token := range tokens {
			row[vocabSet[token]]++
		}
		counts[i] = row
	}

	return counts, vocab
}
