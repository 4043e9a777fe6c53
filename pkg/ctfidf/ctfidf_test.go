package ctfidf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreprocess(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "newlines and tabs become spaces",
			input: "first\nsecond\tthird\r",
			want:  "first second third",
		},
		{
			name:  "punctuation is stripped",
			input: "hello, world! (test)",
			want:  "hello world test",
		},
		{
			name:  "umlauts survive",
			input: "über schöne Wälder",
			want:  "über schöne Wälder",
		},
		{
			name:  "empty content yields sentinel",
			input: "...!?",
			want:  EmptyDoc,
		},
		{
			name:  "whitespace only yields sentinel",
			input: "   \n\t  ",
			want:  EmptyDoc,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Preprocess(tt.input))
		})
	}
}

func TestCountVectorizerFiltersStopwords(t *testing.T) {
	v := NewCountVectorizer()
	counts, vocab := v.FitTransform([]string{"the quick fox and the lazy dog"})

	require.Len(t, counts, 1)
	assert.NotContains(t, vocab, "the")
	assert.NotContains(t, vocab, "and")
	assert.Contains(t, vocab, "quick")
	assert.Contains(t, vocab, "fox")
}

func TestCountVectorizerVocabIsSortedAndStable(t *testing.T) {
	v := NewCountVectorizer()
	docs := []string{"zebra apple mango", "mango banana"}

	_, vocab1 := v.FitTransform(docs)
	_, vocab2 := v.FitTransform(docs)

	assert.Equal(t, vocab1, vocab2)
	for i := 1; i < len(vocab1); i++ {
		assert.Less(t, vocab1[i-1], vocab1[i])
	}
}

func TestTransformFavorsClassExclusiveTerms(t *testing.T) {
	v := NewCountVectorizer()
	// "football" only appears in class 0, "shared" in both.
	counts, vocab := v.FitTransform([]string{
		"football football match shared",
		"pasta recipe shared",
	})
	scores := Transform(counts)

	footballIdx, sharedIdx := -1, -1
	for i, term := range vocab {
		switch term {
		case "football":
			footballIdx = i
		case "shared":
			sharedIdx = i
		}
	}
	require.NotEqual(t, -1, footballIdx)
	require.NotEqual(t, -1, sharedIdx)

	assert.Greater(t, scores[0][footballIdx], scores[0][sharedIdx])
}

func TestTopTerms(t *testing.T) {
	vocab := []string{"alpha", "beta", "gamma", "delta"}
	row := []float64{0.5, 0, 2.0, 1.0}

	top := TopTerms(row, vocab, 3)

	require.Len(t, top, 3)
	assert.Equal(t, "gamma", top[0].Term)
	assert.Equal(t, "delta", top[1].Term)
	assert.Equal(t, "alpha", top[2].Term)
}

func TestTopTermsSkipsZeroScores(t *testing.T) {
	vocab := []string{"alpha", "beta"}
	row := []float64{0, 0.1}

	top := TopTerms(row, vocab, 10)

	require.Len(t, top, 1)
	assert.Equal(t, "beta", top[0].Term)
}

func TestEmptyDocClassScoresNothing(t *testing.T) {
	v := NewCountVectorizer()
	counts, vocab := v.FitTransform([]string{"football match goal", EmptyDoc})
	scores := Transform(counts)

	top := TopTerms(scores[1], vocab, 5)
	for _, term := range top {
		assert.NotEqual(t, "football", term.Term)
		assert.NotEqual(t, "goal", term.Term)
	}
}
