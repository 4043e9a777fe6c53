package perspectives

import (
	"context"
	"sort"
	"strings"

	"perspectives-be/internal/entity"
	"perspectives-be/internal/repository/specification"
	"perspectives-be/pkg/ctfidf"

	"github.com/google/uuid"
)

// KeywordExtractor derives top_words/top_word_scores per cluster via class
// TF-IDF. The bag-of-words matrix always spans every cluster of the aspect,
// since the weighting is only comparable over a shared vocabulary; only the
// requested clusters get their stored keywords updated.
type KeywordExtractor struct {
	vectorizer *ctfidf.CountVectorizer
}

func NewKeywordExtractor() *KeywordExtractor {
	return &KeywordExtractor{vectorizer: ctfidf.NewCountVectorizer()}
}

func (e *KeywordExtractor) ExtractKeywords(ctx context.Context, tx *Transaction, aspect *entity.Aspect, targets []*entity.Cluster) error {
	allClusters, err := tx.Repos().ClusterRepository().FindAll(ctx,
		specification.ByAspectID{AspectID: aspect.Id},
	)
	if err != nil {
		return err
	}
	sort.Slice(allClusters, func(i, j int) bool {
		return allClusters[i].Id.String() < allClusters[j].Id.String()
	})

	pseudoDocs := make([]string, len(allClusters))
	rowByCluster := make(map[uuid.UUID]int, len(allClusters))
	for i, cluster := range allClusters {
		rowByCluster[cluster.Id] = i
		pseudoDoc, err := e.clusterPseudoDoc(ctx, tx, aspect.Id, cluster.Id)
		if err != nil {
			return err
		}
		pseudoDocs[i] = pseudoDoc
	}

	counts, vocab := e.vectorizer.FitTransform(pseudoDocs)
	scores := ctfidf.Transform(counts)

	for _, target := range targets {
		row, ok := rowByCluster[target.Id]
		if !ok {
			continue
		}
		top := ctfidf.TopTerms(scores[row], vocab, aspect.Settings.NumKeywords)

		words := make([]string, len(top))
		wordScores := make([]float64, len(top))
		for i, term := range top {
			words[i] = term.Term
			wordScores[i] = term.Score
		}
		target.TopWords = words
		target.TopWordScores = wordScores

		if err := tx.Repos().ClusterRepository().Update(ctx, target); err != nil {
			return err
		}
	}

	return nil
}

// clusterPseudoDoc concatenates the (possibly modified) content of every
// member document, preprocessed for the vectorizer. Empty clusters yield
// the emptydoc sentinel.
func (e *KeywordExtractor) clusterPseudoDoc(ctx context.Context, tx *Transaction, aspectId, clusterId uuid.UUID) (string, error) {
	members, err := tx.Repos().DocumentClusterRepository().FindAll(ctx,
		specification.ByAspectID{AspectID: aspectId},
		specification.ByClusterID{ClusterID: clusterId},
	)
	if err != nil {
		return "", err
	}
	if len(members) == 0 {
		return ctfidf.EmptyDoc, nil
	}

	sort.Slice(members, func(i, j int) bool {
		return members[i].SdocId.String() < members[j].SdocId.String()
	})

	parts := make([]string, 0, len(members))
	for _, member := range members {
		docAspect, err := tx.Repos().DocumentAspectRepository().FindOne(ctx,
			specification.ByAspectID{AspectID: aspectId},
			specification.BySdocID{SdocID: member.SdocId},
		)
		if err != nil {
			return "", err
		}
		if docAspect != nil {
			parts = append(parts, docAspect.Content)
		}
	}

	return ctfidf.Preprocess(strings.Join(parts, " ")), nil
}
