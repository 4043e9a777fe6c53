package perspectives

import (
	"context"
	"sort"

	"perspectives-be/internal/repository/specification"

	"github.com/google/uuid"
)

// Anchor is a document whose previous cluster id and newly produced raw
// label are both known. Anchors carry cluster identity across re-clustering
// runs.
type Anchor struct {
	SdocId       uuid.UUID
	OldClusterId uuid.UUID
	NewLabel     int
}

// IdentityResolver maps fresh clustering labels back onto existing cluster
// identities by majority vote over the anchors.
type IdentityResolver struct{}

func NewIdentityResolver() *IdentityResolver {
	return &IdentityResolver{}
}

// Resolve assigns each new label the most frequent old cluster id among its
// anchors. Ties break to the lowest cluster id, so the mapping is
// deterministic. The outlier label (-1) always maps to the aspect's outlier
// cluster regardless of votes.
func (r *IdentityResolver) Resolve(anchors []Anchor, outlierClusterId uuid.UUID) map[int]uuid.UUID {
	votes := make(map[int]map[uuid.UUID]int)
	for _, anchor := range anchors {
		if anchor.NewLabel == OutlierLabel {
			continue
		}
		if votes[anchor.NewLabel] == nil {
			votes[anchor.NewLabel] = make(map[uuid.UUID]int)
		}
		votes[anchor.NewLabel][anchor.OldClusterId]++
	}

	mapping := make(map[int]uuid.UUID, len(votes)+1)
	mapping[OutlierLabel] = outlierClusterId

	for label, counts := range votes {
		candidates := make([]uuid.UUID, 0, len(counts))
		for clusterId := range counts {
			candidates = append(candidates, clusterId)
		}
		sort.Slice(candidates, func(i, j int) bool {
			return candidates[i].String() < candidates[j].String()
		})

		best := candidates[0]
		for _, candidate := range candidates[1:] {
			if counts[candidate] > counts[best] {
				best = candidate
			}
		}
		mapping[label] = best
	}

	return mapping
}

// Apply moves non-anchor documents onto their resolved cluster. Anchors
// already carry the correct assignment; accepted assignments are never
// moved; everything else is updated only when the resolved cluster actually
// differs. Returns the ids of clusters whose membership changed.
func (r *IdentityResolver) Apply(
	ctx context.Context,
	tx *Transaction,
	aspectId uuid.UUID,
	newLabels map[uuid.UUID]int,
	mapping map[int]uuid.UUID,
	anchorSdocs map[uuid.UUID]bool,
) (map[uuid.UUID]bool, error) {
	touched := make(map[uuid.UUID]bool)

	sdocIds := make([]uuid.UUID, 0, len(newLabels))
	for sdocId := range newLabels {
		sdocIds = append(sdocIds, sdocId)
	}
	sort.Slice(sdocIds, func(i, j int) bool {
		return sdocIds[i].String() < sdocIds[j].String()
	})

	for _, sdocId := range sdocIds {
		if anchorSdocs[sdocId] {
			continue
		}

		resolved, ok := mapping[newLabels[sdocId]]
		if !ok {
			continue
		}

		assignment, err := tx.Repos().DocumentClusterRepository().FindOne(ctx,
			specification.ByAspectID{AspectID: aspectId},
			specification.BySdocID{SdocID: sdocId},
		)
		if err != nil {
			return nil, err
		}
		if assignment == nil || assignment.IsAccepted || assignment.ClusterId == resolved {
			continue
		}

		before := *assignment
		touched[assignment.ClusterId] = true
		touched[resolved] = true
		assignment.ClusterId = resolved
		if err := tx.Repos().DocumentClusterRepository().Update(ctx, assignment); err != nil {
			return nil, err
		}
		if err := tx.RecordHistory(ctx, "document_cluster_update", before, assignment); err != nil {
			return nil, err
		}
	}

	return touched, nil
}
