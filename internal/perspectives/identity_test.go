package perspectives

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestResolveMajorityVote(t *testing.T) {
	clusterA := uuid.New()
	clusterB := uuid.New()
	outlier := uuid.New()

	anchors := []Anchor{
		{SdocId: uuid.New(), OldClusterId: clusterA, NewLabel: 0},
		{SdocId: uuid.New(), OldClusterId: clusterA, NewLabel: 0},
		{SdocId: uuid.New(), OldClusterId: clusterB, NewLabel: 0},
		{SdocId: uuid.New(), OldClusterId: clusterB, NewLabel: 1},
	}

	mapping := NewIdentityResolver().Resolve(anchors, outlier)

	assert.Equal(t, clusterA, mapping[0])
	assert.Equal(t, clusterB, mapping[1])
	assert.Equal(t, outlier, mapping[OutlierLabel])
}

func TestResolveTieBreaksToLowestClusterId(t *testing.T) {
	a := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	b := uuid.MustParse("00000000-0000-0000-0000-000000000002")
	outlier := uuid.New()

	anchors := []Anchor{
		{SdocId: uuid.New(), OldClusterId: b, NewLabel: 0},
		{SdocId: uuid.New(), OldClusterId: a, NewLabel: 0},
	}

	mapping := NewIdentityResolver().Resolve(anchors, outlier)
	assert.Equal(t, a, mapping[0])
}

func TestResolveOutlierAnchorsCastNoVotes(t *testing.T) {
	clusterA := uuid.New()
	outlier := uuid.New()

	anchors := []Anchor{
		{SdocId: uuid.New(), OldClusterId: clusterA, NewLabel: OutlierLabel},
	}

	mapping := NewIdentityResolver().Resolve(anchors, outlier)
	assert.Equal(t, outlier, mapping[OutlierLabel])
	assert.Len(t, mapping, 1)
}
