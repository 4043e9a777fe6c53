package dto

import (
	"fmt"
	"testing"

	"perspectives-be/internal/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJobParams(t *testing.T) {
	clusterId := uuid.New()
	otherId := uuid.New()

	tests := []struct {
		name    string
		jobType entity.JobType
		payload string
		wantErr bool
	}{
		{"create aspect without payload", entity.JobTypeCreateAspect, "", false},
		{"refine without payload", entity.JobTypeRefineModel, "", false},
		{"remove cluster valid", entity.JobTypeRemoveCluster, fmt.Sprintf(`{"cluster_id":%q}`, clusterId), false},
		{"remove cluster missing id", entity.JobTypeRemoveCluster, `{}`, true},
		{"merge valid", entity.JobTypeMergeClusters, fmt.Sprintf(`{"keep_cluster_id":%q,"merge_cluster_id":%q}`, clusterId, otherId), false},
		{"merge same cluster twice", entity.JobTypeMergeClusters, fmt.Sprintf(`{"keep_cluster_id":%q,"merge_cluster_id":%q}`, clusterId, clusterId), true},
		{"change cluster allows zero target", entity.JobTypeChangeCluster, fmt.Sprintf(`{"sdoc_ids":[%q]}`, otherId), false},
		{"change cluster needs documents", entity.JobTypeChangeCluster, `{"sdoc_ids":[]}`, true},
		{"create with sdocs needs name", entity.JobTypeCreateClusterWithSdocs, fmt.Sprintf(`{"sdoc_ids":[%q]}`, otherId), true},
		{"unknown type", entity.JobType("BOGUS"), "", true},
		{"malformed json", entity.JobTypeRemoveCluster, `{`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params, err := ParseJobParams(tt.jobType, []byte(tt.payload))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, params)
		})
	}
}
