package dto

import (
	"encoding/json"
	"fmt"
	"time"

	"perspectives-be/internal/entity"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Job parameter payloads. One struct per JobType; the raw JSON stored on the
// job row is decoded into the matching struct before dispatch, so a payload
// of the wrong shape fails validation before any store mutation.

type CreateAspectParams struct{}

type AddMissingDocsParams struct{}

type CreateClusterWithNameParams struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

type CreateClusterWithSdocsParams struct {
	Name    string      `json:"name" validate:"required"`
	SdocIds []uuid.UUID `json:"sdoc_ids" validate:"required,min=1"`
}

type RemoveClusterParams struct {
	ClusterId uuid.UUID `json:"cluster_id" validate:"required"`
}

type MergeClustersParams struct {
	KeepClusterId  uuid.UUID `json:"keep_cluster_id" validate:"required"`
	MergeClusterId uuid.UUID `json:"merge_cluster_id" validate:"required,nefield=KeepClusterId"`
}

type SplitClusterParams struct {
	ClusterId uuid.UUID `json:"cluster_id" validate:"required"`
}

// ChangeClusterParams force-assigns documents to a cluster. A zero ClusterId
// targets the aspect's outlier cluster.
type ChangeClusterParams struct {
	ClusterId uuid.UUID   `json:"cluster_id"`
	SdocIds   []uuid.UUID `json:"sdoc_ids" validate:"required,min=1"`
}

type RefineModelParams struct{}

type ResetModelParams struct{}

type RecomputeClusterTitleParams struct {
	ClusterId uuid.UUID `json:"cluster_id" validate:"required"`
}

var validate = validator.New()

// ParseJobParams decodes and validates the payload for the given job type.
// Empty payloads are allowed for parameterless types.
func ParseJobParams(jobType entity.JobType, raw []byte) (any, error) {
	var params any
	switch jobType {
	case entity.JobTypeCreateAspect:
		params = &CreateAspectParams{}
	case entity.JobTypeAddMissingDocs:
		params = &AddMissingDocsParams{}
	case entity.JobTypeCreateClusterWithName:
		params = &CreateClusterWithNameParams{}
	case entity.JobTypeCreateClusterWithSdocs:
		params = &CreateClusterWithSdocsParams{}
	case entity.JobTypeRemoveCluster:
		params = &RemoveClusterParams{}
	case entity.JobTypeMergeClusters:
		params = &MergeClustersParams{}
	case entity.JobTypeSplitCluster:
		params = &SplitClusterParams{}
	case entity.JobTypeChangeCluster:
		params = &ChangeClusterParams{}
	case entity.JobTypeRefineModel:
		params = &RefineModelParams{}
	case entity.JobTypeResetModel:
		params = &ResetModelParams{}
	case entity.JobTypeRecomputeClusterTitle:
		params = &RecomputeClusterTitleParams{}
	default:
		return nil, fmt.Errorf("unknown job type %q", jobType)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, params); err != nil {
			return nil, fmt.Errorf("invalid payload for %s: %w", jobType, err)
		}
	}
	if err := validate.Struct(params); err != nil {
		return nil, fmt.Errorf("invalid payload for %s: %w", jobType, err)
	}
	return params, nil
}

// Validate runs struct-tag validation on any request DTO.
func Validate(v any) error {
	return validate.Struct(v)
}

// PublishPerspectivesJobMessage is the queue payload handed to the worker.
type PublishPerspectivesJobMessage struct {
	JobId uuid.UUID `json:"job_id"`
}

type StartJobRequest struct {
	AspectId uuid.UUID       `json:"aspect_id" validate:"required"`
	Type     entity.JobType  `json:"type" validate:"required"`
	Payload  json.RawMessage `json:"payload"`
}

type StartJobResponse struct {
	JobId uuid.UUID `json:"job_id"`
}

type JobStatusResponse struct {
	Id            uuid.UUID        `json:"id"`
	AspectId      uuid.UUID        `json:"aspect_id"`
	Type          entity.JobType   `json:"type"`
	Steps         []string         `json:"steps"`
	CurrentStep   int              `json:"current_step"`
	Status        entity.JobStatus `json:"status"`
	StatusMessage string           `json:"status_message"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     *time.Time       `json:"updated_at"`
}

type CreateAspectRequest struct {
	ProjectId             uuid.UUID  `json:"project_id" validate:"required"`
	Name                  string     `json:"name" validate:"required"`
	Modality              string     `json:"modality" validate:"required,oneof=text image"`
	DocEmbeddingPrompt    string     `json:"doc_embedding_prompt"`
	DocModificationPrompt string     `json:"doc_modification_prompt"`
	SelectionTagId        *uuid.UUID `json:"selection_tag_id"`
}

type CreateAspectResponse struct {
	AspectId uuid.UUID `json:"aspect_id"`
	JobId    uuid.UUID `json:"job_id"`
}
