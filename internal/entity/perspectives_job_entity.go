package entity

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusWaiting  JobStatus = "WAITING"
	JobStatusRunning  JobStatus = "RUNNING"
	JobStatusFinished JobStatus = "FINISHED"
	JobStatusError    JobStatus = "ERROR"
	JobStatusAborted  JobStatus = "ABORTED"
)

// IsTerminal reports whether the job can no longer make progress.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusFinished || s == JobStatusError || s == JobStatusAborted
}

type JobType string

const (
	JobTypeCreateAspect           JobType = "CREATE_ASPECT"
	JobTypeAddMissingDocs         JobType = "ADD_MISSING_DOCS"
	JobTypeCreateClusterWithName  JobType = "CREATE_CLUSTER_WITH_NAME"
	JobTypeCreateClusterWithSdocs JobType = "CREATE_CLUSTER_WITH_SDOCS"
	JobTypeRemoveCluster          JobType = "REMOVE_CLUSTER"
	JobTypeMergeClusters          JobType = "MERGE_CLUSTERS"
	JobTypeSplitCluster           JobType = "SPLIT_CLUSTER"
	JobTypeChangeCluster          JobType = "CHANGE_CLUSTER"
	JobTypeRefineModel            JobType = "REFINE_MODEL"
	JobTypeResetModel             JobType = "RESET_MODEL"
	JobTypeRecomputeClusterTitle  JobType = "RECOMPUTE_CLUSTER_TITLE"
)

// PerspectivesJob is one unit of background work over an aspect. Steps is the
// fixed, human-readable step list for the job's type; CurrentStep advances
// monotonically while the job runs and is polled externally for progress.
type PerspectivesJob struct {
	Id            uuid.UUID
	AspectId      uuid.UUID
	Type          JobType
	Steps         []string
	CurrentStep   int
	Status        JobStatus
	StatusMessage string
	Payload       []byte // JSON-encoded job parameters
	CreatedAt     time.Time
	UpdatedAt     *time.Time
}
