package entity

import (
	"time"

	"github.com/google/uuid"
)

// ActionLog captures enough of a perspectives mutation to support undo/redo
// in the history subsystem. Aspect creation is irreversible and writes no
// history.
type ActionLog struct {
	Id        uuid.UUID
	AspectId  uuid.UUID
	JobId     uuid.UUID
	Kind      string // e.g. "cluster_update", "document_cluster_update"
	Before    []byte // JSON snapshot prior to the mutation
	After     []byte // JSON snapshot after the mutation
	CreatedAt time.Time
}
