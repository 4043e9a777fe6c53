package unitofwork

import (
	"context"

	"perspectives-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	AspectRepository() contract.AspectRepository
	ClusterRepository() contract.ClusterRepository
	DocumentAspectRepository() contract.DocumentAspectRepository
	DocumentClusterRepository() contract.DocumentClusterRepository
	PerspectivesJobRepository() contract.PerspectivesJobRepository
	SourceDocumentRepository() contract.SourceDocumentRepository
	ActionLogRepository() contract.ActionLogRepository
}
