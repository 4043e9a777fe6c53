package memory

import (
	"context"
	"fmt"

	"perspectives-be/internal/repository/contract"
	"perspectives-be/internal/repository/unitofwork"
)

type unitOfWork struct {
	store    *Store
	snapshot *tables
}

func NewUnitOfWork(store *Store) unitofwork.UnitOfWork {
	return &unitOfWork{store: store}
}

func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.snapshot != nil {
		return fmt.Errorf("transaction already started")
	}
	u.store.mu.Lock()
	u.snapshot = u.store.data.clone()
	u.store.mu.Unlock()
	return nil
}

func (u *unitOfWork) Commit() error {
	if u.snapshot == nil {
		return fmt.Errorf("no transaction to commit")
	}
	u.snapshot = nil
	return nil
}

func (u *unitOfWork) Rollback() error {
	if u.snapshot == nil {
		return fmt.Errorf("no transaction to rollback")
	}
	u.store.mu.Lock()
	u.store.data = u.snapshot
	u.store.mu.Unlock()
	u.snapshot = nil
	return nil
}

func (u *unitOfWork) AspectRepository() contract.AspectRepository {
	return &aspectRepository{store: u.store}
}

func (u *unitOfWork) ClusterRepository() contract.ClusterRepository {
	return &clusterRepository{store: u.store}
}

func (u *unitOfWork) DocumentAspectRepository() contract.DocumentAspectRepository {
	return &documentAspectRepository{store: u.store}
}

func (u *unitOfWork) DocumentClusterRepository() contract.DocumentClusterRepository {
	return &documentClusterRepository{store: u.store}
}

func (u *unitOfWork) PerspectivesJobRepository() contract.PerspectivesJobRepository {
	return &perspectivesJobRepository{store: u.store}
}

func (u *unitOfWork) SourceDocumentRepository() contract.SourceDocumentRepository {
	return &sourceDocumentRepository{store: u.store}
}

func (u *unitOfWork) ActionLogRepository() contract.ActionLogRepository {
	return &actionLogRepository{store: u.store}
}

type factory struct {
	store *Store
}

// NewRepositoryFactory returns a factory whose units of work all share the
// same in-memory store.
func NewRepositoryFactory(store *Store) unitofwork.RepositoryFactory {
	return &factory{store: store}
}

func (f *factory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return NewUnitOfWork(f.store)
}
