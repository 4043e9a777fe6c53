// Package memory provides map-backed implementations of the repository
// contracts. They are used by tests and local tooling where a Postgres
// instance is not available. Begin/Rollback work on deep-copied snapshots so
// transactional behavior can be exercised without a database.
package memory

import (
	"sync"

	"perspectives-be/internal/entity"

	"github.com/google/uuid"
)

type docKey struct {
	SdocId   uuid.UUID
	AspectId uuid.UUID
}

type tables struct {
	aspects     map[uuid.UUID]*entity.Aspect
	clusters    map[uuid.UUID]*entity.Cluster
	docAspects  map[docKey]*entity.DocumentAspect
	docClusters map[docKey]*entity.DocumentCluster
	jobs        map[uuid.UUID]*entity.PerspectivesJob
	sdocs       map[uuid.UUID]*entity.SourceDocument
	sdocTags    map[uuid.UUID]map[uuid.UUID]bool
	actionLogs  []*entity.ActionLog
}

func newTables() *tables {
	return &tables{
		aspects:     make(map[uuid.UUID]*entity.Aspect),
		clusters:    make(map[uuid.UUID]*entity.Cluster),
		docAspects:  make(map[docKey]*entity.DocumentAspect),
		docClusters: make(map[docKey]*entity.DocumentCluster),
		jobs:        make(map[uuid.UUID]*entity.PerspectivesJob),
		sdocs:       make(map[uuid.UUID]*entity.SourceDocument),
		sdocTags:    make(map[uuid.UUID]map[uuid.UUID]bool),
	}
}

func (t *tables) clone() *tables {
	c := newTables()
	for k, v := range t.aspects {
		cp := *v
		c.aspects[k] = &cp
	}
	for k, v := range t.clusters {
		cp := *v
		c.clusters[k] = &cp
	}
	for k, v := range t.docAspects {
		cp := *v
		c.docAspects[k] = &cp
	}
	for k, v := range t.docClusters {
		cp := *v
		c.docClusters[k] = &cp
	}
	for k, v := range t.jobs {
		cp := *v
		c.jobs[k] = &cp
	}
	for k, v := range t.sdocs {
		cp := *v
		c.sdocs[k] = &cp
	}
	for k, v := range t.sdocTags {
		set := make(map[uuid.UUID]bool, len(v))
		for tag := range v {
			set[tag] = true
		}
		c.sdocTags[k] = set
	}
	c.actionLogs = append(c.actionLogs, t.actionLogs...)
	return c
}

// Store holds the shared state behind all memory repositories.
type Store struct {
	mu   sync.RWMutex
	data *tables
}

func NewStore() *Store {
	return &Store{data: newTables()}
}
