package memory

import (
	"context"
	"fmt"
	"time"

	"perspectives-be/internal/entity"
	"perspectives-be/internal/repository/specification"

	"github.com/google/uuid"
)

type aspectRepository struct{ store *Store }

func (r *aspectRepository) Create(ctx context.Context, aspect *entity.Aspect) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *aspect
	cp.CreatedAt = time.Now()
	r.store.data.aspects[cp.Id] = &cp
	return nil
}

func (r *aspectRepository) Update(ctx context.Context, aspect *entity.Aspect) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *aspect
	r.store.data.aspects[cp.Id] = &cp
	return nil
}

func (r *aspectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.data.aspects, id)
	return nil
}

func (r *aspectRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Aspect, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for _, a := range r.store.data.aspects {
		if aspectMatches(a, specs) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *aspectRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Aspect, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var out []*entity.Aspect
	for _, a := range r.store.data.aspects {
		if aspectMatches(a, specs) {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *aspectRepository) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, err := r.FindAll(ctx, specs...)
	return int64(len(all)), err
}

func (r *aspectRepository) ClaimJobSlot(ctx context.Context, aspectId uuid.UUID, jobId uuid.UUID) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	a, ok := r.store.data.aspects[aspectId]
	if !ok {
		return false, fmt.Errorf("aspect %s not found", aspectId)
	}
	if a.MostRecentJobId != nil {
		if job, ok := r.store.data.jobs[*a.MostRecentJobId]; ok && !job.Status.IsTerminal() {
			return false, nil
		}
	}
	id := jobId
	a.MostRecentJobId = &id
	return true, nil
}

type clusterRepository struct{ store *Store }

func (r *clusterRepository) Create(ctx context.Context, cluster *entity.Cluster) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *cluster
	cp.CreatedAt = time.Now()
	r.store.data.clusters[cp.Id] = &cp
	return nil
}

func (r *clusterRepository) Update(ctx context.Context, cluster *entity.Cluster) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *cluster
	r.store.data.clusters[cp.Id] = &cp
	return nil
}

func (r *clusterRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.data.clusters, id)
	return nil
}

func (r *clusterRepository) DeleteByAspectId(ctx context.Context, aspectId uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for id, c := range r.store.data.clusters {
		if c.AspectId == aspectId {
			delete(r.store.data.clusters, id)
		}
	}
	return nil
}

func (r *clusterRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Cluster, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for _, c := range r.store.data.clusters {
		if clusterMatches(c, specs) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *clusterRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Cluster, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var out []*entity.Cluster
	for _, c := range r.store.data.clusters {
		if clusterMatches(c, specs) {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *clusterRepository) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, err := r.FindAll(ctx, specs...)
	return int64(len(all)), err
}

type documentAspectRepository struct{ store *Store }

func (r *documentAspectRepository) Create(ctx context.Context, d *entity.DocumentAspect) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	key := docKey{SdocId: d.SdocId, AspectId: d.AspectId}
	if _, exists := r.store.data.docAspects[key]; exists {
		return fmt.Errorf("document aspect already exists for sdoc %s", d.SdocId)
	}
	cp := *d
	cp.CreatedAt = time.Now()
	r.store.data.docAspects[key] = &cp
	return nil
}

func (r *documentAspectRepository) CreateBulk(ctx context.Context, docAspects []*entity.DocumentAspect) error {
	for _, d := range docAspects {
		if err := r.Create(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

func (r *documentAspectRepository) Update(ctx context.Context, d *entity.DocumentAspect) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *d
	r.store.data.docAspects[docKey{SdocId: d.SdocId, AspectId: d.AspectId}] = &cp
	return nil
}

func (r *documentAspectRepository) DeleteByAspectId(ctx context.Context, aspectId uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for key := range r.store.data.docAspects {
		if key.AspectId == aspectId {
			delete(r.store.data.docAspects, key)
		}
	}
	return nil
}

func (r *documentAspectRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.DocumentAspect, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for _, d := range r.store.data.docAspects {
		if docAspectMatches(d, specs) {
			cp := *d
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *documentAspectRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.DocumentAspect, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var out []*entity.DocumentAspect
	for _, d := range r.store.data.docAspects {
		if docAspectMatches(d, specs) {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *documentAspectRepository) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, err := r.FindAll(ctx, specs...)
	return int64(len(all)), err
}

type documentClusterRepository struct{ store *Store }

func (r *documentClusterRepository) Create(ctx context.Context, d *entity.DocumentCluster) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	key := docKey{SdocId: d.SdocId, AspectId: d.AspectId}
	if _, exists := r.store.data.docClusters[key]; exists {
		return fmt.Errorf("document cluster already exists for sdoc %s", d.SdocId)
	}
	cp := *d
	cp.CreatedAt = time.Now()
	r.store.data.docClusters[key] = &cp
	return nil
}

func (r *documentClusterRepository) CreateBulk(ctx context.Context, docClusters []*entity.DocumentCluster) error {
	for _, d := range docClusters {
		if err := r.Create(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

func (r *documentClusterRepository) Update(ctx context.Context, d *entity.DocumentCluster) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *d
	r.store.data.docClusters[docKey{SdocId: d.SdocId, AspectId: d.AspectId}] = &cp
	return nil
}

func (r *documentClusterRepository) UpdateBulk(ctx context.Context, docClusters []*entity.DocumentCluster) error {
	for _, d := range docClusters {
		if err := r.Update(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

func (r *documentClusterRepository) DeleteByAspectId(ctx context.Context, aspectId uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for key := range r.store.data.docClusters {
		if key.AspectId == aspectId {
			delete(r.store.data.docClusters, key)
		}
	}
	return nil
}

func (r *documentClusterRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.DocumentCluster, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for _, d := range r.store.data.docClusters {
		if docClusterMatches(d, specs) {
			cp := *d
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *documentClusterRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.DocumentCluster, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var out []*entity.DocumentCluster
	for _, d := range r.store.data.docClusters {
		if docClusterMatches(d, specs) {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *documentClusterRepository) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, err := r.FindAll(ctx, specs...)
	return int64(len(all)), err
}

type perspectivesJobRepository struct{ store *Store }

func (r *perspectivesJobRepository) Create(ctx context.Context, job *entity.PerspectivesJob) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *job
	cp.CreatedAt = time.Now()
	r.store.data.jobs[cp.Id] = &cp
	return nil
}

func (r *perspectivesJobRepository) Update(ctx context.Context, job *entity.PerspectivesJob) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *job
	r.store.data.jobs[cp.Id] = &cp
	return nil
}

func (r *perspectivesJobRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.PerspectivesJob, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for _, j := range r.store.data.jobs {
		if jobMatches(j, specs) {
			cp := *j
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *perspectivesJobRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.PerspectivesJob, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var out []*entity.PerspectivesJob
	for _, j := range r.store.data.jobs {
		if jobMatches(j, specs) {
			cp := *j
			out = append(out, &cp)
		}
	}
	return out, nil
}

type sourceDocumentRepository struct{ store *Store }

func (r *sourceDocumentRepository) Create(ctx context.Context, doc *entity.SourceDocument) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *doc
	cp.CreatedAt = time.Now()
	r.store.data.sdocs[cp.Id] = &cp
	return nil
}

func (r *sourceDocumentRepository) CreateBulk(ctx context.Context, docs []*entity.SourceDocument) error {
	for _, d := range docs {
		if err := r.Create(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

func (r *sourceDocumentRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.SourceDocument, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for _, d := range r.store.data.sdocs {
		if sdocMatches(d, specs) {
			cp := *d
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *sourceDocumentRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.SourceDocument, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var out []*entity.SourceDocument
	for _, d := range r.store.data.sdocs {
		if sdocMatches(d, specs) {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *sourceDocumentRepository) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, err := r.FindAll(ctx, specs...)
	return int64(len(all)), err
}

func (r *sourceDocumentRepository) FindEligibleForAspect(ctx context.Context, projectId, aspectId uuid.UUID, modality entity.Modality, tagId *uuid.UUID) ([]*entity.SourceDocument, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var out []*entity.SourceDocument
	for _, d := range r.store.data.sdocs {
		if d.ProjectId != projectId || d.Modality != modality {
			continue
		}
		if _, admitted := r.store.data.docAspects[docKey{SdocId: d.Id, AspectId: aspectId}]; admitted {
			continue
		}
		if tagId != nil && !r.store.data.sdocTags[d.Id][*tagId] {
			continue
		}
		cp := *d
		out = append(out, &cp)
	}
	return out, nil
}

func (r *sourceDocumentRepository) AddTag(ctx context.Context, sdocId, tagId uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.data.sdocTags[sdocId] == nil {
		r.store.data.sdocTags[sdocId] = make(map[uuid.UUID]bool)
	}
	r.store.data.sdocTags[sdocId][tagId] = true
	return nil
}

type actionLogRepository struct{ store *Store }

func (r *actionLogRepository) Create(ctx context.Context, log *entity.ActionLog) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *log
	cp.CreatedAt = time.Now()
	r.store.data.actionLogs = append(r.store.data.actionLogs, &cp)
	return nil
}

func (r *actionLogRepository) CreateBulk(ctx context.Context, logs []*entity.ActionLog) error {
	for _, l := range logs {
		if err := r.Create(ctx, l); err != nil {
			return err
		}
	}
	return nil
}

func (r *actionLogRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ActionLog, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var out []*entity.ActionLog
	for _, a := range r.store.data.actionLogs {
		if actionLogMatches(a, specs) {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}
