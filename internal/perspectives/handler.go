package perspectives

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"perspectives-be/internal/dto"
	"perspectives-be/internal/entity"
	"perspectives-be/internal/pkg/logger"
	"perspectives-be/internal/repository/specification"
	"perspectives-be/internal/repository/unitofwork"
	"perspectives-be/pkg/projection"
	"perspectives-be/pkg/vectorstore"

	"github.com/google/uuid"
)

// StepsForJobType returns the fixed, human-readable step list of a job
// type. Pollers display these alongside the job's current step index.
func StepsForJobType(jobType entity.JobType) []string {
	switch jobType {
	case entity.JobTypeCreateAspect, entity.JobTypeAddMissingDocs:
		return []string{"Document Modification", "Document Embedding", "Document Clustering", "Cluster Extraction"}
	case entity.JobTypeCreateClusterWithName:
		return []string{"Cluster Embedding", "Document Assignment", "Cluster Extraction"}
	case entity.JobTypeCreateClusterWithSdocs:
		return []string{"Cluster Creation", "Document Assignment", "Cluster Extraction"}
	case entity.JobTypeRemoveCluster, entity.JobTypeMergeClusters:
		return []string{"Document Reassignment", "Cluster Removal", "Cluster Extraction"}
	case entity.JobTypeSplitCluster:
		return []string{"Cluster Removal", "Document Clustering", "Cluster Extraction"}
	case entity.JobTypeChangeCluster:
		return []string{"Document Assignment", "Cluster Extraction"}
	case entity.JobTypeRefineModel:
		return []string{"Training Data Derivation", "Document Embedding", "Document Clustering", "Cluster Extraction"}
	case entity.JobTypeResetModel:
		return []string{"Model Reset", "Document Embedding", "Document Clustering", "Cluster Extraction"}
	case entity.JobTypeRecomputeClusterTitle:
		return []string{"Cluster Naming"}
	default:
		return nil
	}
}

// Handler runs perspectives jobs: it loads the job, opens the dual-store
// transaction, dispatches on the job type and drives the pipeline stages.
// Progress updates go through a separate non-transactional unit of work so
// pollers see them while the operation is still open.
type Handler struct {
	factory               unitofwork.RepositoryFactory
	vectors               vectorstore.VectorStore
	pipeline              *Pipeline
	centroids             *CentroidEngine
	identity              *IdentityResolver
	keywords              *KeywordExtractor
	namer                 *ClusterNamer
	reducers              *projection.ReducerStore
	defaultEmbeddingModel string
	log                   logger.ILogger
}

func NewHandler(
	factory unitofwork.RepositoryFactory,
	vectors vectorstore.VectorStore,
	pipeline *Pipeline,
	centroids *CentroidEngine,
	identity *IdentityResolver,
	keywords *KeywordExtractor,
	namer *ClusterNamer,
	reducers *projection.ReducerStore,
	defaultEmbeddingModel string,
	log logger.ILogger,
) *Handler {
	return &Handler{
		factory:               factory,
		vectors:               vectors,
		pipeline:              pipeline,
		centroids:             centroids,
		identity:              identity,
		keywords:              keywords,
		namer:                 namer,
		reducers:              reducers,
		defaultEmbeddingModel: defaultEmbeddingModel,
		log:                   log,
	}
}

// Run executes one job to a terminal state. Any error rolls back both
// stores, marks the job ERROR with the failure message, and is returned to
// the caller.
func (h *Handler) Run(ctx context.Context, jobId uuid.UUID) error {
	repos := h.factory.NewUnitOfWork(ctx)

	job, err := repos.PerspectivesJobRepository().FindOne(ctx, specification.ByID{ID: jobId})
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("job %s not found", jobId)
	}
	if job.Status.IsTerminal() {
		return fmt.Errorf("job %s already finished with status %s", jobId, job.Status)
	}

	aspect, err := repos.AspectRepository().FindOne(ctx, specification.ByID{ID: job.AspectId})
	if err != nil {
		return err
	}
	if aspect == nil {
		return h.fail(ctx, job, fmt.Errorf("aspect %s not found", job.AspectId))
	}

	params, err := dto.ParseJobParams(job.Type, job.Payload)
	if err != nil {
		return h.fail(ctx, job, err)
	}

	job.Status = entity.JobStatusRunning
	if err := h.updateJob(ctx, job, 0, "Job started"); err != nil {
		return err
	}

	// Aspect creation is irreversible and writes no undo history.
	writeHistory := job.Type != entity.JobTypeCreateAspect

	tx, err := BeginTransaction(ctx, h.factory, h.vectors, aspect.ProjectId, aspect.Id, job.Id, writeHistory)
	if err != nil {
		return h.fail(ctx, job, err)
	}

	opErr := h.dispatch(ctx, tx, job, aspect, params)
	if opErr != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			h.log.Error("perspectives", "rollback failed", map[string]interface{}{
				"job_id": job.Id.String(),
				"error":  rbErr.Error(),
			})
		}
		return h.fail(ctx, job, opErr)
	}

	if err := tx.Commit(ctx); err != nil {
		return h.fail(ctx, job, err)
	}

	job.Status = entity.JobStatusFinished
	return h.updateJob(ctx, job, len(job.Steps), "Job finished")
}

func (h *Handler) dispatch(ctx context.Context, tx *Transaction, job *entity.PerspectivesJob, aspect *entity.Aspect, params any) error {
	switch p := params.(type) {
	case *dto.CreateAspectParams:
		return h.opCreateAspect(ctx, tx, job, aspect)
	case *dto.AddMissingDocsParams:
		return h.opAddMissingDocs(ctx, tx, job, aspect)
	case *dto.CreateClusterWithNameParams:
		return h.opCreateClusterWithName(ctx, tx, job, aspect, p)
	case *dto.CreateClusterWithSdocsParams:
		return h.opCreateClusterWithSdocs(ctx, tx, job, aspect, p)
	case *dto.RemoveClusterParams:
		return h.opRemoveCluster(ctx, tx, job, aspect, p)
	case *dto.MergeClustersParams:
		return h.opMergeClusters(ctx, tx, job, aspect, p)
	case *dto.SplitClusterParams:
		return h.opSplitCluster(ctx, tx, job, aspect, p)
	case *dto.ChangeClusterParams:
		return h.opChangeCluster(ctx, tx, job, aspect, p)
	case *dto.RefineModelParams:
		return h.opRefineModel(ctx, tx, job, aspect)
	case *dto.ResetModelParams:
		return h.opResetModel(ctx, tx, job, aspect)
	case *dto.RecomputeClusterTitleParams:
		return h.opRecomputeClusterTitle(ctx, tx, aspect, p)
	default:
		return fmt.Errorf("no operation bound to payload type %T", params)
	}
}

// fail marks the job ERROR with the failure message and returns the
// original error for the consumer to log.
func (h *Handler) fail(ctx context.Context, job *entity.PerspectivesJob, cause error) error {
	job.Status = entity.JobStatusError
	if err := h.updateJob(ctx, job, job.CurrentStep, cause.Error()); err != nil {
		h.log.Error("perspectives", "failed to persist job error state", map[string]interface{}{
			"job_id": job.Id.String(),
			"error":  err.Error(),
		})
	}
	return cause
}

// updateJob persists job progress outside the operation's transaction so
// pollers observe it immediately.
func (h *Handler) updateJob(ctx context.Context, job *entity.PerspectivesJob, step int, message string) error {
	job.CurrentStep = step
	job.StatusMessage = message
	now := time.Now()
	job.UpdatedAt = &now
	return h.factory.NewUnitOfWork(ctx).PerspectivesJobRepository().Update(ctx, job)
}

func (h *Handler) progress(ctx context.Context, job *entity.PerspectivesJob, step int, message string) error {
	h.log.Info("perspectives", message, map[string]interface{}{
		"job_id": job.Id.String(),
		"step":   step,
	})
	return h.updateJob(ctx, job, step, message)
}

// outlierCluster reads or lazily creates the aspect's single outlier
// cluster.
func (h *Handler) outlierCluster(ctx context.Context, tx *Transaction, aspectId uuid.UUID) (*entity.Cluster, error) {
	existing, err := tx.Repos().ClusterRepository().FindOne(ctx,
		specification.ByAspectID{AspectID: aspectId},
		specification.OutlierOnly{},
	)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	outlier := &entity.Cluster{
		Id:        uuid.New(),
		AspectId:  aspectId,
		Name:      "Outliers",
		IsOutlier: true,
	}
	if err := tx.Repos().ClusterRepository().Create(ctx, outlier); err != nil {
		return nil, err
	}
	return outlier, nil
}

// extract is the shared extraction tail: every cluster of the aspect gets
// its centroid, member similarities, representative documents and map
// position refreshed; the target clusters additionally get new keywords and
// (unless suppressed by is_user_edited or the outlier flag) a new name.
func (h *Handler) extract(ctx context.Context, tx *Transaction, aspect *entity.Aspect, targetIds map[uuid.UUID]bool) error {
	clusters, err := tx.Repos().ClusterRepository().FindAll(ctx,
		specification.ByAspectID{AspectID: aspect.Id},
	)
	if err != nil {
		return err
	}
	sort.Slice(clusters, func(i, j int) bool {
		return clusters[i].Id.String() < clusters[j].Id.String()
	})

	var targets []*entity.Cluster
	for _, cluster := range clusters {
		if err := h.centroids.RefreshCluster(ctx, tx, aspect, cluster); err != nil {
			return err
		}
		if targetIds[cluster.Id] {
			targets = append(targets, cluster)
		}
	}

	if len(targets) == 0 {
		return nil
	}
	if err := h.keywords.ExtractKeywords(ctx, tx, aspect, targets); err != nil {
		return err
	}
	return h.namer.NameClusters(ctx, tx, targets)
}

// admitDocuments runs modification, embedding and visualization projection
// over the documents and creates their DocumentAspect rows. Returns the
// embeddings in document order.
func (h *Handler) admitDocuments(ctx context.Context, tx *Transaction, aspect *entity.Aspect, docs []*entity.SourceDocument) ([][]float32, error) {
	contents, err := h.pipeline.ModifyDocuments(ctx, aspect, docs)
	if err != nil {
		return nil, err
	}

	vectors, err := h.pipeline.EmbedContents(ctx, aspect, contents, nil)
	if err != nil {
		return nil, err
	}

	coords, err := h.pipeline.ProjectForVisualization(ctx, aspect, vectors)
	if err != nil {
		return nil, err
	}

	keys := make([]vectorstore.Key, len(docs))
	for i, doc := range docs {
		keys[i] = vectorstore.DocumentKey(aspect.Id, doc.Id)
	}
	if err := tx.AddEmbeddings(keys, vectors); err != nil {
		return nil, err
	}

	for i, doc := range docs {
		docAspect := &entity.DocumentAspect{
			SdocId:       doc.Id,
			AspectId:     aspect.Id,
			Content:      contents[i],
			X:            coords[i][0],
			Y:            coords[i][1],
			EmbeddingRef: uuid.New(),
		}
		if err := tx.Repos().DocumentAspectRepository().Create(ctx, docAspect); err != nil {
			return nil, err
		}
	}

	return vectors, nil
}

func (h *Handler) opCreateAspect(ctx context.Context, tx *Transaction, job *entity.PerspectivesJob, aspect *entity.Aspect) error {
	if err := h.progress(ctx, job, 0, "Modifying documents"); err != nil {
		return err
	}

	docs, err := tx.Repos().SourceDocumentRepository().FindEligibleForAspect(ctx,
		aspect.ProjectId, aspect.Id, aspect.Modality, aspect.SelectionTagId)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("no eligible documents for aspect %s", aspect.Id)
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].Id.String() < docs[j].Id.String()
	})

	if err := h.progress(ctx, job, 1, fmt.Sprintf("Embedding %d documents", len(docs))); err != nil {
		return err
	}
	vectors, err := h.admitDocuments(ctx, tx, aspect, docs)
	if err != nil {
		return err
	}

	if err := h.progress(ctx, job, 2, "Clustering documents"); err != nil {
		return err
	}
	labels, err := h.pipeline.ClusterEmbeddings(aspect, vectors)
	if err != nil {
		return err
	}

	clustersByLabel := make(map[int]*entity.Cluster)
	targetIds := make(map[uuid.UUID]bool)
	for i, doc := range docs {
		cluster, ok := clustersByLabel[labels[i]]
		if !ok {
			if labels[i] == OutlierLabel {
				cluster, err = h.outlierCluster(ctx, tx, aspect.Id)
			} else {
				cluster = &entity.Cluster{Id: uuid.New(), AspectId: aspect.Id}
				err = tx.Repos().ClusterRepository().Create(ctx, cluster)
			}
			if err != nil {
				return err
			}
			clustersByLabel[labels[i]] = cluster
			targetIds[cluster.Id] = true
		}

		assignment := &entity.DocumentCluster{
			SdocId:    doc.Id,
			AspectId:  aspect.Id,
			ClusterId: cluster.Id,
		}
		if err := tx.Repos().DocumentClusterRepository().Create(ctx, assignment); err != nil {
			return err
		}
	}

	if err := h.progress(ctx, job, 3, "Extracting clusters"); err != nil {
		return err
	}
	return h.extract(ctx, tx, aspect, targetIds)
}

// opAddMissingDocs admits the project's documents that entered after aspect
// creation. They are projected through the persisted reducer and assigned
// to the nearest existing cluster centroid; with no centroids yet they land
// in the outlier cluster.
func (h *Handler) opAddMissingDocs(ctx context.Context, tx *Transaction, job *entity.PerspectivesJob, aspect *entity.Aspect) error {
	if err := h.progress(ctx, job, 0, "Modifying documents"); err != nil {
		return err
	}

	docs, err := tx.Repos().SourceDocumentRepository().FindEligibleForAspect(ctx,
		aspect.ProjectId, aspect.Id, aspect.Modality, aspect.SelectionTagId)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil // nothing missing
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].Id.String() < docs[j].Id.String()
	})

	if err := h.progress(ctx, job, 1, fmt.Sprintf("Embedding %d documents", len(docs))); err != nil {
		return err
	}
	vectors, err := h.admitDocuments(ctx, tx, aspect, docs)
	if err != nil {
		return err
	}

	if err := h.progress(ctx, job, 2, "Assigning documents to clusters"); err != nil {
		return err
	}

	targetIds := make(map[uuid.UUID]bool)
	var outlier *entity.Cluster
	for i, doc := range docs {
		hit, err := h.centroids.NearestCluster(ctx, tx, vectors[i], nil)
		if err != nil {
			return err
		}

		var clusterId uuid.UUID
		var similarity float64
		if hit != nil {
			clusterId = hit.ObjectId
			similarity = hit.Score
		} else {
			if outlier == nil {
				if outlier, err = h.outlierCluster(ctx, tx, aspect.Id); err != nil {
					return err
				}
			}
			clusterId = outlier.Id
		}

		assignment := &entity.DocumentCluster{
			SdocId:     doc.Id,
			AspectId:   aspect.Id,
			ClusterId:  clusterId,
			Similarity: similarity,
		}
		if err := tx.Repos().DocumentClusterRepository().Create(ctx, assignment); err != nil {
			return err
		}
		targetIds[clusterId] = true
	}

	if err := h.progress(ctx, job, 3, "Extracting clusters"); err != nil {
		return err
	}
	return h.extract(ctx, tx, aspect, targetIds)
}

func (h *Handler) opCreateClusterWithName(ctx context.Context, tx *Transaction, job *entity.PerspectivesJob, aspect *entity.Aspect, p *dto.CreateClusterWithNameParams) error {
	if err := h.progress(ctx, job, 0, "Embedding cluster description"); err != nil {
		return err
	}

	// The synthetic document carries the user's wording; its name is final,
	// so automatic renaming is suppressed.
	cluster := &entity.Cluster{
		Id:           uuid.New(),
		AspectId:     aspect.Id,
		Name:         p.Name,
		Description:  p.Description,
		IsUserEdited: true,
	}
	if err := tx.Repos().ClusterRepository().Create(ctx, cluster); err != nil {
		return err
	}

	synthetic := strings.TrimSpace(p.Name + " " + p.Description)
	embedded, err := h.pipeline.EmbedContents(ctx, aspect, []string{synthetic}, nil)
	if err != nil {
		return err
	}
	clusterEmbedding := embedded[0]
	if err := tx.AddEmbeddings(
		[]vectorstore.Key{vectorstore.ClusterKey(aspect.Id, cluster.Id)},
		[][]float32{clusterEmbedding},
	); err != nil {
		return err
	}

	if err := h.progress(ctx, job, 1, "Reassigning documents"); err != nil {
		return err
	}

	assignments, err := tx.Repos().DocumentClusterRepository().FindAll(ctx,
		specification.ByAspectID{AspectID: aspect.Id},
	)
	if err != nil {
		return err
	}
	sort.Slice(assignments, func(i, j int) bool {
		return assignments[i].SdocId.String() < assignments[j].SdocId.String()
	})

	targetIds := map[uuid.UUID]bool{cluster.Id: true}
	for _, assignment := range assignments {
		if assignment.IsAccepted {
			continue
		}

		docEmbedding, err := tx.GetEmbeddings(ctx, []vectorstore.Key{
			vectorstore.DocumentKey(aspect.Id, assignment.SdocId),
		})
		if err != nil {
			return err
		}

		similarity := Dot(docEmbedding[0], clusterEmbedding)
		if similarity <= assignment.Similarity {
			continue
		}

		before := *assignment
		targetIds[assignment.ClusterId] = true
		assignment.ClusterId = cluster.Id
		assignment.Similarity = similarity
		if err := tx.Repos().DocumentClusterRepository().Update(ctx, assignment); err != nil {
			return err
		}
		if err := tx.RecordHistory(ctx, "document_cluster_update", before, assignment); err != nil {
			return err
		}
	}

	if err := h.progress(ctx, job, 2, "Extracting clusters"); err != nil {
		return err
	}
	return h.extract(ctx, tx, aspect, targetIds)
}

func (h *Handler) opCreateClusterWithSdocs(ctx context.Context, tx *Transaction, job *entity.PerspectivesJob, aspect *entity.Aspect, p *dto.CreateClusterWithSdocsParams) error {
	if err := h.progress(ctx, job, 0, "Creating cluster"); err != nil {
		return err
	}

	cluster := &entity.Cluster{
		Id:           uuid.New(),
		AspectId:     aspect.Id,
		Name:         p.Name,
		IsUserEdited: true,
	}
	if err := tx.Repos().ClusterRepository().Create(ctx, cluster); err != nil {
		return err
	}

	if err := h.progress(ctx, job, 1, "Assigning documents"); err != nil {
		return err
	}

	targetIds := map[uuid.UUID]bool{cluster.Id: true}
	if err := h.forceAssign(ctx, tx, aspect.Id, p.SdocIds, cluster.Id, targetIds); err != nil {
		return err
	}

	if err := h.progress(ctx, job, 2, "Extracting clusters"); err != nil {
		return err
	}
	return h.extract(ctx, tx, aspect, targetIds)
}

// forceAssign moves the documents onto the target cluster with
// is_accepted=true, bypassing any similarity comparison. Old clusters are
// added to targetIds for re-extraction.
func (h *Handler) forceAssign(ctx context.Context, tx *Transaction, aspectId uuid.UUID, sdocIds []uuid.UUID, clusterId uuid.UUID, targetIds map[uuid.UUID]bool) error {
	for _, sdocId := range sdocIds {
		assignment, err := tx.Repos().DocumentClusterRepository().FindOne(ctx,
			specification.ByAspectID{AspectID: aspectId},
			specification.BySdocID{SdocID: sdocId},
		)
		if err != nil {
			return err
		}
		if assignment == nil {
			return fmt.Errorf("document %s has no assignment in aspect %s", sdocId, aspectId)
		}

		before := *assignment
		targetIds[assignment.ClusterId] = true
		assignment.ClusterId = clusterId
		assignment.IsAccepted = true
		if err := tx.Repos().DocumentClusterRepository().Update(ctx, assignment); err != nil {
			return err
		}
		if err := tx.RecordHistory(ctx, "document_cluster_update", before, assignment); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) opRemoveCluster(ctx context.Context, tx *Transaction, job *entity.PerspectivesJob, aspect *entity.Aspect, p *dto.RemoveClusterParams) error {
	cluster, err := tx.Repos().ClusterRepository().FindOne(ctx, specification.ByID{ID: p.ClusterId})
	if err != nil {
		return err
	}
	if cluster == nil || cluster.AspectId != aspect.Id {
		return fmt.Errorf("cluster %s not found in aspect %s", p.ClusterId, aspect.Id)
	}
	if cluster.IsOutlier {
		return fmt.Errorf("the outlier cluster cannot be removed")
	}

	if err := h.progress(ctx, job, 0, "Reassigning member documents"); err != nil {
		return err
	}

	members, err := tx.Repos().DocumentClusterRepository().FindAll(ctx,
		specification.ByAspectID{AspectID: aspect.Id},
		specification.ByClusterID{ClusterID: cluster.Id},
	)
	if err != nil {
		return err
	}
	sort.Slice(members, func(i, j int) bool {
		return members[i].SdocId.String() < members[j].SdocId.String()
	})

	exclude := map[uuid.UUID]bool{cluster.Id: true}
	targetIds := make(map[uuid.UUID]bool)
	var outlier *entity.Cluster
	for _, member := range members {
		docEmbedding, err := tx.GetEmbeddings(ctx, []vectorstore.Key{
			vectorstore.DocumentKey(aspect.Id, member.SdocId),
		})
		if err != nil {
			return err
		}

		hit, err := h.centroids.NearestCluster(ctx, tx, docEmbedding[0], exclude)
		if err != nil {
			return err
		}

		before := *member
		if hit != nil {
			member.ClusterId = hit.ObjectId
			member.Similarity = hit.Score
		} else {
			if outlier == nil {
				if outlier, err = h.outlierCluster(ctx, tx, aspect.Id); err != nil {
					return err
				}
			}
			member.ClusterId = outlier.Id
			member.Similarity = 0
		}
		member.IsAccepted = false
		if err := tx.Repos().DocumentClusterRepository().Update(ctx, member); err != nil {
			return err
		}
		if err := tx.RecordHistory(ctx, "document_cluster_update", before, member); err != nil {
			return err
		}
		targetIds[member.ClusterId] = true
	}

	if err := h.progress(ctx, job, 1, "Removing cluster"); err != nil {
		return err
	}
	if err := h.deleteCluster(ctx, tx, aspect.Id, cluster); err != nil {
		return err
	}

	if err := h.progress(ctx, job, 2, "Extracting clusters"); err != nil {
		return err
	}
	return h.extract(ctx, tx, aspect, targetIds)
}

func (h *Handler) deleteCluster(ctx context.Context, tx *Transaction, aspectId uuid.UUID, cluster *entity.Cluster) error {
	if err := tx.RecordHistory(ctx, "cluster_delete", cluster, nil); err != nil {
		return err
	}
	tx.DeleteEmbedding(vectorstore.ClusterKey(aspectId, cluster.Id))
	return tx.Repos().ClusterRepository().Delete(ctx, cluster.Id)
}

func (h *Handler) opMergeClusters(ctx context.Context, tx *Transaction, job *entity.PerspectivesJob, aspect *entity.Aspect, p *dto.MergeClustersParams) error {
	keep, err := tx.Repos().ClusterRepository().FindOne(ctx, specification.ByID{ID: p.KeepClusterId})
	if err != nil {
		return err
	}
	merge, err := tx.Repos().ClusterRepository().FindOne(ctx, specification.ByID{ID: p.MergeClusterId})
	if err != nil {
		return err
	}
	if keep == nil || keep.AspectId != aspect.Id || merge == nil || merge.AspectId != aspect.Id {
		return fmt.Errorf("merge requires two clusters of aspect %s", aspect.Id)
	}

	if err := h.progress(ctx, job, 0, "Moving documents to the kept cluster"); err != nil {
		return err
	}

	members, err := tx.Repos().DocumentClusterRepository().FindAll(ctx,
		specification.ByAspectID{AspectID: aspect.Id},
		specification.ByClusterID{ClusterID: merge.Id},
	)
	if err != nil {
		return err
	}
	for _, member := range members {
		before := *member
		member.ClusterId = keep.Id
		if err := tx.Repos().DocumentClusterRepository().Update(ctx, member); err != nil {
			return err
		}
		if err := tx.RecordHistory(ctx, "document_cluster_update", before, member); err != nil {
			return err
		}
	}

	if err := h.progress(ctx, job, 1, "Removing merged cluster"); err != nil {
		return err
	}
	if err := h.deleteCluster(ctx, tx, aspect.Id, merge); err != nil {
		return err
	}

	if err := h.progress(ctx, job, 2, "Extracting clusters"); err != nil {
		return err
	}
	return h.extract(ctx, tx, aspect, map[uuid.UUID]bool{keep.Id: true})
}

func (h *Handler) opSplitCluster(ctx context.Context, tx *Transaction, job *entity.PerspectivesJob, aspect *entity.Aspect, p *dto.SplitClusterParams) error {
	cluster, err := tx.Repos().ClusterRepository().FindOne(ctx, specification.ByID{ID: p.ClusterId})
	if err != nil {
		return err
	}
	if cluster == nil || cluster.AspectId != aspect.Id {
		return fmt.Errorf("cluster %s not found in aspect %s", p.ClusterId, aspect.Id)
	}
	if cluster.IsOutlier {
		return fmt.Errorf("the outlier cluster cannot be split")
	}

	members, err := tx.Repos().DocumentClusterRepository().FindAll(ctx,
		specification.ByAspectID{AspectID: aspect.Id},
		specification.ByClusterID{ClusterID: cluster.Id},
	)
	if err != nil {
		return err
	}
	sort.Slice(members, func(i, j int) bool {
		return members[i].SdocId.String() < members[j].SdocId.String()
	})

	if err := h.progress(ctx, job, 0, "Removing cluster"); err != nil {
		return err
	}
	if err := h.deleteCluster(ctx, tx, aspect.Id, cluster); err != nil {
		return err
	}

	if err := h.progress(ctx, job, 1, "Re-clustering member documents"); err != nil {
		return err
	}

	keys := make([]vectorstore.Key, len(members))
	for i, member := range members {
		keys[i] = vectorstore.DocumentKey(aspect.Id, member.SdocId)
	}
	vectors, err := tx.GetEmbeddings(ctx, keys)
	if err != nil {
		return err
	}

	labels, err := h.pipeline.ClusterEmbeddings(aspect, vectors)
	if err != nil {
		return err
	}

	clustersByLabel := make(map[int]*entity.Cluster)
	targetIds := make(map[uuid.UUID]bool)
	for i, member := range members {
		newCluster, ok := clustersByLabel[labels[i]]
		if !ok {
			if labels[i] == OutlierLabel {
				newCluster, err = h.outlierCluster(ctx, tx, aspect.Id)
			} else {
				newCluster = &entity.Cluster{Id: uuid.New(), AspectId: aspect.Id}
				err = tx.Repos().ClusterRepository().Create(ctx, newCluster)
			}
			if err != nil {
				return err
			}
			clustersByLabel[labels[i]] = newCluster
			targetIds[newCluster.Id] = true
		}

		before := *member
		member.ClusterId = newCluster.Id
		member.IsAccepted = false
		if err := tx.Repos().DocumentClusterRepository().Update(ctx, member); err != nil {
			return err
		}
		if err := tx.RecordHistory(ctx, "document_cluster_update", before, member); err != nil {
			return err
		}
	}

	if err := h.progress(ctx, job, 2, "Extracting clusters"); err != nil {
		return err
	}
	return h.extract(ctx, tx, aspect, targetIds)
}

func (h *Handler) opChangeCluster(ctx context.Context, tx *Transaction, job *entity.PerspectivesJob, aspect *entity.Aspect, p *dto.ChangeClusterParams) error {
	if err := h.progress(ctx, job, 0, "Assigning documents"); err != nil {
		return err
	}

	var target *entity.Cluster
	var err error
	if p.ClusterId == uuid.Nil {
		target, err = h.outlierCluster(ctx, tx, aspect.Id)
	} else {
		target, err = tx.Repos().ClusterRepository().FindOne(ctx, specification.ByID{ID: p.ClusterId})
		if err == nil && (target == nil || target.AspectId != aspect.Id) {
			err = fmt.Errorf("cluster %s not found in aspect %s", p.ClusterId, aspect.Id)
		}
	}
	if err != nil {
		return err
	}

	targetIds := map[uuid.UUID]bool{target.Id: true}
	if err := h.forceAssign(ctx, tx, aspect.Id, p.SdocIds, target.Id, targetIds); err != nil {
		return err
	}

	if err := h.progress(ctx, job, 1, "Extracting clusters"); err != nil {
		return err
	}
	return h.extract(ctx, tx, aspect, targetIds)
}

func (h *Handler) opRefineModel(ctx context.Context, tx *Transaction, job *entity.PerspectivesJob, aspect *entity.Aspect) error {
	if err := h.progress(ctx, job, 0, "Deriving training data"); err != nil {
		return err
	}

	clusters, err := tx.Repos().ClusterRepository().FindAll(ctx,
		specification.ByAspectID{AspectID: aspect.Id},
	)
	if err != nil {
		return err
	}
	sort.Slice(clusters, func(i, j int) bool {
		return clusters[i].Id.String() < clusters[j].Id.String()
	})

	// Training docs per cluster: human-accepted assignments, falling back
	// to the cluster's stored representative documents.
	train := &TrainData{}
	anchorOldCluster := make(map[uuid.UUID]uuid.UUID)
	for _, cluster := range clusters {
		if cluster.IsOutlier {
			continue
		}

		accepted, err := tx.Repos().DocumentClusterRepository().FindAll(ctx,
			specification.ByAspectID{AspectID: aspect.Id},
			specification.ByClusterID{ClusterID: cluster.Id},
			specification.AcceptedOnly{},
		)
		if err != nil {
			return err
		}

		var trainSdocs []uuid.UUID
		if len(accepted) > 0 {
			for _, assignment := range accepted {
				trainSdocs = append(trainSdocs, assignment.SdocId)
			}
		} else {
			trainSdocs = cluster.TopDocs
		}
		sort.Slice(trainSdocs, func(i, j int) bool {
			return trainSdocs[i].String() < trainSdocs[j].String()
		})

		for _, sdocId := range trainSdocs {
			docAspect, err := tx.Repos().DocumentAspectRepository().FindOne(ctx,
				specification.ByAspectID{AspectID: aspect.Id},
				specification.BySdocID{SdocID: sdocId},
			)
			if err != nil {
				return err
			}
			if docAspect == nil {
				continue
			}
			train.Docs = append(train.Docs, docAspect.Content)
			train.Labels = append(train.Labels, cluster.Id.String())
			anchorOldCluster[sdocId] = cluster.Id
		}
	}
	if len(train.Docs) == 0 {
		return fmt.Errorf("no training documents available for refinement")
	}

	// A fresh timestamped model name forces new embeddings and a new
	// visualization reducer instead of reusing cached artifacts.
	aspect.EmbeddingModel = fmt.Sprintf("%s-%s", aspect.EmbeddingModel, time.Now().Format("20060102150405"))
	if err := tx.Repos().AspectRepository().Update(ctx, aspect); err != nil {
		return err
	}

	if err := h.progress(ctx, job, 1, "Re-embedding documents with the refined model"); err != nil {
		return err
	}

	docAspects, err := tx.Repos().DocumentAspectRepository().FindAll(ctx,
		specification.ByAspectID{AspectID: aspect.Id},
	)
	if err != nil {
		return err
	}
	sort.Slice(docAspects, func(i, j int) bool {
		return docAspects[i].SdocId.String() < docAspects[j].SdocId.String()
	})

	contents := make([]string, len(docAspects))
	for i, docAspect := range docAspects {
		contents[i] = docAspect.Content
	}

	vectors, err := h.pipeline.EmbedContents(ctx, aspect, contents, train)
	if err != nil {
		return err
	}

	coords, err := h.pipeline.ProjectForVisualization(ctx, aspect, vectors)
	if err != nil {
		return err
	}

	keys := make([]vectorstore.Key, len(docAspects))
	for i, docAspect := range docAspects {
		keys[i] = vectorstore.DocumentKey(aspect.Id, docAspect.SdocId)
		docAspect.X = coords[i][0]
		docAspect.Y = coords[i][1]
		docAspect.EmbeddingRef = uuid.New()
		if err := tx.Repos().DocumentAspectRepository().Update(ctx, docAspect); err != nil {
			return err
		}
	}
	if err := tx.AddEmbeddings(keys, vectors); err != nil {
		return err
	}

	if err := h.progress(ctx, job, 2, "Re-clustering documents"); err != nil {
		return err
	}

	labels, err := h.pipeline.ClusterEmbeddings(aspect, vectors)
	if err != nil {
		return err
	}

	outlier, err := h.outlierCluster(ctx, tx, aspect.Id)
	if err != nil {
		return err
	}

	newLabels := make(map[uuid.UUID]int, len(docAspects))
	var anchors []Anchor
	anchorSdocs := make(map[uuid.UUID]bool)
	for i, docAspect := range docAspects {
		newLabels[docAspect.SdocId] = labels[i]
		if oldClusterId, ok := anchorOldCluster[docAspect.SdocId]; ok {
			anchors = append(anchors, Anchor{
				SdocId:       docAspect.SdocId,
				OldClusterId: oldClusterId,
				NewLabel:     labels[i],
			})
			anchorSdocs[docAspect.SdocId] = true
		}
	}

	mapping := h.identity.Resolve(anchors, outlier.Id)

	// Labels no anchor voted for have no prior identity; they become fresh
	// clusters.
	labelSet := make(map[int]bool)
	for _, label := range labels {
		labelSet[label] = true
	}
	freshLabels := make([]int, 0)
	for label := range labelSet {
		if _, mapped := mapping[label]; !mapped {
			freshLabels = append(freshLabels, label)
		}
	}
	sort.Ints(freshLabels)
	targetIds := make(map[uuid.UUID]bool)
	for _, label := range freshLabels {
		fresh := &entity.Cluster{Id: uuid.New(), AspectId: aspect.Id}
		if err := tx.Repos().ClusterRepository().Create(ctx, fresh); err != nil {
			return err
		}
		mapping[label] = fresh.Id
		targetIds[fresh.Id] = true
	}

	touched, err := h.identity.Apply(ctx, tx, aspect.Id, newLabels, mapping, anchorSdocs)
	if err != nil {
		return err
	}
	for clusterId := range touched {
		targetIds[clusterId] = true
	}
	// Refinement re-extracts every cluster.
	for _, cluster := range clusters {
		targetIds[cluster.Id] = true
	}

	if err := h.progress(ctx, job, 3, "Extracting clusters"); err != nil {
		return err
	}
	return h.extract(ctx, tx, aspect, targetIds)
}

// opResetModel discards all learned state: persisted reducers are removed,
// the embedding model reverts to the configured default, and the aspect is
// re-embedded and re-clustered from scratch.
func (h *Handler) opResetModel(ctx context.Context, tx *Transaction, job *entity.PerspectivesJob, aspect *entity.Aspect) error {
	if err := h.progress(ctx, job, 0, "Resetting model state"); err != nil {
		return err
	}

	if err := h.reducers.DeleteAspect(aspect.ProjectId, aspect.Id); err != nil {
		return err
	}

	aspect.EmbeddingModel = h.defaultEmbeddingModel
	if err := tx.Repos().AspectRepository().Update(ctx, aspect); err != nil {
		return err
	}

	// Old clusters and their centroids go away entirely.
	oldClusters, err := tx.Repos().ClusterRepository().FindAll(ctx,
		specification.ByAspectID{AspectID: aspect.Id},
	)
	if err != nil {
		return err
	}
	for _, cluster := range oldClusters {
		tx.DeleteEmbedding(vectorstore.ClusterKey(aspect.Id, cluster.Id))
		if err := tx.Repos().ClusterRepository().Delete(ctx, cluster.Id); err != nil {
			return err
		}
	}

	if err := h.progress(ctx, job, 1, "Re-embedding documents"); err != nil {
		return err
	}

	docAspects, err := tx.Repos().DocumentAspectRepository().FindAll(ctx,
		specification.ByAspectID{AspectID: aspect.Id},
	)
	if err != nil {
		return err
	}
	if len(docAspects) == 0 {
		return fmt.Errorf("aspect %s has no documents to reset", aspect.Id)
	}
	sort.Slice(docAspects, func(i, j int) bool {
		return docAspects[i].SdocId.String() < docAspects[j].SdocId.String()
	})

	contents := make([]string, len(docAspects))
	for i, docAspect := range docAspects {
		contents[i] = docAspect.Content
	}

	vectors, err := h.pipeline.EmbedContents(ctx, aspect, contents, nil)
	if err != nil {
		return err
	}
	coords, err := h.pipeline.ProjectForVisualization(ctx, aspect, vectors)
	if err != nil {
		return err
	}

	keys := make([]vectorstore.Key, len(docAspects))
	for i, docAspect := range docAspects {
		keys[i] = vectorstore.DocumentKey(aspect.Id, docAspect.SdocId)
		docAspect.X = coords[i][0]
		docAspect.Y = coords[i][1]
		docAspect.EmbeddingRef = uuid.New()
		if err := tx.Repos().DocumentAspectRepository().Update(ctx, docAspect); err != nil {
			return err
		}
	}
	if err := tx.AddEmbeddings(keys, vectors); err != nil {
		return err
	}

	if err := h.progress(ctx, job, 2, "Clustering documents"); err != nil {
		return err
	}

	labels, err := h.pipeline.ClusterEmbeddings(aspect, vectors)
	if err != nil {
		return err
	}

	clustersByLabel := make(map[int]*entity.Cluster)
	targetIds := make(map[uuid.UUID]bool)
	for i, docAspect := range docAspects {
		cluster, ok := clustersByLabel[labels[i]]
		if !ok {
			if labels[i] == OutlierLabel {
				cluster, err = h.outlierCluster(ctx, tx, aspect.Id)
			} else {
				cluster = &entity.Cluster{Id: uuid.New(), AspectId: aspect.Id}
				err = tx.Repos().ClusterRepository().Create(ctx, cluster)
			}
			if err != nil {
				return err
			}
			clustersByLabel[labels[i]] = cluster
			targetIds[cluster.Id] = true
		}

		assignment, err := tx.Repos().DocumentClusterRepository().FindOne(ctx,
			specification.ByAspectID{AspectID: aspect.Id},
			specification.BySdocID{SdocID: docAspect.SdocId},
		)
		if err != nil {
			return err
		}
		if assignment == nil {
			assignment = &entity.DocumentCluster{
				SdocId:    docAspect.SdocId,
				AspectId:  aspect.Id,
				ClusterId: cluster.Id,
			}
			if err := tx.Repos().DocumentClusterRepository().Create(ctx, assignment); err != nil {
				return err
			}
			continue
		}
		assignment.ClusterId = cluster.Id
		assignment.IsAccepted = false
		assignment.Similarity = 0
		if err := tx.Repos().DocumentClusterRepository().Update(ctx, assignment); err != nil {
			return err
		}
	}

	if err := h.progress(ctx, job, 3, "Extracting clusters"); err != nil {
		return err
	}
	return h.extract(ctx, tx, aspect, targetIds)
}

// opRecomputeClusterTitle regenerates only the name and description of one
// cluster from its stored keywords. The user asked for it explicitly, so
// the is_user_edited guard does not apply.
func (h *Handler) opRecomputeClusterTitle(ctx context.Context, tx *Transaction, aspect *entity.Aspect, p *dto.RecomputeClusterTitleParams) error {
	cluster, err := tx.Repos().ClusterRepository().FindOne(ctx, specification.ByID{ID: p.ClusterId})
	if err != nil {
		return err
	}
	if cluster == nil || cluster.AspectId != aspect.Id {
		return fmt.Errorf("cluster %s not found in aspect %s", p.ClusterId, aspect.Id)
	}
	if len(cluster.TopWords) == 0 {
		return fmt.Errorf("cluster %s has no keywords to derive a name from", cluster.Id)
	}

	title, description, err := h.namer.nameOne(ctx, cluster.TopWords)
	if err != nil {
		return err
	}

	before := *cluster
	cluster.Name = title
	cluster.Description = description
	if err := tx.Repos().ClusterRepository().Update(ctx, cluster); err != nil {
		return err
	}
	return tx.RecordHistory(ctx, "cluster_update", before, cluster)
}
