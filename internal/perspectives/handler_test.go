package perspectives

import (
	"fmt"
	"sort"
	"testing"

	"perspectives-be/internal/dto"
	"perspectives-be/internal/entity"
	"perspectives-be/internal/repository/specification"
	"perspectives-be/pkg/vectorstore"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) loadClusters(t *testing.T) (regular []*entity.Cluster, outlier *entity.Cluster) {
	t.Helper()
	uow := f.factory.NewUnitOfWork(f.ctx)
	clusters, err := uow.ClusterRepository().FindAll(f.ctx, specification.ByAspectID{AspectID: f.aspect.Id})
	require.NoError(t, err)
	for _, c := range clusters {
		if c.IsOutlier {
			outlier = c
		} else {
			regular = append(regular, c)
		}
	}
	sort.Slice(regular, func(i, j int) bool { return regular[i].Id.String() < regular[j].Id.String() })
	return regular, outlier
}

func (f *fixture) loadAssignments(t *testing.T) []*entity.DocumentCluster {
	t.Helper()
	uow := f.factory.NewUnitOfWork(f.ctx)
	assignments, err := uow.DocumentClusterRepository().FindAll(f.ctx, specification.ByAspectID{AspectID: f.aspect.Id})
	require.NoError(t, err)
	return assignments
}

func TestCreateAspectJob(t *testing.T) {
	f := newFixture(t)
	f.seedTwoTopicCorpus(t)

	job := f.runJob(t, entity.JobTypeCreateAspect, nil)

	uow := f.factory.NewUnitOfWork(f.ctx)
	reloaded, err := uow.PerspectivesJobRepository().FindOne(f.ctx, specification.ByID{ID: job.Id})
	require.NoError(t, err)
	assert.Equal(t, entity.JobStatusFinished, reloaded.Status)
	assert.Equal(t, len(reloaded.Steps), reloaded.CurrentStep)

	// One DocumentAspect and one DocumentCluster per document.
	docAspects, err := uow.DocumentAspectRepository().FindAll(f.ctx, specification.ByAspectID{AspectID: f.aspect.Id})
	require.NoError(t, err)
	assert.Len(t, docAspects, len(f.docs))

	assignments := f.loadAssignments(t)
	assert.Len(t, assignments, len(f.docs))

	regular, _ := f.loadClusters(t)
	require.GreaterOrEqual(t, len(regular), 2, "expected the two topics to separate")

	// Every document embedding landed in the vector store.
	for _, doc := range f.docs {
		assert.True(t, f.vectors.Has(vectorstore.DocumentKey(f.aspect.Id, doc.Id)))
	}

	for _, cluster := range regular {
		assert.NotEmpty(t, cluster.TopWords, "cluster %s has no keywords", cluster.Id)
		assert.Equal(t, "Stub Topic", cluster.Name)
		assert.True(t, f.vectors.Has(vectorstore.ClusterKey(f.aspect.Id, cluster.Id)))
	}
}

func TestCreateAspectTopDocsAreLeastSimilar(t *testing.T) {
	f := newFixture(t)
	f.seedTwoTopicCorpus(t)
	f.runJob(t, entity.JobTypeCreateAspect, nil)

	regular, _ := f.loadClusters(t)
	assignments := f.loadAssignments(t)

	simBySdoc := make(map[uuid.UUID]float64)
	membersByCluster := make(map[uuid.UUID][]*entity.DocumentCluster)
	for _, a := range assignments {
		simBySdoc[a.SdocId] = a.Similarity
		membersByCluster[a.ClusterId] = append(membersByCluster[a.ClusterId], a)
	}

	for _, cluster := range regular {
		members := membersByCluster[cluster.Id]
		if len(members) == 0 {
			continue
		}
		require.NotEmpty(t, cluster.TopDocs)

		// Ascending similarity within top_docs.
		for i := 1; i < len(cluster.TopDocs); i++ {
			assert.LessOrEqual(t, simBySdoc[cluster.TopDocs[i-1]], simBySdoc[cluster.TopDocs[i]])
		}

		// The first representative is the least similar member.
		minSim := members[0].Similarity
		for _, m := range members {
			if m.Similarity < minSim {
				minSim = m.Similarity
			}
		}
		assert.Equal(t, minSim, simBySdoc[cluster.TopDocs[0]])
	}
}

func TestCreateAspectFailureRollsBackBothStores(t *testing.T) {
	f := newFixture(t)
	f.seedTwoTopicCorpus(t)
	f.embedder.err = fmt.Errorf("embedding service down")

	job := f.startJob(t, entity.JobTypeCreateAspect, nil)
	err := f.handler.Run(f.ctx, job.Id)
	require.Error(t, err)

	uow := f.factory.NewUnitOfWork(f.ctx)
	reloaded, err := uow.PerspectivesJobRepository().FindOne(f.ctx, specification.ByID{ID: job.Id})
	require.NoError(t, err)
	assert.Equal(t, entity.JobStatusError, reloaded.Status)
	assert.Contains(t, reloaded.StatusMessage, "embedding service down")

	docAspects, err := uow.DocumentAspectRepository().FindAll(f.ctx, specification.ByAspectID{AspectID: f.aspect.Id})
	require.NoError(t, err)
	assert.Empty(t, docAspects)
	assert.Equal(t, 0, f.vectors.Len())
}

func TestRunRefusesTerminalJob(t *testing.T) {
	f := newFixture(t)
	f.seedTwoTopicCorpus(t)
	job := f.runJob(t, entity.JobTypeCreateAspect, nil)

	err := f.handler.Run(f.ctx, job.Id)
	assert.Error(t, err)
}

func TestMergeClustersJob(t *testing.T) {
	f := newFixture(t)
	f.seedTwoTopicCorpus(t)
	f.runJob(t, entity.JobTypeCreateAspect, nil)

	regular, _ := f.loadClusters(t)
	require.GreaterOrEqual(t, len(regular), 2)
	keep, merge := regular[0], regular[1]

	before := f.loadAssignments(t)
	var expected []uuid.UUID
	for _, a := range before {
		if a.ClusterId == keep.Id || a.ClusterId == merge.Id {
			expected = append(expected, a.SdocId)
		}
	}

	f.runJob(t, entity.JobTypeMergeClusters, dto.MergeClustersParams{
		KeepClusterId:  keep.Id,
		MergeClusterId: merge.Id,
	})

	uow := f.factory.NewUnitOfWork(f.ctx)
	gone, err := uow.ClusterRepository().FindOne(f.ctx, specification.ByID{ID: merge.Id})
	require.NoError(t, err)
	assert.Nil(t, gone)
	assert.False(t, f.vectors.Has(vectorstore.ClusterKey(f.aspect.Id, merge.Id)))

	after := f.loadAssignments(t)
	var kept []uuid.UUID
	for _, a := range after {
		assert.NotEqual(t, merge.Id, a.ClusterId)
		if a.ClusterId == keep.Id {
			kept = append(kept, a.SdocId)
		}
	}
	assert.ElementsMatch(t, expected, kept)
}

func TestRemoveClusterJob(t *testing.T) {
	f := newFixture(t)
	f.seedTwoTopicCorpus(t)
	f.runJob(t, entity.JobTypeCreateAspect, nil)

	regular, _ := f.loadClusters(t)
	require.GreaterOrEqual(t, len(regular), 2)
	removed := regular[0]

	var movedSdocs []uuid.UUID
	for _, a := range f.loadAssignments(t) {
		if a.ClusterId == removed.Id {
			movedSdocs = append(movedSdocs, a.SdocId)
		}
	}
	require.NotEmpty(t, movedSdocs)

	f.runJob(t, entity.JobTypeRemoveCluster, dto.RemoveClusterParams{ClusterId: removed.Id})

	uow := f.factory.NewUnitOfWork(f.ctx)
	gone, err := uow.ClusterRepository().FindOne(f.ctx, specification.ByID{ID: removed.Id})
	require.NoError(t, err)
	assert.Nil(t, gone)

	byId := make(map[uuid.UUID]*entity.DocumentCluster)
	for _, a := range f.loadAssignments(t) {
		byId[a.SdocId] = a
	}
	for _, sdocId := range movedSdocs {
		a := byId[sdocId]
		require.NotNil(t, a)
		assert.NotEqual(t, removed.Id, a.ClusterId)
		assert.False(t, a.IsAccepted)
	}
}

func TestRemoveOutlierClusterFails(t *testing.T) {
	f := newFixture(t)
	f.seedTwoTopicCorpus(t)
	f.runJob(t, entity.JobTypeCreateAspect, nil)

	// The outlier cluster may not exist yet; force it via a change job.
	f.runJob(t, entity.JobTypeChangeCluster, dto.ChangeClusterParams{
		SdocIds: []uuid.UUID{f.docs[0].Id},
	})
	_, outlier := f.loadClusters(t)
	require.NotNil(t, outlier)

	job := f.startJob(t, entity.JobTypeRemoveCluster, dto.RemoveClusterParams{ClusterId: outlier.Id})
	err := f.handler.Run(f.ctx, job.Id)
	assert.Error(t, err)
}

func TestChangeClusterToOutlier(t *testing.T) {
	f := newFixture(t)
	f.seedTwoTopicCorpus(t)
	f.runJob(t, entity.JobTypeCreateAspect, nil)

	target := []uuid.UUID{f.docs[0].Id, f.docs[1].Id}
	f.runJob(t, entity.JobTypeChangeCluster, dto.ChangeClusterParams{SdocIds: target})

	_, outlier := f.loadClusters(t)
	require.NotNil(t, outlier)

	byId := make(map[uuid.UUID]*entity.DocumentCluster)
	for _, a := range f.loadAssignments(t) {
		byId[a.SdocId] = a
	}
	for _, sdocId := range target {
		a := byId[sdocId]
		require.NotNil(t, a)
		assert.Equal(t, outlier.Id, a.ClusterId)
		assert.True(t, a.IsAccepted)
	}
}

func TestCreateClusterWithSdocsJob(t *testing.T) {
	f := newFixture(t)
	f.seedTwoTopicCorpus(t)
	f.runJob(t, entity.JobTypeCreateAspect, nil)

	target := []uuid.UUID{f.docs[0].Id, f.docs[8].Id}
	f.runJob(t, entity.JobTypeCreateClusterWithSdocs, dto.CreateClusterWithSdocsParams{
		Name:    "Handpicked",
		SdocIds: target,
	})

	regular, _ := f.loadClusters(t)
	var created *entity.Cluster
	for _, c := range regular {
		if c.Name == "Handpicked" {
			created = c
		}
	}
	require.NotNil(t, created)
	assert.True(t, created.IsUserEdited)

	byId := make(map[uuid.UUID]*entity.DocumentCluster)
	for _, a := range f.loadAssignments(t) {
		byId[a.SdocId] = a
	}
	for _, sdocId := range target {
		require.NotNil(t, byId[sdocId])
		assert.Equal(t, created.Id, byId[sdocId].ClusterId)
		assert.True(t, byId[sdocId].IsAccepted)
	}
}

func TestCreateClusterWithNameKeepsAcceptedDocs(t *testing.T) {
	f := newFixture(t)
	f.seedTwoTopicCorpus(t)
	f.runJob(t, entity.JobTypeCreateAspect, nil)

	// Accept one sports document so the new cluster cannot steal it.
	accepted := f.docs[0].Id
	uow := f.factory.NewUnitOfWork(f.ctx)
	assignment, err := uow.DocumentClusterRepository().FindOne(f.ctx,
		specification.ByAspectID{AspectID: f.aspect.Id},
		specification.BySdocID{SdocID: accepted},
	)
	require.NoError(t, err)
	require.NotNil(t, assignment)
	originalCluster := assignment.ClusterId
	assignment.IsAccepted = true
	require.NoError(t, uow.DocumentClusterRepository().Update(f.ctx, assignment))

	f.runJob(t, entity.JobTypeCreateClusterWithName, dto.CreateClusterWithNameParams{
		Name:        "match reports",
		Description: "a late goal decided the match",
	})

	after, err := uow.DocumentClusterRepository().FindOne(f.ctx,
		specification.ByAspectID{AspectID: f.aspect.Id},
		specification.BySdocID{SdocID: accepted},
	)
	require.NoError(t, err)
	assert.Equal(t, originalCluster, after.ClusterId)
	assert.True(t, after.IsAccepted)
}

func TestRefineModelJob(t *testing.T) {
	f := newFixture(t)
	f.seedTwoTopicCorpus(t)
	f.runJob(t, entity.JobTypeCreateAspect, nil)

	regularBefore, _ := f.loadClusters(t)
	require.GreaterOrEqual(t, len(regularBefore), 2)
	idsBefore := make(map[uuid.UUID]bool)
	for _, c := range regularBefore {
		idsBefore[c.Id] = true
	}

	// Accept one document per cluster as supervision.
	uow := f.factory.NewUnitOfWork(f.ctx)
	for _, cluster := range regularBefore {
		members, err := uow.DocumentClusterRepository().FindAll(f.ctx,
			specification.ByAspectID{AspectID: f.aspect.Id},
			specification.ByClusterID{ClusterID: cluster.Id},
		)
		require.NoError(t, err)
		require.NotEmpty(t, members)
		members[0].IsAccepted = true
		require.NoError(t, uow.DocumentClusterRepository().Update(f.ctx, members[0]))
	}

	modelBefore := f.aspect.EmbeddingModel
	f.runJob(t, entity.JobTypeRefineModel, nil)

	reloaded, err := uow.AspectRepository().FindOne(f.ctx, specification.ByID{ID: f.aspect.Id})
	require.NoError(t, err)
	assert.NotEqual(t, modelBefore, reloaded.EmbeddingModel)

	// Identity mapping kept the anchored cluster ids alive.
	regularAfter, _ := f.loadClusters(t)
	for _, c := range regularAfter {
		assert.True(t, idsBefore[c.Id], "cluster %s appeared without an anchor", c.Id)
	}

	// Accepted assignments survived re-clustering.
	for _, a := range f.loadAssignments(t) {
		if a.IsAccepted {
			assert.True(t, idsBefore[a.ClusterId])
		}
	}
}

func TestResetModelJob(t *testing.T) {
	f := newFixture(t)
	f.seedTwoTopicCorpus(t)
	f.runJob(t, entity.JobTypeCreateAspect, nil)
	f.runJob(t, entity.JobTypeRefineModel, nil)

	f.runJob(t, entity.JobTypeResetModel, nil)

	uow := f.factory.NewUnitOfWork(f.ctx)
	reloaded, err := uow.AspectRepository().FindOne(f.ctx, specification.ByID{ID: f.aspect.Id})
	require.NoError(t, err)
	assert.Equal(t, "nomic-embed-text", reloaded.EmbeddingModel)

	// Every document still has exactly one assignment, now unaccepted.
	assignments := f.loadAssignments(t)
	assert.Len(t, assignments, len(f.docs))
	for _, a := range assignments {
		assert.False(t, a.IsAccepted)
	}

	regular, _ := f.loadClusters(t)
	require.NotEmpty(t, regular)
	for _, c := range regular {
		assert.NotEmpty(t, c.TopWords)
	}
}

func TestRecomputeClusterTitleJob(t *testing.T) {
	f := newFixture(t)
	f.seedTwoTopicCorpus(t)
	f.runJob(t, entity.JobTypeCreateAspect, nil)

	regular, _ := f.loadClusters(t)
	require.NotEmpty(t, regular)
	target := regular[0]

	f.handler.namer = NewClusterNamer(&stubLLM{title: "Renamed"})
	f.runJob(t, entity.JobTypeRecomputeClusterTitle, dto.RecomputeClusterTitleParams{ClusterId: target.Id})

	uow := f.factory.NewUnitOfWork(f.ctx)
	reloaded, err := uow.ClusterRepository().FindOne(f.ctx, specification.ByID{ID: target.Id})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", reloaded.Name)
}

func TestSplitClusterJob(t *testing.T) {
	f := newFixture(t)
	f.seedTwoTopicCorpus(t)
	f.runJob(t, entity.JobTypeCreateAspect, nil)

	regular, _ := f.loadClusters(t)
	require.GreaterOrEqual(t, len(regular), 2)

	// Merge everything into one cluster, then split it back apart.
	f.runJob(t, entity.JobTypeMergeClusters, dto.MergeClustersParams{
		KeepClusterId:  regular[0].Id,
		MergeClusterId: regular[1].Id,
	})

	f.runJob(t, entity.JobTypeSplitCluster, dto.SplitClusterParams{ClusterId: regular[0].Id})

	uow := f.factory.NewUnitOfWork(f.ctx)
	gone, err := uow.ClusterRepository().FindOne(f.ctx, specification.ByID{ID: regular[0].Id})
	require.NoError(t, err)
	assert.Nil(t, gone)

	// All documents still assigned somewhere.
	assignments := f.loadAssignments(t)
	assert.Len(t, assignments, len(f.docs))
	for _, a := range assignments {
		assert.NotEqual(t, regular[0].Id, a.ClusterId)
	}
}

func TestAddMissingDocsJob(t *testing.T) {
	f := newFixture(t)
	f.seedTwoTopicCorpus(t)
	f.runJob(t, entity.JobTypeCreateAspect, nil)

	countBefore := len(f.loadAssignments(t))

	// Two late arrivals, one per topic.
	uow := f.factory.NewUnitOfWork(f.ctx)
	late := []*entity.SourceDocument{
		{Id: uuid.New(), ProjectId: f.projectId, Filename: "late-0.txt", Content: "an extra time match winner", Modality: entity.ModalityText},
		{Id: uuid.New(), ProjectId: f.projectId, Filename: "late-1.txt", Content: "a stew recipe with lentils", Modality: entity.ModalityText},
	}
	for _, doc := range late {
		require.NoError(t, uow.SourceDocumentRepository().Create(f.ctx, doc))
	}

	f.runJob(t, entity.JobTypeAddMissingDocs, nil)

	assignments := f.loadAssignments(t)
	assert.Len(t, assignments, countBefore+2)

	byId := make(map[uuid.UUID]*entity.DocumentCluster)
	for _, a := range assignments {
		byId[a.SdocId] = a
	}
	for _, doc := range late {
		a := byId[doc.Id]
		require.NotNil(t, a, "late document %s was not admitted", doc.Filename)
		assert.False(t, a.IsAccepted)
		assert.True(t, f.vectors.Has(vectorstore.DocumentKey(f.aspect.Id, doc.Id)))
	}

	// Running it again is a no-op.
	f.runJob(t, entity.JobTypeAddMissingDocs, nil)
	assert.Len(t, f.loadAssignments(t), countBefore+2)
}

func TestStepsForJobTypeCoversAllTypes(t *testing.T) {
	types := []entity.JobType{
		entity.JobTypeCreateAspect,
		entity.JobTypeAddMissingDocs,
		entity.JobTypeCreateClusterWithName,
		entity.JobTypeCreateClusterWithSdocs,
		entity.JobTypeRemoveCluster,
		entity.JobTypeMergeClusters,
		entity.JobTypeSplitCluster,
		entity.JobTypeChangeCluster,
		entity.JobTypeRefineModel,
		entity.JobTypeResetModel,
		entity.JobTypeRecomputeClusterTitle,
	}
	for _, jobType := range types {
		assert.NotEmpty(t, StepsForJobType(jobType), "no steps for %s", jobType)
	}
	assert.Nil(t, StepsForJobType(entity.JobType("BOGUS")))
}
