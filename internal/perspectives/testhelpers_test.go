package perspectives

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"strings"
	"testing"
	"time"

	"perspectives-be/internal/entity"
	"perspectives-be/internal/pkg/logger"
	"perspectives-be/internal/repository/memory"
	"perspectives-be/internal/repository/unitofwork"
	"perspectives-be/pkg/embedding"
	"perspectives-be/pkg/llm"
	"perspectives-be/pkg/projection"
	"perspectives-be/pkg/vectorstore"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// stubEmbedder maps content deterministically onto one of two well-separated
// directions, keyed by topic words, with a small content-hash jitter so no
// two documents are identical.
type stubEmbedder struct {
	err error
}

const stubDim = 6

func (s *stubEmbedder) Embed(ctx context.Context, req embedding.EmbedRequest) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(req.Inputs))
	for i, input := range req.Inputs {
		out[i] = embedStub(input)
	}
	return out, nil
}

func embedStub(content string) []float32 {
	v := make([]float32, stubDim)
	switch {
	case strings.Contains(content, "match") || strings.Contains(content, "sport"):
		v[0] = 10
	case strings.Contains(content, "recipe") || strings.Contains(content, "cook"):
		v[1] = 10
	default:
		v[2] = 10
	}

	h := fnv.New32a()
	h.Write([]byte(content))
	seed := h.Sum32()
	for d := 3; d < stubDim; d++ {
		v[d] = float32(seed>>(d*4)&0xF) / 32.0
		v[d] += 0.01
	}
	return v
}

// stubLLM returns a fixed well-formed naming response and echoes generate
// prompts.
type stubLLM struct {
	title string
}

func (s *stubLLM) Chat(ctx context.Context, messages []llm.Message, opts ...llm.Option) (string, error) {
	title := s.title
	if title == "" {
		title = "Stub Topic"
	}
	return fmt.Sprintf(`{"title": %q, "description": "Documents about one topic"}`, title), nil
}

func (s *stubLLM) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return prompt, nil
}

type fixture struct {
	ctx       context.Context
	store     *memory.Store
	factory   unitofwork.RepositoryFactory
	vectors   *vectorstore.MemoryStore
	embedder  *stubEmbedder
	handler   *Handler
	projectId uuid.UUID
	aspect    *entity.Aspect
	docs      []*entity.SourceDocument
}

func testSettings() entity.PipelineSettings {
	return entity.PipelineSettings{
		UmapNeighbors:         5,
		UmapDims:              2,
		UmapMetric:            "cosine",
		UmapMinDist:           0.1,
		HdbscanMinClusterSize: 3,
		HdbscanMetric:         "euclidean",
		NumKeywords:           5,
		NumTopDocs:            3,
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	factory := memory.NewRepositoryFactory(store)
	vectors := vectorstore.NewMemoryStore()
	embedder := &stubEmbedder{}
	reducers := projection.NewReducerStore(t.TempDir())
	log := logger.NewZapLogger(t.TempDir()+"/test.log", false)

	pipeline := NewPipeline(embedder, reducers, &stubLLM{}, log)
	handler := NewHandler(
		factory,
		vectors,
		pipeline,
		NewCentroidEngine(),
		NewIdentityResolver(),
		NewKeywordExtractor(),
		NewClusterNamer(&stubLLM{}),
		reducers,
		"nomic-embed-text",
		log,
	)

	ctx := context.Background()
	projectId := uuid.New()
	aspect := &entity.Aspect{
		Id:             uuid.New(),
		ProjectId:      projectId,
		Name:           "topics",
		Modality:       entity.ModalityText,
		EmbeddingModel: "nomic-embed-text",
		Settings:       testSettings(),
		CreatedAt:      time.Now(),
	}
	uow := factory.NewUnitOfWork(ctx)
	require.NoError(t, uow.AspectRepository().Create(ctx, aspect))

	return &fixture{
		ctx:       ctx,
		store:     store,
		factory:   factory,
		vectors:   vectors,
		embedder:  embedder,
		handler:   handler,
		projectId: projectId,
		aspect:    aspect,
	}
}

// seedTwoTopicCorpus creates eight sports and eight cooking documents.
func (f *fixture) seedTwoTopicCorpus(t *testing.T) {
	t.Helper()

	uow := f.factory.NewUnitOfWork(f.ctx)
	sports := []string{
		"the match ended with a late goal",
		"a thrilling match in the rain",
		"the cup match went to penalties",
		"an away match victory for the underdogs",
		"a derby match with two red cards",
		"the title match drew a record crowd",
		"a friendly match before the season",
		"the final match of the tournament",
	}
	cooking := []string{
		"a recipe for fresh tomato sauce",
		"this recipe needs slow braising",
		"a simple bread recipe with rye",
		"grandmother's dumpling recipe",
		"a soup recipe for cold evenings",
		"the curry recipe uses ghee",
		"a quick noodle recipe for lunch",
		"a dessert recipe with dark chocolate",
	}

	for i, content := range append(sports, cooking...) {
		doc := &entity.SourceDocument{
			Id:        uuid.New(),
			ProjectId: f.projectId,
			Filename:  fmt.Sprintf("doc-%02d.txt", i),
			Content:   content,
			Modality:  entity.ModalityText,
			CreatedAt: time.Now(),
		}
		require.NoError(t, uow.SourceDocumentRepository().Create(f.ctx, doc))
		f.docs = append(f.docs, doc)
	}
}

// startJob inserts a WAITING job row for the aspect. Params may be nil.
func (f *fixture) startJob(t *testing.T, jobType entity.JobType, params any) *entity.PerspectivesJob {
	t.Helper()

	var payload []byte
	if params != nil {
		var err error
		payload, err = json.Marshal(params)
		require.NoError(t, err)
	}

	job := &entity.PerspectivesJob{
		Id:        uuid.New(),
		AspectId:  f.aspect.Id,
		Type:      jobType,
		Steps:     StepsForJobType(jobType),
		Status:    entity.JobStatusWaiting,
		Payload:   payload,
		CreatedAt: time.Now(),
	}
	uow := f.factory.NewUnitOfWork(f.ctx)
	require.NoError(t, uow.PerspectivesJobRepository().Create(f.ctx, job))
	return job
}

// runJob starts and executes a job, requiring success.
func (f *fixture) runJob(t *testing.T, jobType entity.JobType, params any) *entity.PerspectivesJob {
	t.Helper()

	job := f.startJob(t, jobType, params)
	require.NoError(t, f.handler.Run(f.ctx, job.Id))
	return job
}
