package perspectives

import (
	"context"
	"fmt"

	"perspectives-be/internal/entity"
	"perspectives-be/internal/pkg/logger"
	"perspectives-be/pkg/embedding"
	"perspectives-be/pkg/llm"
	"perspectives-be/pkg/projection"
)

// OutlierLabel is the raw label the density clusterer assigns to noise.
const OutlierLabel = -1

// TrainData is the supervision set handed to the embedding provider during
// model refinement.
type TrainData struct {
	Docs   []string
	Labels []string
}

// Pipeline bundles the stages every clustering run composes: content
// modification, embedding, dimensionality reduction and density clustering.
type Pipeline struct {
	embedder embedding.EmbeddingProvider
	reducers *projection.ReducerStore
	llm      llm.LLMProvider
	log      logger.ILogger
}

func NewPipeline(embedder embedding.EmbeddingProvider, reducers *projection.ReducerStore, llmProvider llm.LLMProvider, log logger.ILogger) *Pipeline {
	return &Pipeline{
		embedder: embedder,
		reducers: reducers,
		llm:      llmProvider,
		log:      log,
	}
}

// ModifyDocuments rewrites each document's content with the aspect's
// modification prompt, or passes it through unchanged when no prompt is
// configured. Output is order-preserving.
func (p *Pipeline) ModifyDocuments(ctx context.Context, aspect *entity.Aspect, docs []*entity.SourceDocument) ([]string, error) {
	contents := make([]string, len(docs))
	if aspect.DocModificationPrompt == "" {
		for i, doc := range docs {
			contents[i] = doc.Content
		}
		return contents, nil
	}

	for i, doc := range docs {
		prompt := fmt.Sprintf("%s\n\n%s", aspect.DocModificationPrompt, doc.Content)
		modified, err := p.llm.Generate(ctx, prompt)
		if err != nil {
			return nil, fmt.Errorf("failed to modify document %s: %w", doc.Id, err)
		}
		contents[i] = modified
	}
	return contents, nil
}

// EmbedContents computes one embedding per content entry using the aspect's
// model and embedding prompt. Training data, when present, adapts the model
// before embedding (the provider persists the adapted model by name).
func (p *Pipeline) EmbedContents(ctx context.Context, aspect *entity.Aspect, contents []string, train *TrainData) ([][]float32, error) {
	req := embedding.EmbedRequest{
		ProjectId: aspect.ProjectId,
		Model:     aspect.EmbeddingModel,
		Prompt:    aspect.DocEmbeddingPrompt,
		Modality:  string(aspect.Modality),
		Inputs:    contents,
	}
	if train != nil {
		req.TrainDocs = train.Docs
		req.TrainLabels = train.Labels
	}

	vectors, err := p.embedder.Embed(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	if len(vectors) != len(contents) {
		return nil, fmt.Errorf("embedding returned %d vectors for %d inputs", len(vectors), len(contents))
	}
	return vectors, nil
}

// ProjectForVisualization maps embeddings to 2D coordinates. The reducer for
// (project, aspect, embedding model) is fitted once and persisted; later
// batches are transformed through the stored model so existing coordinates
// stay comparable.
func (p *Pipeline) ProjectForVisualization(ctx context.Context, aspect *entity.Aspect, vectors [][]float32) ([][]float64, error) {
	reducer, found, err := p.reducers.Load(aspect.ProjectId, aspect.Id, aspect.EmbeddingModel)
	if err != nil {
		return nil, fmt.Errorf("failed to load visualization reducer: %w", err)
	}

	if found {
		coords, err := reducer.Transform(vectors)
		if err != nil {
			return nil, fmt.Errorf("failed to transform batch through stored reducer: %w", err)
		}
		return coords, nil
	}

	params := projection.DefaultUMAPParams()
	params.Components = 2
	params.Neighbors = aspect.Settings.UmapNeighbors
	params.MinDist = aspect.Settings.UmapMinDist
	params.Metric = projection.MetricCosine

	reducer = projection.NewReducer(params)
	coords, err := reducer.Fit(vectors)
	if err != nil {
		return nil, fmt.Errorf("failed to fit visualization reducer: %w", err)
	}
	if err := p.reducers.Store(aspect.ProjectId, aspect.Id, aspect.EmbeddingModel, reducer); err != nil {
		return nil, fmt.Errorf("failed to persist visualization reducer: %w", err)
	}

	p.log.Info("perspectives", "fitted new visualization reducer", map[string]interface{}{
		"aspect_id": aspect.Id.String(),
		"model":     aspect.EmbeddingModel,
		"samples":   len(vectors),
	})
	return coords, nil
}

// ClusterEmbeddings reduces the batch to the aspect's intermediate
// dimensionality with a fresh reducer (never persisted; clustering
// re-derives its working space per run) and extracts density labels.
func (p *Pipeline) ClusterEmbeddings(aspect *entity.Aspect, vectors [][]float32) ([]int, error) {
	params := projection.DefaultUMAPParams()
	params.Components = aspect.Settings.UmapDims
	params.Neighbors = aspect.Settings.UmapNeighbors
	params.MinDist = aspect.Settings.UmapMinDist
	params.Metric = projection.Metric(aspect.Settings.UmapMetric)

	reducer := projection.NewReducer(params)
	reduced, err := reducer.Fit(vectors)
	if err != nil {
		return nil, fmt.Errorf("failed to reduce embeddings for clustering: %w", err)
	}

	clusterer := projection.NewClusterer(projection.HDBSCANParams{
		MinClusterSize: aspect.Settings.HdbscanMinClusterSize,
		Metric:         projection.Metric(aspect.Settings.HdbscanMetric),
	})
	return clusterer.Labels(reduced), nil
}
