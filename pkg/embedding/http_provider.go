package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Calls to the embedding service are batched so peak memory and request
// sizes stay bounded regardless of corpus size.
const batchSize = 32

// HTTPProvider implements EmbeddingProvider against the embedding service's
// JSON API (Ollama-style request/response shapes).
type HTTPProvider struct {
	BaseURL string
	client  *http.Client
}

func NewHTTPProvider(baseURL string) EmbeddingProvider {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &HTTPProvider{
		BaseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Minute},
	}
}

type embedServiceResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

func (p *HTTPProvider) Embed(ctx context.Context, req EmbedRequest) ([][]float32, error) {
	out := make([][]float32, 0, len(req.Inputs))

	// Training data rides along with the first batch only; the service keys
	// the adapted model by name, so later batches reuse it.
	trainDocs := req.TrainDocs
	trainLabels := req.TrainLabels

	for start := 0; start < len(req.Inputs); start += batchSize {
		end := start + batchSize
		if end > len(req.Inputs) {
			end = len(req.Inputs)
		}

		batchReq := EmbedRequest{
			ProjectId:   req.ProjectId,
			Model:       req.Model,
			Prompt:      req.Prompt,
			Modality:    req.Modality,
			Inputs:      req.Inputs[start:end],
			TrainDocs:   trainDocs,
			TrainLabels: trainLabels,
		}
		trainDocs = nil
		trainLabels = nil

		vectors, err := p.embedBatch(ctx, batchReq)
		if err != nil {
			return nil, err
		}
		if len(vectors) != end-start {
			return nil, fmt.Errorf("embedding service returned %d vectors for %d inputs", len(vectors), end-start)
		}
		out = append(out, vectors...)
	}

	return out, nil
}

func (p *HTTPProvider) embedBatch(ctx context.Context, req EmbedRequest) ([][]float32, error) {
	jsonBody, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/api/embed", p.BaseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding service error: code %d, body %s", resp.StatusCode, string(bodyBytes))
	}

	var serviceResp embedServiceResponse
	if err := json.Unmarshal(bodyBytes, &serviceResp); err != nil {
		return nil, err
	}

	return serviceResp.Embeddings, nil
}
