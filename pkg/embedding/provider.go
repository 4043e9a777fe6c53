package embedding

import (
	"context"

	"github.com/google/uuid"
)

// EmbedRequest asks for one embedding per entry of Inputs. When TrainDocs and
// TrainLabels are set, the remote service runs a supervised adaptation pass
// keyed by Model before embedding; the adapted model is persisted remotely
// under that name and reused on later calls.
type EmbedRequest struct {
	ProjectId   uuid.UUID `json:"project_id"`
	Model       string    `json:"model"`
	Prompt      string    `json:"prompt,omitempty"`
	Modality    string    `json:"modality"`
	Inputs      []string  `json:"inputs"`
	TrainDocs   []string  `json:"train_docs,omitempty"`
	TrainLabels []string  `json:"train_labels,omitempty"`
}

// EmbeddingProvider turns document content into fixed-length vectors. The
// result is order-preserving and has exactly one vector per input.
type EmbeddingProvider interface {
	Embed(ctx context.Context, req EmbedRequest) ([][]float32, error)
}
