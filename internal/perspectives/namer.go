package perspectives

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"perspectives-be/internal/entity"
	"perspectives-be/pkg/llm"

	"github.com/kaptinlin/jsonrepair"
)

const namerSystemPrompt = "You are a cluster name and description generator"

// ClusterNamer asks the language model for a short title and description
// per cluster, derived from its top keywords. Clusters a human has edited
// keep their name; the outlier cluster keeps its fixed one.
type ClusterNamer struct {
	provider llm.LLMProvider
}

func NewClusterNamer(provider llm.LLMProvider) *ClusterNamer {
	return &ClusterNamer{provider: provider}
}

type clusterNameResponse struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (n *ClusterNamer) NameClusters(ctx context.Context, tx *Transaction, clusters []*entity.Cluster) error {
	for _, cluster := range clusters {
		if cluster.IsUserEdited || cluster.IsOutlier {
			continue
		}
		if len(cluster.TopWords) == 0 {
			continue
		}

		title, description, err := n.nameOne(ctx, cluster.TopWords)
		if err != nil {
			return fmt.Errorf("failed to name cluster %s: %w", cluster.Id, err)
		}

		cluster.Name = title
		cluster.Description = description
		if err := tx.Repos().ClusterRepository().Update(ctx, cluster); err != nil {
			return err
		}
	}
	return nil
}

func (n *ClusterNamer) nameOne(ctx context.Context, topWords []string) (string, string, error) {
	userPrompt := fmt.Sprintf(
		"Generate a short name and a one-sentence description for a document cluster characterized by these keywords: %s.\n"+
			"Answer with a JSON object of the form {\"title\": \"...\", \"description\": \"...\"} and nothing else.",
		strings.Join(topWords, ", "),
	)

	raw, err := n.provider.Chat(ctx, []llm.Message{
		{Role: "system", Content: namerSystemPrompt},
		{Role: "user", Content: userPrompt},
	})
	if err != nil {
		return "", "", err
	}

	var parsed clusterNameResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		// Models wrap JSON in prose or fences often enough that a repair
		// pass is worth one retry.
		fixed, repairErr := jsonrepair.JSONRepair(raw)
		if repairErr != nil {
			return "", "", fmt.Errorf("unparseable model response %q: %w", raw, err)
		}
		if err := json.Unmarshal([]byte(fixed), &parsed); err != nil {
			return "", "", fmt.Errorf("unparseable model response %q: %w", raw, err)
		}
	}

	if parsed.Title == "" {
		return "", "", fmt.Errorf("model response missing title: %q", raw)
	}
	return parsed.Title, parsed.Description, nil
}
