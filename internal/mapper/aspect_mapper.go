package mapper

import (
	"perspectives-be/internal/entity"
	"perspectives-be/internal/model"
)

type AspectMapper struct{}

func NewAspectMapper() *AspectMapper {
	return &AspectMapper{}
}

func (m *AspectMapper) ToEntity(a *model.Aspect) *entity.Aspect {
	if a == nil {
		return nil
	}
	return &entity.Aspect{
		Id:                    a.Id,
		ProjectId:             a.ProjectId,
		Name:                  a.Name,
		Modality:              entity.Modality(a.Modality),
		EmbeddingModel:        a.EmbeddingModel,
		DocEmbeddingPrompt:    a.DocEmbeddingPrompt,
		DocModificationPrompt: a.DocModificationPrompt,
		SelectionTagId:        a.SelectionTagId,
		Settings: entity.PipelineSettings{
			UmapNeighbors:         a.UmapNeighbors,
			UmapDims:              a.UmapDims,
			UmapMetric:            a.UmapMetric,
			UmapMinDist:           a.UmapMinDist,
			HdbscanMinClusterSize: a.HdbscanMinClusterSize,
			HdbscanMetric:         a.HdbscanMetric,
			NumKeywords:           a.NumKeywords,
			NumTopDocs:            a.NumTopDocs,
		},
		MostRecentJobId: a.MostRecentJobId,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

func (m *AspectMapper) ToModel(a *entity.Aspect) *model.Aspect {
	if a == nil {
		return nil
	}
	return &model.Aspect{
		Id:                    a.Id,
		ProjectId:             a.ProjectId,
		Name:                  a.Name,
		Modality:              string(a.Modality),
		EmbeddingModel:        a.EmbeddingModel,
		DocEmbeddingPrompt:    a.DocEmbeddingPrompt,
		DocModificationPrompt: a.DocModificationPrompt,
		SelectionTagId:        a.SelectionTagId,
		UmapNeighbors:         a.Settings.UmapNeighbors,
		UmapDims:              a.Settings.UmapDims,
		UmapMetric:            a.Settings.UmapMetric,
		UmapMinDist:           a.Settings.UmapMinDist,
		HdbscanMinClusterSize: a.Settings.HdbscanMinClusterSize,
		HdbscanMetric:         a.Settings.HdbscanMetric,
		NumKeywords:           a.Settings.NumKeywords,
		NumTopDocs:            a.Settings.NumTopDocs,
		MostRecentJobId:       a.MostRecentJobId,
		CreatedAt:             a.CreatedAt,
		UpdatedAt:             a.UpdatedAt,
	}
}
