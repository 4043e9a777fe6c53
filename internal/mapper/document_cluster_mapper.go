package mapper

import (
	"perspectives-be/internal/entity"
	"perspectives-be/internal/model"
)

type DocumentClusterMapper struct{}

func NewDocumentClusterMapper() *DocumentClusterMapper {
	return &DocumentClusterMapper{}
}

func (m *DocumentClusterMapper) ToEntity(d *model.DocumentCluster) *entity.DocumentCluster {
	if d == nil {
		return nil
	}
	return &entity.DocumentCluster{
		SdocId:     d.SdocId,
		AspectId:   d.AspectId,
		ClusterId:  d.ClusterId,
		Similarity: d.Similarity,
		IsAccepted: d.IsAccepted,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

func (m *DocumentClusterMapper) ToModel(d *entity.DocumentCluster) *model.DocumentCluster {
	if d == nil {
		return nil
	}
	return &model.DocumentCluster{
		SdocId:     d.SdocId,
		AspectId:   d.AspectId,
		ClusterId:  d.ClusterId,
		Similarity: d.Similarity,
		IsAccepted: d.IsAccepted,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}
