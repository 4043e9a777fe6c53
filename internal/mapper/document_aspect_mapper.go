package mapper

import (
	"perspectives-be/internal/entity"
	"perspectives-be/internal/model"
)

type DocumentAspectMapper struct{}

func NewDocumentAspectMapper() *DocumentAspectMapper {
	return &DocumentAspectMapper{}
}

func (m *DocumentAspectMapper) ToEntity(d *model.DocumentAspect) *entity.DocumentAspect {
	if d == nil {
		return nil
	}
	return &entity.DocumentAspect{
		SdocId:       d.SdocId,
		AspectId:     d.AspectId,
		Content:      d.Content,
		X:            d.X,
		Y:            d.Y,
		EmbeddingRef: d.EmbeddingRef,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

func (m *DocumentAspectMapper) ToModel(d *entity.DocumentAspect) *model.DocumentAspect {
	if d == nil {
		return nil
	}
	return &model.DocumentAspect{
		SdocId:       d.SdocId,
		AspectId:     d.AspectId,
		Content:      d.Content,
		X:            d.X,
		Y:            d.Y,
		EmbeddingRef: d.EmbeddingRef,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}
