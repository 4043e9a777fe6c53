package mapper

import (
	"perspectives-be/internal/entity"
	"perspectives-be/internal/model"
)

type SourceDocumentMapper struct{}

func NewSourceDocumentMapper() *SourceDocumentMapper {
	return &SourceDocumentMapper{}
}

func (m *SourceDocumentMapper) ToEntity(d *model.SourceDocument) *entity.SourceDocument {
	if d == nil {
		return nil
	}
	return &entity.SourceDocument{
		Id:        d.Id,
		ProjectId: d.ProjectId,
		Filename:  d.Filename,
		Content:   d.Content,
		Modality:  entity.Modality(d.Modality),
		CreatedAt: d.CreatedAt,
	}
}

func (m *SourceDocumentMapper) ToModel(d *entity.SourceDocument) *model.SourceDocument {
	if d == nil {
		return nil
	}
	return &model.SourceDocument{
		Id:        d.Id,
		ProjectId: d.ProjectId,
		Filename:  d.Filename,
		Content:   d.Content,
		Modality:  string(d.Modality),
		CreatedAt: d.CreatedAt,
	}
}
