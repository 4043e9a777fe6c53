package mapper

import (
	"perspectives-be/internal/entity"
	"perspectives-be/internal/model"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ClusterMapper struct{}

func NewClusterMapper() *ClusterMapper {
	return &ClusterMapper{}
}

func (m *ClusterMapper) ToEntity(c *model.Cluster) *entity.Cluster {
	if c == nil {
		return nil
	}
	return &entity.Cluster{
		Id:            c.Id,
		AspectId:      c.AspectId,
		Name:          c.Name,
		Description:   c.Description,
		IsOutlier:     c.IsOutlier,
		IsUserEdited:  c.IsUserEdited,
		TopWords:      []string(c.TopWords),
		TopWordScores: []float64(c.TopWordScores),
		TopDocs:       []uuid.UUID(c.TopDocs),
		X:             c.X,
		Y:             c.Y,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func (m *ClusterMapper) ToModel(c *entity.Cluster) *model.Cluster {
	if c == nil {
		return nil
	}
	return &model.Cluster{
		Id:            c.Id,
		AspectId:      c.AspectId,
		Name:          c.Name,
		Description:   c.Description,
		IsOutlier:     c.IsOutlier,
		IsUserEdited:  c.IsUserEdited,
		TopWords:      datatypes.NewJSONSlice(c.TopWords),
		TopWordScores: datatypes.NewJSONSlice(c.TopWordScores),
		TopDocs:       datatypes.NewJSONSlice(c.TopDocs),
		X:             c.X,
		Y:             c.Y,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}
