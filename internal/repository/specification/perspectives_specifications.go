package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByProjectID struct {
	ProjectID uuid.UUID
}

func (s ByProjectID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("project_id = ?", s.ProjectID)
}

type ByAspectID struct {
	AspectID uuid.UUID
}

func (s ByAspectID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("aspect_id = ?", s.AspectID)
}

type BySdocID struct {
	SdocID uuid.UUID
}

func (s BySdocID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("sdoc_id = ?", s.SdocID)
}

type BySdocIDs struct {
	SdocIDs []uuid.UUID
}

func (s BySdocIDs) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("sdoc_id IN ?", s.SdocIDs)
}

type ByClusterID struct {
	ClusterID uuid.UUID
}

func (s ByClusterID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("cluster_id = ?", s.ClusterID)
}

type ByClusterIDs struct {
	ClusterIDs []uuid.UUID
}

func (s ByClusterIDs) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("cluster_id IN ?", s.ClusterIDs)
}

type ByModality struct {
	Modality string
}

func (s ByModality) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("modality = ?", s.Modality)
}

type OutlierOnly struct{}

func (s OutlierOnly) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("is_outlier = ?", true)
}

type AcceptedOnly struct{}

func (s AcceptedOnly) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("is_accepted = ?", true)
}
