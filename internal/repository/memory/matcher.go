package memory

import (
	"perspectives-be/internal/entity"
	"perspectives-be/internal/repository/specification"

	"github.com/google/uuid"
)

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// The matchers below understand the subset of specifications the
// perspectives pipeline actually issues. Query-shaping specs (OrderBy,
// Pagination) are ignored; memory results are returned unordered like a
// plain table scan.

func aspectMatches(a *entity.Aspect, specs []specification.Specification) bool {
	for _, s := range specs {
		switch sp := s.(type) {
		case specification.ByID:
			if a.Id != sp.ID {
				return false
			}
		case specification.ByIDs:
			if !containsID(sp.IDs, a.Id) {
				return false
			}
		case specification.ByProjectID:
			if a.ProjectId != sp.ProjectID {
				return false
			}
		}
	}
	return true
}

func clusterMatches(c *entity.Cluster, specs []specification.Specification) bool {
	for _, s := range specs {
		switch sp := s.(type) {
		case specification.ByID:
			if c.Id != sp.ID {
				return false
			}
		case specification.ByIDs:
			if !containsID(sp.IDs, c.Id) {
				return false
			}
		case specification.ByAspectID:
			if c.AspectId != sp.AspectID {
				return false
			}
		case specification.OutlierOnly:
			if !c.IsOutlier {
				return false
			}
		}
	}
	return true
}

func docAspectMatches(d *entity.DocumentAspect, specs []specification.Specification) bool {
	for _, s := range specs {
		switch sp := s.(type) {
		case specification.ByAspectID:
			if d.AspectId != sp.AspectID {
				return false
			}
		case specification.BySdocID:
			if d.SdocId != sp.SdocID {
				return false
			}
		case specification.BySdocIDs:
			if !containsID(sp.SdocIDs, d.SdocId) {
				return false
			}
		}
	}
	return true
}

func docClusterMatches(d *entity.DocumentCluster, specs []specification.Specification) bool {
	for _, s := range specs {
		switch sp := s.(type) {
		case specification.ByAspectID:
			if d.AspectId != sp.AspectID {
				return false
			}
		case specification.BySdocID:
			if d.SdocId != sp.SdocID {
				return false
			}
		case specification.BySdocIDs:
			if !containsID(sp.SdocIDs, d.SdocId) {
				return false
			}
		case specification.ByClusterID:
			if d.ClusterId != sp.ClusterID {
				return false
			}
		case specification.ByClusterIDs:
			if !containsID(sp.ClusterIDs, d.ClusterId) {
				return false
			}
		case specification.AcceptedOnly:
			if !d.IsAccepted {
				return false
			}
		}
	}
	return true
}

func jobMatches(j *entity.PerspectivesJob, specs []specification.Specification) bool {
	for _, s := range specs {
		switch sp := s.(type) {
		case specification.ByID:
			if j.Id != sp.ID {
				return false
			}
		case specification.ByAspectID:
			if j.AspectId != sp.AspectID {
				return false
			}
		}
	}
	return true
}

func sdocMatches(d *entity.SourceDocument, specs []specification.Specification) bool {
	for _, s := range specs {
		switch sp := s.(type) {
		case specification.ByID:
			if d.Id != sp.ID {
				return false
			}
		case specification.ByIDs:
			if !containsID(sp.IDs, d.Id) {
				return false
			}
		case specification.ByProjectID:
			if d.ProjectId != sp.ProjectID {
				return false
			}
		case specification.ByModality:
			if string(d.Modality) != sp.Modality {
				return false
			}
		}
	}
	return true
}

func actionLogMatches(a *entity.ActionLog, specs []specification.Specification) bool {
	for _, s := range specs {
		switch sp := s.(type) {
		case specification.ByAspectID:
			if a.AspectId != sp.AspectID {
				return false
			}
		}
	}
	return true
}
