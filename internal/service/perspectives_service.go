package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"perspectives-be/internal/dto"
	"perspectives-be/internal/entity"
	"perspectives-be/internal/perspectives"
	"perspectives-be/internal/repository/specification"
	"perspectives-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

var ErrJobAlreadyRunning = fmt.Errorf("another job is already running for this aspect")

type IPerspectivesService interface {
	CreateAspect(ctx context.Context, req *dto.CreateAspectRequest) (*dto.CreateAspectResponse, error)
	StartJob(ctx context.Context, req *dto.StartJobRequest) (*dto.StartJobResponse, error)
	GetJob(ctx context.Context, jobId uuid.UUID) (*dto.JobStatusResponse, error)
	ListJobs(ctx context.Context, aspectId uuid.UUID) ([]*dto.JobStatusResponse, error)
}

type perspectivesService struct {
	uowFactory            unitofwork.RepositoryFactory
	publisherService      IPublisherService
	defaultEmbeddingModel string
}

func NewPerspectivesService(
	uowFactory unitofwork.RepositoryFactory,
	publisherService IPublisherService,
	defaultEmbeddingModel string,
) IPerspectivesService {
	return &perspectivesService{
		uowFactory:            uowFactory,
		publisherService:      publisherService,
		defaultEmbeddingModel: defaultEmbeddingModel,
	}
}

// CreateAspect persists the new aspect and immediately enqueues its
// CREATE_ASPECT job. The aspect is empty until the job runs.
func (s *perspectivesService) CreateAspect(ctx context.Context, req *dto.CreateAspectRequest) (*dto.CreateAspectResponse, error) {
	if err := dto.Validate(req); err != nil {
		return nil, err
	}

	aspect := &entity.Aspect{
		Id:                    uuid.New(),
		ProjectId:             req.ProjectId,
		Name:                  req.Name,
		Modality:              entity.Modality(req.Modality),
		EmbeddingModel:        s.defaultEmbeddingModel,
		DocEmbeddingPrompt:    req.DocEmbeddingPrompt,
		DocModificationPrompt: req.DocModificationPrompt,
		SelectionTagId:        req.SelectionTagId,
		Settings:              entity.DefaultPipelineSettings(),
		CreatedAt:             time.Now(),
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.AspectRepository().Create(ctx, aspect); err != nil {
		return nil, err
	}

	job, err := s.StartJob(ctx, &dto.StartJobRequest{
		AspectId: aspect.Id,
		Type:     entity.JobTypeCreateAspect,
	})
	if err != nil {
		return nil, err
	}

	return &dto.CreateAspectResponse{AspectId: aspect.Id, JobId: job.JobId}, nil
}

// StartJob creates the job row and claims the aspect's single job slot in
// one transaction. At most one non-terminal job exists per aspect; a second
// request while one is in flight gets ErrJobAlreadyRunning.
func (s *perspectivesService) StartJob(ctx context.Context, req *dto.StartJobRequest) (*dto.StartJobResponse, error) {
	if err := dto.Validate(req); err != nil {
		return nil, err
	}

	steps := perspectives.StepsForJobType(req.Type)
	if steps == nil {
		return nil, fmt.Errorf("unknown job type %s", req.Type)
	}

	// Reject malformed payloads before anything is persisted.
	if _, err := dto.ParseJobParams(req.Type, req.Payload); err != nil {
		return nil, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)

	aspect, err := uow.AspectRepository().FindOne(ctx, specification.ByID{ID: req.AspectId})
	if err != nil {
		return nil, err
	}
	if aspect == nil {
		return nil, fmt.Errorf("aspect %s not found", req.AspectId)
	}

	job := &entity.PerspectivesJob{
		Id:        uuid.New(),
		AspectId:  aspect.Id,
		Type:      req.Type,
		Steps:     steps,
		Status:    entity.JobStatusWaiting,
		Payload:   req.Payload,
		CreatedAt: time.Now(),
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.PerspectivesJobRepository().Create(ctx, job); err != nil {
		return nil, err
	}

	claimed, err := uow.AspectRepository().ClaimJobSlot(ctx, aspect.Id, job.Id)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, ErrJobAlreadyRunning
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(dto.PublishPerspectivesJobMessage{JobId: job.Id})
	if err != nil {
		return nil, err
	}
	if err := s.publisherService.Publish(ctx, payload); err != nil {
		return nil, fmt.Errorf("job %s created but not enqueued: %w", job.Id, err)
	}

	return &dto.StartJobResponse{JobId: job.Id}, nil
}

func (s *perspectivesService) GetJob(ctx context.Context, jobId uuid.UUID) (*dto.JobStatusResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	job, err := uow.PerspectivesJobRepository().FindOne(ctx, specification.ByID{ID: jobId})
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("job %s not found", jobId)
	}
	return jobToStatusResponse(job), nil
}

func (s *perspectivesService) ListJobs(ctx context.Context, aspectId uuid.UUID) ([]*dto.JobStatusResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	jobs, err := uow.PerspectivesJobRepository().FindAll(ctx,
		specification.ByAspectID{AspectID: aspectId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	out := make([]*dto.JobStatusResponse, len(jobs))
	for i, job := range jobs {
		out[i] = jobToStatusResponse(job)
	}
	return out, nil
}

func jobToStatusResponse(job *entity.PerspectivesJob) *dto.JobStatusResponse {
	return &dto.JobStatusResponse{
		Id:            job.Id,
		AspectId:      job.AspectId,
		Type:          job.Type,
		Steps:         job.Steps,
		CurrentStep:   job.CurrentStep,
		Status:        job.Status,
		StatusMessage: job.StatusMessage,
		CreatedAt:     job.CreatedAt,
		UpdatedAt:     job.UpdatedAt,
	}
}
