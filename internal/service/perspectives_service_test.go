package service

import (
	"context"
	"encoding/json"
	"testing"

	"perspectives-be/internal/dto"
	"perspectives-be/internal/entity"
	"perspectives-be/internal/repository/memory"
	"perspectives-be/internal/repository/specification"
	"perspectives-be/internal/repository/unitofwork"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingPublisher struct {
	payloads [][]byte
	err      error
}

func (p *capturingPublisher) Publish(ctx context.Context, payload []byte) error {
	if p.err != nil {
		return p.err
	}
	p.payloads = append(p.payloads, payload)
	return nil
}

func newServiceFixture(t *testing.T) (IPerspectivesService, unitofwork.RepositoryFactory, *capturingPublisher, *entity.Aspect) {
	t.Helper()

	factory := memory.NewRepositoryFactory(memory.NewStore())
	publisher := &capturingPublisher{}
	svc := NewPerspectivesService(factory, publisher, "nomic-embed-text")

	aspect := &entity.Aspect{
		Id:             uuid.New(),
		ProjectId:      uuid.New(),
		Name:           "topics",
		Modality:       entity.ModalityText,
		EmbeddingModel: "nomic-embed-text",
		Settings:       entity.DefaultPipelineSettings(),
	}
	uow := factory.NewUnitOfWork(context.Background())
	require.NoError(t, uow.AspectRepository().Create(context.Background(), aspect))

	return svc, factory, publisher, aspect
}

func TestStartJobCreatesWaitingJobAndPublishes(t *testing.T) {
	svc, factory, publisher, aspect := newServiceFixture(t)
	ctx := context.Background()

	resp, err := svc.StartJob(ctx, &dto.StartJobRequest{
		AspectId: aspect.Id,
		Type:     entity.JobTypeCreateAspect,
	})
	require.NoError(t, err)

	uow := factory.NewUnitOfWork(ctx)
	job, err := uow.PerspectivesJobRepository().FindOne(ctx, specification.ByID{ID: resp.JobId})
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, entity.JobStatusWaiting, job.Status)
	assert.Equal(t, entity.JobTypeCreateAspect, job.Type)
	assert.NotEmpty(t, job.Steps)

	require.Len(t, publisher.payloads, 1)
	var msg dto.PublishPerspectivesJobMessage
	require.NoError(t, json.Unmarshal(publisher.payloads[0], &msg))
	assert.Equal(t, resp.JobId, msg.JobId)
}

func TestStartJobRejectsSecondJobWhileFirstInFlight(t *testing.T) {
	svc, _, publisher, aspect := newServiceFixture(t)
	ctx := context.Background()

	_, err := svc.StartJob(ctx, &dto.StartJobRequest{
		AspectId: aspect.Id,
		Type:     entity.JobTypeCreateAspect,
	})
	require.NoError(t, err)

	_, err = svc.StartJob(ctx, &dto.StartJobRequest{
		AspectId: aspect.Id,
		Type:     entity.JobTypeRefineModel,
	})
	assert.ErrorIs(t, err, ErrJobAlreadyRunning)
	assert.Len(t, publisher.payloads, 1)
}

func TestStartJobAllowsNextJobAfterTerminalState(t *testing.T) {
	svc, factory, _, aspect := newServiceFixture(t)
	ctx := context.Background()

	first, err := svc.StartJob(ctx, &dto.StartJobRequest{
		AspectId: aspect.Id,
		Type:     entity.JobTypeCreateAspect,
	})
	require.NoError(t, err)

	uow := factory.NewUnitOfWork(ctx)
	job, err := uow.PerspectivesJobRepository().FindOne(ctx, specification.ByID{ID: first.JobId})
	require.NoError(t, err)
	job.Status = entity.JobStatusFinished
	require.NoError(t, uow.PerspectivesJobRepository().Update(ctx, job))

	_, err = svc.StartJob(ctx, &dto.StartJobRequest{
		AspectId: aspect.Id,
		Type:     entity.JobTypeRefineModel,
	})
	assert.NoError(t, err)
}

func TestStartJobRejectsMalformedPayload(t *testing.T) {
	svc, _, publisher, aspect := newServiceFixture(t)
	ctx := context.Background()

	// REMOVE_CLUSTER requires a cluster id.
	_, err := svc.StartJob(ctx, &dto.StartJobRequest{
		AspectId: aspect.Id,
		Type:     entity.JobTypeRemoveCluster,
		Payload:  json.RawMessage(`{}`),
	})
	assert.Error(t, err)
	assert.Empty(t, publisher.payloads)
}

func TestStartJobUnknownAspect(t *testing.T) {
	svc, _, _, _ := newServiceFixture(t)

	_, err := svc.StartJob(context.Background(), &dto.StartJobRequest{
		AspectId: uuid.New(),
		Type:     entity.JobTypeCreateAspect,
	})
	assert.Error(t, err)
}

func TestCreateAspectCreatesRowAndJob(t *testing.T) {
	svc, factory, publisher, aspect := newServiceFixture(t)
	ctx := context.Background()

	resp, err := svc.CreateAspect(ctx, &dto.CreateAspectRequest{
		ProjectId: aspect.ProjectId,
		Name:      "themes",
		Modality:  "text",
	})
	require.NoError(t, err)

	uow := factory.NewUnitOfWork(ctx)
	created, err := uow.AspectRepository().FindOne(ctx, specification.ByID{ID: resp.AspectId})
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, "nomic-embed-text", created.EmbeddingModel)
	assert.Equal(t, entity.DefaultPipelineSettings(), created.Settings)

	status, err := svc.GetJob(ctx, resp.JobId)
	require.NoError(t, err)
	assert.Equal(t, entity.JobTypeCreateAspect, status.Type)
	assert.Len(t, publisher.payloads, 1)
}
