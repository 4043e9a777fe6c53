package service

import (
	"context"
	"encoding/json"
	"log"

	"perspectives-be/internal/dto"
	"perspectives-be/internal/entity"
	"perspectives-be/internal/perspectives"
	"perspectives-be/internal/repository/specification"
	"perspectives-be/internal/repository/unitofwork"
	"perspectives-be/pkg/events"
	pktNats "perspectives-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	pubSub         *gochannel.GoChannel
	topicName      string
	handler        *perspectives.Handler
	uowFactory     unitofwork.RepositoryFactory
	eventPublisher *pktNats.Publisher
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	handler *perspectives.Handler,
	uowFactory unitofwork.RepositoryFactory,
	eventPublisher *pktNats.Publisher,
) IConsumerService {
	return &consumerService{
		pubSub:         pubSub,
		topicName:      topicName,
		handler:        handler,
		uowFactory:     uowFactory,
		eventPublisher: eventPublisher,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishPerspectivesJobMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		log.Printf("[ERROR] Failed to unmarshal job message: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	log.Printf("[INFO] Running perspectives job %s", payload.JobId)

	runErr := cs.handler.Run(ctx, payload.JobId)

	// The handler drove the job to a terminal state either way, so the
	// message is consumed; a redelivery would only hit the terminal guard.
	msg.Ack()

	job, err := cs.uowFactory.NewUnitOfWork(ctx).PerspectivesJobRepository().FindOne(ctx,
		specification.ByID{ID: payload.JobId})
	if err != nil || job == nil {
		log.Printf("[ERROR] Failed to reload job %s after run: %v", payload.JobId, err)
		return
	}

	if runErr != nil {
		log.Printf("[ERROR] Job %s (%s) failed: %v", job.Id, job.Type, runErr)
		if cs.eventPublisher != nil {
			evt := events.NewJobFailedEvent(job.Id, job.AspectId, string(job.Type), runErr.Error())
			if err := cs.eventPublisher.Publish(ctx, evt); err != nil {
				log.Printf("[WARN] Failed to publish job failed event: %v", err)
			}
		}
		return
	}

	if job.Status != entity.JobStatusFinished {
		log.Printf("[WARN] Job %s ended without error but in status %s", job.Id, job.Status)
		return
	}

	log.Printf("[SUCCESS] Job %s (%s) finished", job.Id, job.Type)
	if cs.eventPublisher != nil {
		evt := events.NewJobFinishedEvent(job.Id, job.AspectId, string(job.Type))
		if err := cs.eventPublisher.Publish(ctx, evt); err != nil {
			log.Printf("[WARN] Failed to publish job finished event: %v", err)
		}
	}
}
