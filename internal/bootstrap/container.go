package bootstrap

import (
	"log"

	"perspectives-be/internal/config"
	"perspectives-be/internal/pkg/logger"
	"perspectives-be/internal/perspectives"
	"perspectives-be/internal/repository/unitofwork"
	"perspectives-be/internal/service"
	"perspectives-be/pkg/embedding"
	"perspectives-be/pkg/llm/factory"
	pktNats "perspectives-be/pkg/nats"
	"perspectives-be/pkg/projection"
	"perspectives-be/pkg/vectorstore"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"gorm.io/gorm"
)

type Container struct {
	PerspectivesService service.IPerspectivesService

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	Logger         logger.ILogger
	EventPublisher *pktNats.Publisher
	VectorStore    vectorstore.VectorStore
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. Vector Store
	var vectors vectorstore.VectorStore
	switch cfg.Perspectives.VectorBackend {
	case "qdrant":
		qdrantStore, err := vectorstore.NewQdrantStore(
			cfg.Perspectives.QdrantAddress,
			"perspectives_embeddings",
			uint64(cfg.Ai.EmbeddingDim),
		)
		if err != nil {
			log.Fatalf("[FATAL] Failed to connect to Qdrant: %v", err)
		}
		vectors = qdrantStore
		log.Printf("[INFO] Using Vector Backend: QDRANT (%s)", cfg.Perspectives.QdrantAddress)
	default:
		vectors = vectorstore.NewPgVectorStore(db)
		log.Printf("[INFO] Using Vector Backend: PGVECTOR")
	}

	// 4. AI Providers
	embeddingProvider := embedding.NewHTTPProvider(cfg.Ai.EmbeddingBaseURL)

	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.OpenAIAPIKey,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 5. Pipeline
	reducers := projection.NewReducerStore(cfg.Perspectives.ArtifactsRoot)
	pipeline := perspectives.NewPipeline(embeddingProvider, reducers, llmProvider, sysLogger)
	jobHandler := perspectives.NewHandler(
		uowFactory,
		vectors,
		pipeline,
		perspectives.NewCentroidEngine(),
		perspectives.NewIdentityResolver(),
		perspectives.NewKeywordExtractor(),
		perspectives.NewClusterNamer(llmProvider),
		reducers,
		cfg.Ai.EmbeddingModel,
		sysLogger,
	)

	// 6. Infrastructure
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}

	// 7. Services
	publisherService := service.NewPublisherService(pubSub, cfg.Perspectives.JobTopicName)
	perspectivesService := service.NewPerspectivesService(uowFactory, publisherService, cfg.Ai.EmbeddingModel)
	consumerService := service.NewConsumerService(pubSub, cfg.Perspectives.JobTopicName, jobHandler, uowFactory, natsPub)

	return &Container{
		PerspectivesService: perspectivesService,
		ConsumerService:     consumerService,
		Logger:              sysLogger,
		EventPublisher:      natsPub,
		VectorStore:         vectors,
	}
}
