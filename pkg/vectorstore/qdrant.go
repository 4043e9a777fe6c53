package vectorstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// QdrantStore keeps embeddings in a Qdrant instance over gRPC. All vectors
// live in one collection; aspect and kind are payload fields used as search
// filters.
type QdrantStore struct {
	connection        *grpc.ClientConn
	pointsClient      pb.PointsClient
	collectionsClient pb.CollectionsClient
	collectionName    string
	vectorSize        uint64
}

var _ VectorStore = &QdrantStore{}

func NewQdrantStore(address, collectionName string, vectorSize uint64) (*QdrantStore, error) {
	connection, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("connect to qdrant: %w", err)
	}

	store := &QdrantStore{
		connection:        connection,
		pointsClient:      pb.NewPointsClient(connection),
		collectionsClient: pb.NewCollectionsClient(connection),
		collectionName:    collectionName,
		vectorSize:        vectorSize,
	}

	if err := store.ensureCollectionExists(context.Background()); err != nil {
		connection.Close()
		return nil, err
	}

	return store, nil
}

func (s *QdrantStore) ensureCollectionExists(ctx context.Context) error {
	_, err := s.collectionsClient.Get(ctx, &pb.GetCollectionInfoRequest{
		CollectionName: s.collectionName,
	})
	if err == nil {
		return nil
	}

	// Dot distance so scores match the centroid engine's raw dot products.
	_, err = s.collectionsClient.Create(ctx, &pb.CreateCollection{
		CollectionName: s.collectionName,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     s.vectorSize,
					Distance: pb.Distance_Dot,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}

	return nil
}

// pointId derives a stable point UUID from the key so upserts overwrite
// rather than duplicate.
func pointId(key Key) string {
	name := key.AspectId.String() + "/" + string(key.Kind) + "/" + key.ObjectId.String()
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}

func (s *QdrantStore) AddEmbeddings(ctx context.Context, projectId uuid.UUID, keys []Key, vectors [][]float32) error {
	if len(keys) != len(vectors) {
		return fmt.Errorf("got %d keys but %d vectors", len(keys), len(vectors))
	}
	if len(keys) == 0 {
		return nil
	}

	points := make([]*pb.PointStruct, len(keys))
	for i, key := range keys {
		points[i] = &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: pointId(key)},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: vectors[i]},
				},
			},
			Payload: map[string]*pb.Value{
				"project_id": {Kind: &pb.Value_StringValue{StringValue: projectId.String()}},
				"aspect_id":  {Kind: &pb.Value_StringValue{StringValue: key.AspectId.String()}},
				"object_id":  {Kind: &pb.Value_StringValue{StringValue: key.ObjectId.String()}},
				"kind":       {Kind: &pb.Value_StringValue{StringValue: string(key.Kind)}},
			},
		}
	}

	_, err := s.pointsClient.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: s.collectionName,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upsert points: %w", err)
	}
	return nil
}

func (s *QdrantStore) GetEmbeddings(ctx context.Context, projectId uuid.UUID, keys []Key) ([][]float32, error) {
	ids := make([]*pb.PointId, len(keys))
	for i, key := range keys {
		ids[i] = &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: pointId(key)}}
	}

	response, err := s.pointsClient.Get(ctx, &pb.GetPoints{
		CollectionName: s.collectionName,
		Ids:            ids,
		WithVectors:    &pb.WithVectorsSelector{SelectorOptions: &pb.WithVectorsSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("get points: %w", err)
	}

	byId := make(map[string][]float32, len(response.Result))
	for _, point := range response.Result {
		if vectorData := point.Vectors.GetVector(); vectorData != nil {
			byId[point.Id.GetUuid()] = vectorData.Data
		}
	}

	out := make([][]float32, len(keys))
	for i, key := range keys {
		vector, ok := byId[pointId(key)]
		if !ok {
			return nil, fmt.Errorf("no embedding stored for %s %s", key.Kind, key.ObjectId)
		}
		out[i] = vector
	}
	return out, nil
}

func (s *QdrantStore) SearchNearVector(ctx context.Context, projectId, aspectId uuid.UUID, kind Kind, vector []float32, k int) ([]SearchHit, error) {
	filter := &pb.Filter{
		Must: []*pb.Condition{
			{
				ConditionOneOf: &pb.Condition_Field{
					Field: &pb.FieldCondition{
						Key: "aspect_id",
						Match: &pb.Match{
							MatchValue: &pb.Match_Keyword{Keyword: aspectId.String()},
						},
					},
				},
			},
			{
				ConditionOneOf: &pb.Condition_Field{
					Field: &pb.FieldCondition{
						Key: "kind",
						Match: &pb.Match{
							MatchValue: &pb.Match_Keyword{Keyword: string(kind)},
						},
					},
				},
			},
		},
	}

	response, err := s.pointsClient.Search(ctx, &pb.SearchPoints{
		CollectionName: s.collectionName,
		Vector:         vector,
		Limit:          uint64(k),
		Filter:         filter,
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("search points: %w", err)
	}

	hits := make([]SearchHit, 0, len(response.Result))
	for _, scored := range response.Result {
		objectPayload, ok := scored.Payload["object_id"]
		if !ok {
			continue
		}
		objectId, err := uuid.Parse(objectPayload.GetStringValue())
		if err != nil {
			continue
		}
		hits = append(hits, SearchHit{ObjectId: objectId, Score: float64(scored.Score)})
	}
	return hits, nil
}

func (s *QdrantStore) Delete(ctx context.Context, projectId uuid.UUID, keys []Key) error {
	if len(keys) == 0 {
		return nil
	}

	ids := make([]*pb.PointId, len(keys))
	for i, key := range keys {
		ids[i] = &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: pointId(key)}}
	}

	_, err := s.pointsClient.Delete(ctx, &pb.DeletePoints{
		CollectionName: s.collectionName,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Points{
				Points: &pb.PointsIdsList{Ids: ids},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("delete points: %w", err)
	}
	return nil
}

// Close terminates the gRPC connection to the Qdrant server.
func (s *QdrantStore) Close() error {
	return s.connection.Close()
}
