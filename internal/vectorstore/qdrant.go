package vectorstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
)

// Large documents mean large upsert batches; the default 4MB gRPC cap is
// too small for a full batch of embedded chunks.
const maxGRPCMessageSize = 50 * 1024 * 1024

// QdrantStore is the managed remote backend, speaking gRPC to a Qdrant
// cluster. Point identity is derived deterministically from the entry ID
// so repeated upserts of the same chunk overwrite rather than duplicate.
type QdrantStore struct {
	client     *qdrant.Client
	collection string
	dimension  int
}

type QdrantConfig struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
	Dimension  int
}

func NewQdrantStore(ctx context.Context, cfg QdrantConfig) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(maxGRPCMessageSize),
				grpc.MaxCallSendMsgSize(maxGRPCMessageSize),
			),
		},
	})
	if err != nil {
		return nil, &Error{Backend: "qdrant", Op: "connect", Err: err}
	}

	s := &QdrantStore{client: client, collection: cfg.Collection, dimension: cfg.Dimension}
	if err := s.ensureCollection(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return s, nil
}

func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return &Error{Backend: "qdrant", Op: "collection_exists", Err: err}
	}
	if exists {
		return nil
	}
	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return &Error{Backend: "qdrant", Op: "create_collection", Err: err}
	}
	return nil
}

// pointID maps an entry ID onto a Qdrant point ID. Qdrant only accepts
// UUIDs or integers, so non-UUID entry IDs are hashed into a stable UUID.
func pointID(id string) *qdrant.PointId {
	if _, err := uuid.Parse(id); err == nil {
		return qdrant.NewIDUUID(id)
	}
	return qdrant.NewIDUUID(uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String())
}

func (s *QdrantStore) Upsert(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := validateEntries(entries, s.dimension); err != nil {
		return &Error{Backend: "qdrant", Op: "upsert", Err: err}
	}

	points := make([]*qdrant.PointStruct, len(entries))
	for i, e := range entries {
		payload := map[string]*qdrant.Value{
			"id":   {Kind: &qdrant.Value_StringValue{StringValue: e.ID}},
			"text": {Kind: &qdrant.Value_StringValue{StringValue: e.Text}},
		}
		for k, v := range metaToMap(e.Meta) {
			payload[k] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: v}}
		}
		points[i] = &qdrant.PointStruct{
			Id:      pointID(e.ID),
			Vectors: qdrant.NewVectors(e.Vector...),
			Payload: payload,
		}
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return &Error{Backend: "qdrant", Op: "upsert", Err: err}
	}
	return nil
}

func filterToConditions(f Filter) *qdrant.Filter {
	var conditions []*qdrant.Condition
	for key, value := range filterToMap(f) {
		conditions = append(conditions, &qdrant.Condition{
			ConditionOneOf: &qdrant.Condition_Field{
				Field: &qdrant.FieldCondition{
					Key: key,
					Match: &qdrant.Match{
						MatchValue: &qdrant.Match_Keyword{Keyword: value},
					},
				},
			},
		})
	}
	return &qdrant.Filter{Must: conditions}
}

func (s *QdrantStore) Search(ctx context.Context, vector []float32, k int, f Filter) ([]Match, error) {
	if err := f.Validate(); err != nil {
		return nil, &Error{Backend: "qdrant", Op: "search", Err: err}
	}
	if len(vector) != s.dimension {
		return nil, &Error{Backend: "qdrant", Op: "search",
			Err: fmt.Errorf("query vector has dimension %d, index expects %d", len(vector), s.dimension)}
	}
	if k <= 0 {
		return nil, nil
	}

	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(k)),
		Filter:         filterToConditions(f),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, &Error{Backend: "qdrant", Op: "search", Err: err}
	}

	matches := make([]Match, 0, len(points))
	for _, p := range points {
		fields := make(map[string]string, len(p.Payload))
		for key, v := range p.Payload {
			if sv, ok := v.Kind.(*qdrant.Value_StringValue); ok {
				fields[key] = sv.StringValue
			}
		}
		matches = append(matches, Match{
			ID:    fields["id"],
			Score: normalizeCosine(float64(p.Score)),
			Text:  fields["text"],
			Meta:  metaFromMap(fields),
		})
	}
	return matches, nil
}

func (s *QdrantStore) Delete(ctx context.Context, f Filter) error {
	if err := f.Validate(); err != nil {
		return &Error{Backend: "qdrant", Op: "delete", Err: err}
	}
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: filterToConditions(f),
			},
		},
		Wait: qdrant.PtrOf(true),
	})
	if err != nil {
		return &Error{Backend: "qdrant", Op: "delete", Err: err}
	}
	return nil
}

func (s *QdrantStore) Count(ctx context.Context, f Filter) (int, error) {
	if err := f.Validate(); err != nil {
		return 0, &Error{Backend: "qdrant", Op: "count", Err: err}
	}
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Filter:         filterToConditions(f),
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, &Error{Backend: "qdrant", Op: "count", Err: err}
	}
	return int(n), nil
}

func (s *QdrantStore) Close() error { return s.client.Close() }
