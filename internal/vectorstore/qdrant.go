package vectorstore

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var tracer = otel.Tracer("catalogd.vectorstore.qdrant")

// collectionNamePattern validates collection names: lowercase letters,
// numbers, underscores, 1-64 characters.
var collectionNamePattern = regexp.MustCompile(`^[a-z0-9_]{1,64}$`)

// QdrantConfig holds configuration for the Qdrant gRPC client.
type QdrantConfig struct {
	// Host is the Qdrant server hostname or IP address.
	Host string

	// Port is the Qdrant gRPC port (6334), not the HTTP REST port.
	Port int

	// APIKey authenticates against managed Qdrant. Optional.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool

	// Distance is the similarity metric. Defaults to cosine.
	Distance qdrant.Distance

	// MaxRetries is the retry budget for transient failures.
	MaxRetries int

	// RetryBackoff is the initial backoff, doubling per retry.
	RetryBackoff time.Duration

	// MaxMessageSize is the maximum gRPC message size in bytes.
	MaxMessageSize int
}

// Validate validates the configuration.
func (c QdrantConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: host required", ErrInvalidConfig)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: invalid port: %d", ErrInvalidConfig, c.Port)
	}
	return nil
}

// ApplyDefaults sets default values for unset fields.
func (c *QdrantConfig) ApplyDefaults() {
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = time.Second
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = 50 * 1024 * 1024
	}
	if c.Distance == 0 {
		c.Distance = qdrant.Distance_Cosine
	}
}

// ValidateCollectionName validates a collection name. Rejects uppercase,
// special characters, path traversal and spaces.
func ValidateCollectionName(name string) error {
	if !collectionNamePattern.MatchString(name) {
		return fmt.Errorf("%w: collection name must match ^[a-z0-9_]{1,64}$, got %q", ErrInvalidConfig, name)
	}
	return nil
}

// CollectionFor maps a tenant id onto a valid collection name: lowercased,
// with anything outside [a-z0-9_] folded to underscores.
func CollectionFor(clientID string) string {
	lower := strings.ToLower(strings.TrimSpace(clientID))
	if lower == "" {
		return "default"
	}
	var b strings.Builder
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	name := b.String()
	if len(name) > 64 {
		name = name[:64]
	}
	return name
}

// IsTransientError reports whether an error is worth retrying: network
// timeouts and temporary unavailability, not invalid input or missing data.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch st.Code() {
	case grpccodes.Unavailable, grpccodes.DeadlineExceeded, grpccodes.Aborted, grpccodes.ResourceExhausted:
		return true
	default:
		return false
	}
}

// QdrantStore is a Store backed by Qdrant's native gRPC transport.
type QdrantStore struct {
	client *qdrant.Client
	config QdrantConfig
	logger *zap.Logger

	// collections caches collection existence to avoid repeated checks.
	collections sync.Map
}

// NewQdrantStore creates a QdrantStore and verifies connectivity.
func NewQdrantStore(config QdrantConfig, logger *zap.Logger) (*QdrantStore, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   config.Host,
		Port:   config.Port,
		APIKey: config.APIKey,
		UseTLS: config.UseTLS,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(config.MaxMessageSize),
				grpc.MaxCallSendMsgSize(config.MaxMessageSize),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	s := &QdrantStore{client: client, config: config, logger: logger}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.HealthCheck(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("health check failed: %w", err)
	}
	return s, nil
}

// Close closes the gRPC connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// retryOperation retries an operation with exponential backoff on transient
// errors.
func (s *QdrantStore) retryOperation(ctx context.Context, name string, op func() error) error {
	backoff := s.config.RetryBackoff
	for attempt := 0; ; attempt++ {
		err := op()
		if err == nil {
			return nil
		}
		if !IsTransientError(err) {
			return fmt.Errorf("%s failed (permanent): %w", name, err)
		}
		if attempt == s.config.MaxRetries {
			return fmt.Errorf("%s failed after %d retries: %w", name, s.config.MaxRetries, err)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s canceled: %w", name, ctx.Err())
		case <-time.After(backoff):
			backoff *= 2
		}
	}
}

// EnsureCollection creates the collection with the configured metric if it
// does not exist yet. Safe to call repeatedly.
func (s *QdrantStore) EnsureCollection(ctx context.Context, name string, vectorSize uint64) error {
	ctx, span := tracer.Start(ctx, "QdrantStore.EnsureCollection")
	defer span.End()
	span.SetAttributes(attribute.String("collection", name))

	if err := ValidateCollectionName(name); err != nil {
		return err
	}
	if _, ok := s.collections.Load(name); ok {
		return nil
	}

	var exists bool
	err := s.retryOperation(ctx, "collection_exists", func() error {
		info, err := s.client.GetCollectionInfo(ctx, name)
		if err != nil {
			if st, ok := status.FromError(err); ok && st.Code() == grpccodes.NotFound {
				exists = false
				return nil
			}
			return err
		}
		exists = info != nil
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("checking collection %s: %w", name, err)
	}

	if !exists {
		err = s.retryOperation(ctx, "create_collection", func() error {
			return s.client.CreateCollection(ctx, &qdrant.CreateCollection{
				CollectionName: name,
				VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
					Size:     vectorSize,
					Distance: s.config.Distance,
				}),
			})
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("creating collection %s: %w", name, err)
		}
		s.logger.Info("created collection",
			zap.String("collection", name),
			zap.Uint64("vector_size", vectorSize))
	}

	s.collections.Store(name, true)
	span.SetStatus(codes.Ok, "success")
	return nil
}

// EnsurePayloadIndexes creates the secondary payload indexes. A failure on
// one field (typically: it already exists) is logged and skipped.
func (s *QdrantStore) EnsurePayloadIndexes(ctx context.Context, name string, indexes []PayloadIndex) error {
	ctx, span := tracer.Start(ctx, "QdrantStore.EnsurePayloadIndexes")
	defer span.End()
	span.SetAttributes(attribute.String("collection", name), attribute.Int("index_count", len(indexes)))

	if err := ValidateCollectionName(name); err != nil {
		return err
	}

	for _, idx := range indexes {
		req := &qdrant.CreateFieldIndexCollection{
			CollectionName: name,
			FieldName:      idx.Field,
			FieldType:      fieldType(idx.Kind),
		}
		if idx.Kind == IndexText {
			req.FieldIndexParams = &qdrant.PayloadIndexParams{
				IndexParams: &qdrant.PayloadIndexParams_TextIndexParams{
					TextIndexParams: &qdrant.TextIndexParams{
						Tokenizer:   qdrant.TokenizerType_Word,
						MinTokenLen: qdrant.PtrOf(uint64(2)),
						MaxTokenLen: qdrant.PtrOf(uint64(15)),
						Lowercase:   qdrant.PtrOf(true),
					},
				},
			}
		}
		if _, err := s.client.CreateFieldIndex(ctx, req); err != nil {
			s.logger.Warn("payload index not created",
				zap.String("collection", name),
				zap.String("field", idx.Field),
				zap.Error(err))
		}
	}

	span.SetStatus(codes.Ok, "success")
	return nil
}

func fieldType(kind IndexKind) *qdrant.FieldType {
	var ft qdrant.FieldType
	switch kind {
	case IndexFloat:
		ft = qdrant.FieldType_FieldTypeFloat
	case IndexText:
		ft = qdrant.FieldType_FieldTypeText
	case IndexUUID:
		ft = qdrant.FieldType_FieldTypeUuid
	default:
		ft = qdrant.FieldType_FieldTypeKeyword
	}
	return &ft
}

// Upsert writes points to the collection, replacing points with the same id.
func (s *QdrantStore) Upsert(ctx context.Context, collection string, points []Point) error {
	ctx, span := tracer.Start(ctx, "QdrantStore.Upsert")
	defer span.End()
	span.SetAttributes(
		attribute.String("collection", collection),
		attribute.Int("point_count", len(points)),
	)

	if err := ValidateCollectionName(collection); err != nil {
		return err
	}
	if len(points) == 0 {
		return nil
	}

	qpoints := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		id := p.ID
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewSHA1(uuid.NameSpaceOID, []byte(p.ID)).String()
		}
		qpoints[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(id),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: toQdrantPayload(p.Payload),
		}
	}

	err := s.retryOperation(ctx, "upsert", func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: collection,
			Points:         qpoints,
		})
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("upserting %d points to %s: %w", len(points), collection, err)
	}

	span.SetStatus(codes.Ok, "success")
	return nil
}

// Search runs a nearest-neighbor query with the index-level score floor.
func (s *QdrantStore) Search(ctx context.Context, collection string, vector []float32, params SearchParams) ([]Hit, error) {
	ctx, span := tracer.Start(ctx, "QdrantStore.Search")
	defer span.End()
	span.SetAttributes(
		attribute.String("collection", collection),
		attribute.Int("limit", int(params.Limit)),
	)

	if err := ValidateCollectionName(collection); err != nil {
		return nil, err
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", ErrInvalidConfig)
	}

	query := &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(params.Limit),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if params.ScoreFloor > 0 {
		query.ScoreThreshold = qdrant.PtrOf(params.ScoreFloor)
	}
	if params.HnswEf > 0 {
		query.Params = &qdrant.SearchParams{
			HnswEf: qdrant.PtrOf(params.HnswEf),
			Exact:  qdrant.PtrOf(false),
		}
	}

	var results []*qdrant.ScoredPoint
	err := s.retryOperation(ctx, "search", func() error {
		res, err := s.client.Query(ctx, query)
		if err != nil {
			return err
		}
		results = res
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("searching collection %s: %w", collection, err)
	}

	hits := make([]Hit, len(results))
	for i, point := range results {
		hits[i] = Hit{
			ID:      pointIDString(point.Id),
			Score:   point.Score,
			Payload: fromQdrantPayload(point.Payload),
		}
	}

	span.SetAttributes(attribute.Int("results_count", len(hits)))
	span.SetStatus(codes.Ok, "success")
	return hits, nil
}

// Scroll returns up to limit points without ranking.
func (s *QdrantStore) Scroll(ctx context.Context, collection string, limit uint32) ([]Hit, error) {
	ctx, span := tracer.Start(ctx, "QdrantStore.Scroll")
	defer span.End()
	span.SetAttributes(attribute.String("collection", collection), attribute.Int("limit", int(limit)))

	if err := ValidateCollectionName(collection); err != nil {
		return nil, err
	}

	var points []*qdrant.RetrievedPoint
	err := s.retryOperation(ctx, "scroll", func() error {
		res, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: collection,
			Limit:          qdrant.PtrOf(limit),
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return err
		}
		points = res
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("scrolling collection %s: %w", collection, err)
	}

	hits := make([]Hit, len(points))
	for i, point := range points {
		hits[i] = Hit{
			ID:      pointIDString(point.Id),
			Payload: fromQdrantPayload(point.Payload),
		}
	}
	span.SetStatus(codes.Ok, "success")
	return hits, nil
}

// Ensure QdrantStore implements Store.
var _ Store = (*QdrantStore)(nil)
