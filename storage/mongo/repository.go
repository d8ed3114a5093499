package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/nbharvest/core"
	"github.com/poiesic/nbharvest/storage"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	// DefaultDatabase is the database notebooks are stored in.
	DefaultDatabase = "computing_in_context"
	// DefaultCollection is the collection notebooks are stored in.
	DefaultCollection = "resources"
	// DefaultVectorIndex is the Atlas vector search index over vector_embedding.
	DefaultVectorIndex = "vector_index"
	// numCandidatesFactor widens the approximate search beyond the requested result count.
	numCandidatesFactor = 10
	connectTimeout      = 10 * time.Second
)

// Repository implements storage.NotebookRepository on a MongoDB collection.
type Repository struct {
	client      *mongo.Client
	collection  *mongo.Collection
	database    string
	name        string
	vectorIndex string
	logger      *slog.Logger
}

var _ storage.NotebookRepository = (*Repository)(nil)

// Option configures a Repository.
type Option func(*Repository) error

// WithDatabase sets the database name. Default is DefaultDatabase.
func WithDatabase(name string) Option {
	return func(r *Repository) error {
		if name == "" {
			return fmt.Errorf("%w: database name is empty", storage.ErrInvalidQuery)
		}
		r.database = name
		return nil
	}
}

// WithCollection sets the collection name. Default is DefaultCollection.
func WithCollection(name string) Option {
	return func(r *Repository) error {
		if name == "" {
			return fmt.Errorf("%w: collection name is empty", storage.ErrInvalidQuery)
		}
		r.name = name
		return nil
	}
}

// WithVectorIndex sets the Atlas vector search index name. Default is DefaultVectorIndex.
func WithVectorIndex(name string) Option {
	return func(r *Repository) error {
		if name == "" {
			return fmt.Errorf("%w: vector index name is empty", storage.ErrInvalidQuery)
		}
		r.vectorIndex = name
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Repository) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger.With("component", "mongo-repository")
		return nil
	}
}

// NewRepository connects to MongoDB and verifies the connection with a ping.
func NewRepository(ctx context.Context, uri string, opts ...Option) (storage.NotebookRepository, error) {
	if uri == "" {
		return nil, fmt.Errorf("%w: connection string is required", storage.ErrInvalidQuery)
	}

	r := &Repository{
		database:    DefaultDatabase,
		name:        DefaultCollection,
		vectorIndex: DefaultVectorIndex,
		logger:      slog.Default().With("component", "mongo-repository"),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	r.client = client
	r.collection = client.Database(r.database).Collection(r.name)
	r.logger.Debug("connected", "database", r.database, "collection", r.name)
	return r, nil
}

// Close disconnects the client.
func (r *Repository) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	return r.client.Disconnect(ctx)
}

// SaveNotebook upserts the notebook by URL, replacing content and clearing enrichment.
func (r *Repository) SaveNotebook(ctx context.Context, record *core.NotebookRecord) (*core.NotebookRecord, error) {
	if record == nil || record.URL == "" {
		return nil, fmt.Errorf("%w: notebook url is required", storage.ErrInvalidQuery)
	}

	content, err := contentDocument(record.Content)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	stored := &core.NotebookRecord{
		Id:        core.IDFromContent(record.URL),
		URL:       record.URL,
		Source:    record.Source,
		Content:   record.Content,
		DateSaved: record.DateSaved,
		UpdatedAt: now,
	}
	if stored.Source == "" {
		stored.Source = core.SourceFromURL(record.URL)
	}
	if stored.DateSaved.IsZero() {
		stored.DateSaved = now
	}

	_, err = r.collection.UpdateOne(ctx,
		bson.D{{Key: fieldURL, Value: record.URL}},
		saveUpdate(stored, content, now),
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return nil, fmt.Errorf("save notebook %s: %w", record.URL, err)
	}
	return stored, nil
}

// GetNotebook retrieves a notebook by URL.
func (r *Repository) GetNotebook(ctx context.Context, url string) (*core.NotebookRecord, error) {
	var doc notebookDocument
	err := r.collection.FindOne(ctx, bson.D{{Key: fieldURL, Value: url}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get notebook %s: %w", url, err)
	}
	return doc.toRecord()
}

// ListURLs returns the URLs of notebooks matching the filter in insertion order.
func (r *Repository) ListURLs(ctx context.Context, filter storage.Filter) ([]string, error) {
	findOpts := options.Find().
		SetProjection(bson.D{{Key: fieldURL, Value: 1}}).
		SetSort(bson.D{{Key: "_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, filterDocument(filter), findOpts)
	if err != nil {
		return nil, fmt.Errorf("list notebooks: %w", err)
	}
	defer cursor.Close(ctx)

	var urls []string
	for cursor.Next(ctx) {
		var doc struct {
			URL string `bson:"url"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
		}
		urls = append(urls, doc.URL)
	}
	return urls, cursor.Err()
}

// ForEachNotebook streams notebooks matching the filter through fn.
func (r *Repository) ForEachNotebook(ctx context.Context, filter storage.Filter, fn func(*core.NotebookRecord) error) error {
	cursor, err := r.collection.Find(ctx, filterDocument(filter), options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return fmt.Errorf("list notebooks: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var doc notebookDocument
		if err := cursor.Decode(&doc); err != nil {
			return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
		}
		record, err := doc.toRecord()
		if err != nil {
			return err
		}
		if err := fn(record); err != nil {
			return err
		}
	}
	return cursor.Err()
}

// UpdateMetadata writes every enrichment field of one notebook with a single $set.
func (r *Repository) UpdateMetadata(ctx context.Context, url string, meta core.Metadata) error {
	return r.updateOne(ctx, url, metadataUpdate(meta, time.Now().UTC()))
}

// UpdateVector replaces only the embedding of one notebook.
func (r *Repository) UpdateVector(ctx context.Context, url string, vector []float32) error {
	var value any
	if len(vector) > 0 {
		value = vector
	}
	return r.updateOne(ctx, url, bson.D{{Key: "$set", Value: bson.D{
		{Key: fieldVectorEmbedding, Value: value},
		{Key: fieldUpdatedAt, Value: time.Now().UTC()},
	}}})
}

func (r *Repository) updateOne(ctx context.Context, url string, update bson.D) error {
	res, err := r.collection.UpdateOne(ctx, bson.D{{Key: fieldURL, Value: url}}, update)
	if err != nil {
		return fmt.Errorf("update notebook %s: %w", url, err)
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// FindSimilar runs an Atlas $vectorSearch over vector_embedding.
// Documents with a null or missing embedding are not indexed and never returned.
func (r *Repository) FindSimilar(ctx context.Context, vector []float32, candidates int) ([]*core.SimilarityMatch, error) {
	if candidates <= 0 {
		return nil, fmt.Errorf("%w: candidates must be positive", storage.ErrInvalidQuery)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: query vector is empty", storage.ErrInvalidQuery)
	}

	cursor, err := r.collection.Aggregate(ctx, vectorSearchPipeline(r.vectorIndex, vector, candidates))
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer cursor.Close(ctx)

	var results []*core.SimilarityMatch
	for cursor.Next(ctx) {
		var doc notebookDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
		}
		record, err := doc.toRecord()
		if err != nil {
			return nil, err
		}
		results = append(results, &core.SimilarityMatch{Record: record, Score: float32(doc.Score)})
	}
	return results, cursor.Err()
}

// vectorSearchPipeline ranks candidates by vectorSearchScore and drops the notebook body.
func vectorSearchPipeline(index string, vector []float32, candidates int) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$vectorSearch", Value: bson.D{
			{Key: "index", Value: index},
			{Key: "path", Value: fieldVectorEmbedding},
			{Key: "queryVector", Value: vector},
			{Key: "numCandidates", Value: candidates * numCandidatesFactor},
			{Key: "limit", Value: candidates},
		}}},
		{{Key: "$addFields", Value: bson.D{
			{Key: fieldScore, Value: bson.D{{Key: "$meta", Value: "vectorSearchScore"}}},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: fieldContent, Value: 0},
		}}},
	}
}

// Stats counts stored, processed and embedded notebooks.
func (r *Repository) Stats(ctx context.Context) (*storage.Stats, error) {
	total, err := r.collection.CountDocuments(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("count notebooks: %w", err)
	}
	processed, err := r.collection.CountDocuments(ctx, filterDocument(storage.FilterProcessed))
	if err != nil {
		return nil, fmt.Errorf("count processed notebooks: %w", err)
	}
	embedded, err := r.collection.CountDocuments(ctx, bson.D{
		{Key: fieldVectorEmbedding, Value: bson.D{{Key: "$type", Value: "array"}}},
	})
	if err != nil {
		return nil, fmt.Errorf("count embedded notebooks: %w", err)
	}
	return &storage.Stats{Total: int(total), Processed: int(processed), Embedded: int(embedded)}, nil
}
