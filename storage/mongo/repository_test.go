package mongo

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/poiesic/nbharvest/core"
	"github.com/poiesic/nbharvest/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestNewRepository_RequiresURI(t *testing.T) {
	repo, err := NewRepository(context.Background(), "")
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)
	assert.Nil(t, repo)
}

func TestOptions_RejectEmptyNames(t *testing.T) {
	r := &Repository{}
	assert.Error(t, WithDatabase("")(r))
	assert.Error(t, WithCollection("")(r))
	assert.Error(t, WithVectorIndex("")(r))

	require.NoError(t, WithDatabase("db")(r))
	require.NoError(t, WithCollection("coll")(r))
	require.NoError(t, WithVectorIndex("idx")(r))
	require.NoError(t, WithLogger(nil)(r))
	assert.Equal(t, "db", r.database)
	assert.Equal(t, "coll", r.name)
	assert.Equal(t, "idx", r.vectorIndex)
	assert.NotNil(t, r.logger)
}

func TestVectorSearchPipeline(t *testing.T) {
	pipeline := vectorSearchPipeline("vector_index", []float32{0.1, 0.2}, 15)
	require.Len(t, pipeline, 3)

	stage := pipeline[0]
	require.Equal(t, "$vectorSearch", stage[0].Key)
	params := stage[0].Value.(bson.D).Map()
	assert.Equal(t, "vector_index", params["index"])
	assert.Equal(t, "vector_embedding", params["path"])
	assert.Equal(t, []float32{0.1, 0.2}, params["queryVector"])
	assert.Equal(t, 150, params["numCandidates"])
	assert.Equal(t, 15, params["limit"])

	assert.Equal(t, "$addFields", pipeline[1][0].Key)
	score := pipeline[1][0].Value.(bson.D).Map()["score"].(bson.D).Map()
	assert.Equal(t, "vectorSearchScore", score["$meta"])

	assert.Equal(t, "$project", pipeline[2][0].Key)
	assert.Equal(t, 0, pipeline[2][0].Value.(bson.D).Map()["content"])
}

func TestFilterDocument(t *testing.T) {
	assert.Empty(t, filterDocument(storage.FilterAll))
	assert.Equal(t, bson.D{{Key: "metadata_processed", Value: true}}, filterDocument(storage.FilterProcessed))
	assert.Equal(t,
		bson.D{{Key: "metadata_processed", Value: bson.D{{Key: "$ne", Value: true}}}},
		filterDocument(storage.FilterUnprocessed))
}

func TestSaveUpdate_ClearsMetadata(t *testing.T) {
	now := time.Now().UTC()
	record := &core.NotebookRecord{URL: "https://github.com/a/b", Source: core.SourceGitHub, DateSaved: now}

	update := saveUpdate(record, bson.D{{Key: "cells", Value: bson.A{}}}, now).Map()

	set := update["$set"].(bson.D).Map()
	assert.Equal(t, "https://github.com/a/b", set["url"])
	assert.Equal(t, false, set["metadata_processed"])
	assert.Equal(t, now, set["date_saved"])

	unset := update["$unset"].(bson.D).Map()
	for _, field := range metadataFields {
		assert.Contains(t, unset, field)
	}
}

func TestMetadataUpdate_NullVector(t *testing.T) {
	meta := core.Metadata{
		Language:          "Python",
		CourseLevel:       core.CourseLevelAdvanced,
		Context:           "physics",
		SequencePosition:  core.SequenceEnd,
		ContentSample:     "x",
		MetadataProcessed: true,
	}
	set := metadataUpdate(meta, time.Now()).Map()["$set"].(bson.D).Map()

	assert.Contains(t, set, "vector_embedding")
	assert.Nil(t, set["vector_embedding"])
	assert.Equal(t, "advanced", set["course_level"])
	assert.Equal(t, true, set["metadata_processed"])

	meta.Vector = []float32{1, 0}
	set = metadataUpdate(meta, time.Now()).Map()["$set"].(bson.D).Map()
	assert.Equal(t, []float32{1, 0}, set["vector_embedding"])
}

func TestDocumentRoundTrip(t *testing.T) {
	raw := []byte(`{"cells":[{"cell_type":"markdown","source":["# Title\n","text"]}],"nbformat":4}`)
	content, err := contentDocument(raw)
	require.NoError(t, err)
	contentBytes, err := bson.Marshal(content)
	require.NoError(t, err)

	saved := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	doc := notebookDocument{
		URL:               "https://github.com/ds-modules/LS-88/blob/master/nb.ipynb",
		Source:            "github",
		Content:           contentBytes,
		DateSaved:         saved,
		Language:          "Python",
		CourseLevel:       "introductory",
		Context:           "linguistics",
		SequencePosition:  "beginning",
		ContentSample:     "# Title",
		VectorEmbedding:   []float32{0.5, 0.5},
		MetadataProcessed: true,
	}
	encoded, err := bson.Marshal(doc)
	require.NoError(t, err)

	var decoded notebookDocument
	require.NoError(t, bson.Unmarshal(encoded, &decoded))

	record, err := decoded.toRecord()
	require.NoError(t, err)
	assert.Equal(t, core.IDFromContent(doc.URL), record.Id)
	assert.Equal(t, core.SourceGitHub, record.Source)
	assert.JSONEq(t, string(raw), string(record.Content))
	assert.True(t, saved.Equal(record.DateSaved))
	assert.Equal(t, core.CourseLevelIntroductory, record.CourseLevel)
	assert.Equal(t, []float32{0.5, 0.5}, record.Vector)
	assert.True(t, record.MetadataProcessed)
}

func TestContentDocument_Invalid(t *testing.T) {
	_, err := contentDocument([]byte("<html>"))
	assert.ErrorIs(t, err, storage.ErrSerializationFailed)
}

// TestRepository_Live exercises a real server when MONGODB_TEST_URI is set.
func TestRepository_Live(t *testing.T) {
	uri := os.Getenv("MONGODB_TEST_URI")
	if uri == "" {
		t.Skip("MONGODB_TEST_URI not set")
	}

	ctx := context.Background()
	repo, err := NewRepository(ctx, uri,
		WithDatabase("nbharvest_test"),
		WithCollection("resources_"+time.Now().Format("20060102150405")),
	)
	require.NoError(t, err)
	defer repo.Close()

	url := "https://github.com/ds-modules/ECON-101B/blob/master/flex_price.ipynb"
	_, err = repo.SaveNotebook(ctx, &core.NotebookRecord{URL: url, Content: []byte(`{"cells":[]}`)})
	require.NoError(t, err)
	_, err = repo.SaveNotebook(ctx, &core.NotebookRecord{URL: url, Content: []byte(`{"cells":[],"v":2}`)})
	require.NoError(t, err)

	urls, err := repo.ListURLs(ctx, storage.FilterUnprocessed)
	require.NoError(t, err)
	assert.Equal(t, []string{url}, urls)

	require.NoError(t, repo.UpdateMetadata(ctx, url, core.Metadata{
		Language: "Python", CourseLevel: core.CourseLevelIntermediate, Context: "economics",
		SequencePosition: core.SequenceMiddle, ContentSample: "x", MetadataProcessed: true,
	}))

	got, err := repo.GetNotebook(ctx, url)
	require.NoError(t, err)
	assert.True(t, got.MetadataProcessed)
	assert.Nil(t, got.Vector)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.Processed)
	assert.Equal(t, 0, stats.Embedded)
}
