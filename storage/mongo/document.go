package mongo

import (
	"fmt"
	"time"

	"github.com/poiesic/nbharvest/core"
	"github.com/poiesic/nbharvest/storage"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Field names in the resources collection.
const (
	fieldURL               = "url"
	fieldSource            = "source"
	fieldContent           = "content"
	fieldDateSaved         = "date_saved"
	fieldUpdatedAt         = "updated_at"
	fieldLanguage          = "language"
	fieldCourseLevel       = "course_level"
	fieldCSConcepts        = "cs_concepts"
	fieldContext           = "context"
	fieldSequencePosition  = "sequence_position"
	fieldContentSample     = "content_sample"
	fieldVectorEmbedding   = "vector_embedding"
	fieldMetadataProcessed = "metadata_processed"
	fieldScore             = "score"
)

// metadataFields are cleared whenever a notebook is re-ingested.
var metadataFields = []string{
	fieldLanguage,
	fieldCourseLevel,
	fieldCSConcepts,
	fieldContext,
	fieldSequencePosition,
	fieldContentSample,
	fieldVectorEmbedding,
}

// notebookDocument is the stored shape of a notebook.
type notebookDocument struct {
	ID                primitive.ObjectID `bson:"_id,omitempty"`
	URL               string             `bson:"url"`
	Source            string             `bson:"source,omitempty"`
	Content           bson.Raw           `bson:"content,omitempty"`
	DateSaved         time.Time          `bson:"date_saved"`
	UpdatedAt         time.Time          `bson:"updated_at,omitempty"`
	Language          string             `bson:"language,omitempty"`
	CourseLevel       string             `bson:"course_level,omitempty"`
	CSConcepts        string             `bson:"cs_concepts,omitempty"`
	Context           string             `bson:"context,omitempty"`
	SequencePosition  string             `bson:"sequence_position,omitempty"`
	ContentSample     string             `bson:"content_sample,omitempty"`
	VectorEmbedding   []float32          `bson:"vector_embedding,omitempty"`
	MetadataProcessed bool               `bson:"metadata_processed"`
	Score             float64            `bson:"score,omitempty"`
}

// toRecord converts a stored document into a domain record.
// The content is rendered back to relaxed extended JSON, which is plain JSON for notebooks.
func (d *notebookDocument) toRecord() (*core.NotebookRecord, error) {
	record := &core.NotebookRecord{
		Id:        core.IDFromContent(d.URL),
		URL:       d.URL,
		Source:    core.Source(d.Source),
		DateSaved: d.DateSaved.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
		Metadata: core.Metadata{
			Language:          d.Language,
			CourseLevel:       core.CourseLevel(d.CourseLevel),
			CSConcepts:        d.CSConcepts,
			Context:           d.Context,
			SequencePosition:  core.SequencePosition(d.SequencePosition),
			ContentSample:     d.ContentSample,
			MetadataProcessed: d.MetadataProcessed,
		},
	}
	if len(d.VectorEmbedding) > 0 {
		record.Vector = d.VectorEmbedding
	}
	if record.Source == "" {
		record.Source = core.SourceFromURL(d.URL)
	}
	if len(d.Content) > 0 {
		content, err := bson.MarshalExtJSON(d.Content, false, false)
		if err != nil {
			return nil, fmt.Errorf("%w: render content of %s: %w", storage.ErrSerializationFailed, d.URL, err)
		}
		record.Content = content
	}
	return record, nil
}

// contentDocument parses notebook JSON into a BSON document for storage.
func contentDocument(raw []byte) (bson.D, error) {
	var doc bson.D
	if err := bson.UnmarshalExtJSON(raw, false, &doc); err != nil {
		return nil, fmt.Errorf("%w: notebook content: %w", storage.ErrSerializationFailed, err)
	}
	return doc, nil
}

// saveUpdate builds the upsert that replaces content and clears enrichment.
func saveUpdate(record *core.NotebookRecord, content bson.D, now time.Time) bson.D {
	unset := bson.D{}
	for _, field := range metadataFields {
		unset = append(unset, bson.E{Key: field, Value: ""})
	}
	return bson.D{
		{Key: "$set", Value: bson.D{
			{Key: fieldURL, Value: record.URL},
			{Key: fieldSource, Value: string(record.Source)},
			{Key: fieldContent, Value: content},
			{Key: fieldDateSaved, Value: record.DateSaved},
			{Key: fieldUpdatedAt, Value: now},
			{Key: fieldMetadataProcessed, Value: false},
		}},
		{Key: "$unset", Value: unset},
	}
}

// metadataUpdate builds the single $set that writes every enrichment field.
// A missing embedding is stored as null so the document shape stays stable across reruns.
func metadataUpdate(meta core.Metadata, now time.Time) bson.D {
	var vector any
	if len(meta.Vector) > 0 {
		vector = meta.Vector
	}
	return bson.D{
		{Key: "$set", Value: bson.D{
			{Key: fieldLanguage, Value: meta.Language},
			{Key: fieldCourseLevel, Value: string(meta.CourseLevel)},
			{Key: fieldCSConcepts, Value: meta.CSConcepts},
			{Key: fieldContext, Value: meta.Context},
			{Key: fieldSequencePosition, Value: string(meta.SequencePosition)},
			{Key: fieldContentSample, Value: meta.ContentSample},
			{Key: fieldVectorEmbedding, Value: vector},
			{Key: fieldMetadataProcessed, Value: meta.MetadataProcessed},
			{Key: fieldUpdatedAt, Value: now},
		}},
	}
}

// filterDocument translates a storage filter into a query.
func filterDocument(filter storage.Filter) bson.D {
	switch filter {
	case storage.FilterUnprocessed:
		return bson.D{{Key: fieldMetadataProcessed, Value: bson.D{{Key: "$ne", Value: true}}}}
	case storage.FilterProcessed:
		return bson.D{{Key: fieldMetadataProcessed, Value: true}}
	default:
		return bson.D{}
	}
}
