// Package mongo implements storage.NotebookRepository on MongoDB.
//
// Notebooks live in one collection (computing_in_context.resources by default),
// one document per URL. The notebook JSON is stored as a nested document under
// "content" and enrichment fields sit at the top level next to it.
//
// Similarity search needs an Atlas vector search index on "vector_embedding":
//
//	{
//	  "fields": [
//	    {"type": "vector", "path": "vector_embedding", "numDimensions": 1536, "similarity": "cosine"}
//	  ]
//	}
package mongo
