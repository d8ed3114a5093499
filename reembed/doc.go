// Package reembed recomputes the embeddings of stored notebooks, typically
// after switching to a new embedding model.
//
// Notebooks are read in batches, their text is extracted again and embedded
// with retry and exponential backoff, and only the vector field is written
// back. Classification metadata is left untouched.
package reembed
