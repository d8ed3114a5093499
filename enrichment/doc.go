// Package enrichment derives metadata for harvested notebooks.
//
// For each stored notebook the Enricher extracts the cell text, asks the
// language model four independent classification questions (language,
// real-world context, sequence position and concepts), estimates the course
// level from keywords, embeds the text and writes every field back in a single
// repository update. Failed questions fall back to documented defaults and a
// failed embedding is stored as absent, so one bad model call never leaves a
// notebook half-enriched.
package enrichment
