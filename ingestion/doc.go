// Package ingestion fetches notebook links and stores their content.
//
// The Pipeline splits its input into Colab and GitHub links, drops duplicates
// and processes each link in turn: fetch, check the body is a JSON object,
// then upsert it by URL. Failures are typed by kind (fetch, parse, store,
// unsupported, disabled) and collected in a Report instead of stopping the run.
//
// GitHub links are read from the raw file host, or through the contents API
// when a token is configured. Colab links are Drive files and need an
// authorized Drive token; without one they are reported as disabled.
package ingestion
