// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package storage provides the storage abstraction layer for nbharvest.
//
// This package defines the NotebookRepository interface that decouples the
// harvesting and enrichment stages from the document store behind them.
// Two backends implement it:
//
//   - storage/badger: an embedded BadgerDB store with brute-force cosine search
//   - storage/mongo: a MongoDB collection with Atlas $vectorSearch
//
// # Constructor Return Type Pattern
//
// Public constructors return the storage.NotebookRepository interface:
//
//	repo, err := badger.NewRepository(path)
//	repo, err := mongo.NewRepository(ctx, uri, opts...)
//
// # Keys
//
// Notebooks are keyed by URL. The internal core.ID is derived from the URL,
// so saving the same URL twice replaces the stored document instead of
// creating a duplicate.
//
// # Usage
//
// Use in tests with in-memory storage:
//
//	repo, err := badger.NewMemoryRepository()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer repo.Close()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
