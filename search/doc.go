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

// Package search finds stored notebooks similar to a free-text query.
//
// The query is embedded and normalized, the repository returns the nearest
// limit*3 embedded notebooks, and the optional Filters are applied to that
// candidate set before it is cut to limit. Notebooks without an embedding
// never take part in ranking.
//
// All filters are combined with AND. Language, course level and sequence
// position compare case-insensitively for equality; context matches when the
// stored context contains the filter text.
package search
