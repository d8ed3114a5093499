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

package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidNotebook indicates a NotebookRecord failed validation.
	ErrInvalidNotebook = errors.New("invalid notebook record")

	// ErrInvalidTimestamp indicates a timestamp is in the future.
	ErrInvalidTimestamp = errors.New("timestamp cannot be in the future")

	// ErrEmptyURL indicates the URL field is empty.
	ErrEmptyURL = errors.New("url cannot be empty")

	// ErrEmptyContent indicates the Content field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrInvalidCourseLevel indicates an unknown CourseLevel value.
	ErrInvalidCourseLevel = errors.New("invalid course level")

	// ErrInvalidSequencePosition indicates an unknown SequencePosition value.
	ErrInvalidSequencePosition = errors.New("invalid sequence position")

	// ErrIncompleteMetadata indicates a record is marked processed but misses a required field.
	ErrIncompleteMetadata = errors.New("processed record is missing metadata")

	// ErrZeroVector indicates an embedding with no magnitude.
	ErrZeroVector = errors.New("embedding vector is all zeros")

	// ErrTruncatedVector indicates a serialized vector is shorter than its declared length.
	ErrTruncatedVector = errors.New("truncated vector data")
)
