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

import (
	"fmt"
	"time"
)

// ValidateNotebookRecord validates a NotebookRecord according to domain rules.
//
// Validation rules:
//   - URL must not be empty
//   - Content must not be empty
//   - DateSaved must not be in the future
//   - When MetadataProcessed is set, the metadata must be complete (see ValidateMetadata)
//
// NOT validated:
//   - Vector (may be nil when embedding failed)
//   - ID (derived from URL by storage)
func ValidateNotebookRecord(record *NotebookRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidNotebook)
	}

	if record.URL == "" {
		return fmt.Errorf("%w: %w", ErrInvalidNotebook, ErrEmptyURL)
	}

	if len(record.Content) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidNotebook, ErrEmptyContent)
	}

	if !IsValidTimestamp(record.DateSaved) {
		return fmt.Errorf("%w: %w", ErrInvalidNotebook, ErrInvalidTimestamp)
	}

	if record.MetadataProcessed {
		if err := ValidateMetadata(&record.Metadata); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidNotebook, err)
		}
	}

	return nil
}

// ValidateMetadata checks the fields a processed record must carry.
// CSConcepts may be empty and Vector may be nil, but a present Vector must not be all zeros.
func ValidateMetadata(meta *Metadata) error {
	switch {
	case meta.Language == "":
		return fmt.Errorf("%w: language", ErrIncompleteMetadata)
	case meta.Context == "":
		return fmt.Errorf("%w: context", ErrIncompleteMetadata)
	case meta.ContentSample == "":
		return fmt.Errorf("%w: content sample", ErrIncompleteMetadata)
	}

	if err := ValidateCourseLevel(meta.CourseLevel); err != nil {
		return err
	}
	if err := ValidateSequencePosition(meta.SequencePosition); err != nil {
		return err
	}

	if meta.Vector != nil && isZeroVector(meta.Vector) {
		return ErrZeroVector
	}
	return nil
}

// ValidateCourseLevel validates that a CourseLevel has a known value.
func ValidateCourseLevel(level CourseLevel) error {
	switch level {
	case CourseLevelIntroductory, CourseLevelIntermediate, CourseLevelAdvanced:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidCourseLevel, level)
}

// ValidateSequencePosition validates that a SequencePosition has a known value.
func ValidateSequencePosition(pos SequencePosition) error {
	switch pos {
	case SequenceBeginning, SequenceMiddle, SequenceEnd:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidSequencePosition, pos)
}

// IsValidTimestamp checks if a timestamp is valid (not in the future).
func IsValidTimestamp(ts time.Time) bool {
	return !ts.After(time.Now())
}

func isZeroVector(v []float32) bool {
	for _, f := range v {
		if f != 0 {
			return false
		}
	}
	return true
}
