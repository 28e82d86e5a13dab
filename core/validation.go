// Copyright 2025 Demandcast Authors
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

import "fmt"

// ValidateRecord validates a Record according to domain rules.
//
// Validation rules:
//   - ID must not be empty
//   - Narrative must not be empty
func ValidateRecord(record *Record) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidRecord)
	}

	if record.ID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrEmptyRecordID)
	}

	if record.Narrative == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrEmptyNarrative)
	}

	return nil
}

// ValidateAnnotation validates an Annotation according to domain rules.
//
// Validation rules:
//   - Document sentiment score in [-1, 1], magnitude non-negative
//   - Every entity must have a name and a type
//   - Entity sentiments follow the same range rules
//
// NOT validated (optional on the wire):
//   - Language (may be empty)
//   - Salience (API-assigned, not range-checked)
func ValidateAnnotation(annotation *Annotation) error {
	if annotation == nil {
		return fmt.Errorf("%w: annotation is nil", ErrInvalidAnnotation)
	}

	if err := ValidateSentiment(annotation.DocumentSentiment); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAnnotation, err)
	}

	for i := range annotation.Entities {
		if err := ValidateEntity(&annotation.Entities[i]); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidAnnotation, err)
		}
	}

	return nil
}

// ValidateEntity validates a single extracted entity.
func ValidateEntity(entity *Entity) error {
	if entity.Name == "" {
		return ErrEmptyEntityName
	}

	if entity.Type == "" {
		return ErrEmptyEntityType
	}

	return ValidateSentiment(entity.Sentiment)
}

// ValidateSentiment checks the score range and magnitude sign.
func ValidateSentiment(s Sentiment) error {
	if s.Score < -1 || s.Score > 1 {
		return ErrSentimentOutOfRange
	}

	if s.Magnitude < 0 {
		return ErrNegativeMagnitude
	}

	return nil
}
