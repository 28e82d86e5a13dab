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

import "errors"

// Domain validation errors
var (
	// ErrInvalidRecord indicates a Record failed validation.
	ErrInvalidRecord = errors.New("invalid record")

	// ErrEmptyRecordID indicates the record ID field is empty.
	ErrEmptyRecordID = errors.New("record id cannot be empty")

	// ErrEmptyNarrative indicates the record narrative is empty.
	ErrEmptyNarrative = errors.New("narrative cannot be empty")

	// ErrInvalidAnnotation indicates an Annotation failed validation.
	ErrInvalidAnnotation = errors.New("invalid annotation")

	// ErrEmptyEntityName indicates the entity Name field is empty.
	ErrEmptyEntityName = errors.New("entity name cannot be empty")

	// ErrEmptyEntityType indicates the entity Type field is empty.
	ErrEmptyEntityType = errors.New("entity type cannot be empty")

	// ErrSentimentOutOfRange indicates a sentiment score outside [-1, 1].
	ErrSentimentOutOfRange = errors.New("sentiment score must be between -1 and 1")

	// ErrNegativeMagnitude indicates a negative sentiment magnitude.
	ErrNegativeMagnitude = errors.New("sentiment magnitude cannot be negative")

	// ErrMalformedOutcome indicates a stored outcome that is neither an
	// annotation object nor an error string.
	ErrMalformedOutcome = errors.New("malformed annotation outcome")
)
