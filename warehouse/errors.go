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


package warehouse

import "errors"

var (
	// ErrInvalidIdentifier indicates a dataset, table, or column name that
	// cannot be used as a SQL identifier.
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrMissingColumn indicates a query result lacking a required column.
	ErrMissingColumn = errors.New("missing column")

	// ErrMissingParam indicates a query template placeholder with no value.
	ErrMissingParam = errors.New("missing template parameter")

	// ErrRunNotFound indicates that the requested pipeline run was not found.
	ErrRunNotFound = errors.New("run not found")
)
