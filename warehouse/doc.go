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


// Package warehouse provides the analytics warehouse abstraction for
// demandcast.
//
// The pipeline builds its feature and backtest tables by running SQL
// transformations inside the warehouse (create-table-as-select), pulls
// narrative records out for annotation, and loads the flattened sentiment
// features back in. This package defines the Client interface for those
// operations plus the run ledger, and the query template helpers shared by
// every step.
//
// # Constructor Return Type Pattern
//
// Public constructors of implementation packages return the Client
// interface to enforce abstraction:
//
//	wh, err := sqlite.NewClient(path)  // returns warehouse.Client interface
//
// Internal constructors may return concrete types since they're only used
// within the implementation package.
//
// # Query Templates
//
// Step queries live in .sql files with {name} placeholders. Placeholder
// values come from the merged global and per-step config parameters; a
// placeholder with no value fails the render rather than producing broken
// SQL.
//
// # Thread Safety
//
// Client implementations must be safe for concurrent use from multiple
// goroutines.
package warehouse
