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


// Package language abstracts the text annotation service behind the
// Analyzer interface, so the batcher and drivers never couple to a
// concrete backend.
//
// Implementation packages:
//
//   - language/google: the hosted natural-language REST API (production)
//   - language/openai: an OpenAI-compatible chat model prompted into the
//     same annotation shape (local development, offline runs)
//   - language/mock: test doubles with injectable behavior
//
// Public constructors in the implementation packages return the Analyzer
// interface rather than their concrete types; only the mock package
// returns concrete types, since tests need access to call counters and
// function fields.
//
// All analyzer methods are safe for concurrent use; the annotation
// batcher calls them from a worker pool.
package language
