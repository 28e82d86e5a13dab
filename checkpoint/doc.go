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


// Package checkpoint persists annotation outcomes between pipeline runs.
//
// A checkpoint is a directory of JSON shard files. Shard k (1-based) is
// named by its zero-padded index, e.g. 00001.json, and holds one JSON
// object mapping record ids to outcomes: either a full annotation object
// or the "language error" sentinel string for records whose annotation
// call failed. The on-disk layout is a compatibility contract; tools that
// inspect or repair checkpoints depend on it.
//
// Opening a checkpoint that does not exist yet creates the directory and
// starts with a single empty shard, so a fresh run and a resumed run take
// the same code path. Appends fill the last shard up to the configured
// maximum and roll over to a new file past it; earlier shards are never
// rewritten.
//
// A shard file that fails to parse is a fatal load error rather than a
// skip: silently ignoring a corrupt shard would re-annotate (and re-bill)
// every record it contained.
//
// The Store is not safe for concurrent use. The annotation batcher is the
// only writer and serializes appends between batches.
package checkpoint
