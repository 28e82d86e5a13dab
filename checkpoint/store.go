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


package checkpoint

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/demandcast/demandcast/core"
)

// DefaultMaxShardSize is the entry count at which appends roll over to a
// new shard file.
const DefaultMaxShardSize = 50000

// Shard maps record ids to their annotation outcomes.
type Shard map[string]core.Outcome

// Store is an ordered sequence of shards backed by a directory of JSON
// files. Only the last shard accepts new entries.
type Store struct {
	dir          string
	maxShardSize int
	shards       []Shard
	logger       *slog.Logger
}

// Option configures a Store during Open.
type Option func(*Store) error

// WithMaxShardSize overrides DefaultMaxShardSize.
func WithMaxShardSize(n int) Option {
	return func(s *Store) error {
		if n <= 0 {
			return fmt.Errorf("%w: %d", ErrInvalidShardSize, n)
		}
		s.maxShardSize = n
		return nil
	}
}

// WithLogger sets the logger used for load and append reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) error {
		s.logger = logger
		return nil
	}
}

// Open loads the checkpoint at dir. A missing or empty directory is created
// and yields a store holding exactly one empty shard; otherwise every
// regular file in the directory is deserialized as a shard, in ascending
// name order. Any file that fails to parse aborts the load with
// ErrMalformedShard: a partial checkpoint would silently re-annotate the
// records the unreadable shard already covered.
func Open(dir string, opts ...Option) (*Store, error) {
	s := &Store{
		dir:          dir,
		maxShardSize: DefaultMaxShardSize,
		logger:       slog.Default().With("component", "checkpoint"),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating checkpoint directory: %w", err)
	}

	// os.ReadDir returns entries sorted by name, which fixes shard order.
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading checkpoint directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading shard %s: %w", entry.Name(), err)
		}

		var shard Shard
		if err := json.Unmarshal(data, &shard); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrMalformedShard, entry.Name(), err)
		}
		s.shards = append(s.shards, shard)
	}

	if len(s.shards) == 0 {
		s.shards = []Shard{{}}
		s.logger.Debug("no checkpoint found, starting fresh", "dir", dir)
		return s, nil
	}

	s.logger.Debug("checkpoint loaded",
		"dir", dir,
		"shards", len(s.shards),
		"entries", s.Len())
	return s, nil
}

// Append merges a batch of outcomes into the last shard and persists it.
// When the batch would push the last shard past the maximum size, a fresh
// shard is appended first and receives the whole batch; earlier shards are
// never rewritten. An empty batch is a no-op.
func (s *Store) Append(batch map[string]core.Outcome) error {
	if len(batch) == 0 {
		return nil
	}

	last := s.shards[len(s.shards)-1]
	if len(last)+len(batch) > s.maxShardSize {
		last = Shard{}
		s.shards = append(s.shards, last)
		s.logger.Debug("rolled over to new shard", "shard", len(s.shards))
	}

	for id, outcome := range batch {
		last[id] = outcome
	}

	return s.writeLastShard()
}

func (s *Store) writeLastShard() error {
	name := shardFileName(len(s.shards))

	data, err := json.Marshal(s.shards[len(s.shards)-1])
	if err != nil {
		return fmt.Errorf("encoding shard %s: %w", name, err)
	}

	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0644); err != nil {
		return fmt.Errorf("writing shard %s: %w", name, err)
	}
	return nil
}

// shardFileName renders the 1-based shard index as the on-disk file name.
func shardFileName(index int) string {
	return fmt.Sprintf("%05d.json", index)
}

// Contains reports whether the record id is present in any shard.
func (s *Store) Contains(id string) bool {
	for _, shard := range s.shards {
		if _, ok := shard[id]; ok {
			return true
		}
	}
	return false
}

// SeenIDs collects every checkpointed record id into a set, so callers can
// skip-scan large tables without walking the shards per record.
func (s *Store) SeenIDs() map[string]struct{} {
	seen := make(map[string]struct{}, s.Len())
	for _, shard := range s.shards {
		for id := range shard {
			seen[id] = struct{}{}
		}
	}
	return seen
}

// Shards returns the ordered shard sequence backing the store. Callers must
// treat the returned shards as read-only.
func (s *Store) Shards() []Shard {
	return s.shards
}

// Len returns the total number of checkpointed outcomes across all shards.
func (s *Store) Len() int {
	n := 0
	for _, shard := range s.shards {
		n += len(shard)
	}
	return n
}

// Dir returns the checkpoint directory path.
func (s *Store) Dir() string {
	return s.dir
}
