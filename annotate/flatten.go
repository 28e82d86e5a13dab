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


package annotate

import (
	"sort"

	"github.com/demandcast/demandcast/checkpoint"
	"github.com/demandcast/demandcast/core"
)

// FeatureColumns holds flattened annotation outcomes as parallel columns.
// All slices have one element per record ID, in the same order.
type FeatureColumns struct {
	IDs                 []string
	SentimentScores     []float64
	SentimentMagnitudes []float64
	EntityNames         [][]string
	EntityTypes         [][]string
	EntityScores        [][]float64
	EntityMagnitudes    [][]float64
}

// Len returns the number of flattened records.
func (fc *FeatureColumns) Len() int {
	return len(fc.IDs)
}

// Flatten turns checkpointed outcomes into parallel feature columns. Shards
// are walked in order and IDs within each shard in sorted order, so the
// output is the same on every call over the same shards. A failed outcome
// contributes zero sentiment values and empty entity lists, exactly like a
// record the analyzer never saw.
func Flatten(shards []checkpoint.Shard) *FeatureColumns {
	total := 0
	for _, shard := range shards {
		total += len(shard)
	}

	fc := &FeatureColumns{
		IDs:                 make([]string, 0, total),
		SentimentScores:     make([]float64, 0, total),
		SentimentMagnitudes: make([]float64, 0, total),
		EntityNames:         make([][]string, 0, total),
		EntityTypes:         make([][]string, 0, total),
		EntityScores:        make([][]float64, 0, total),
		EntityMagnitudes:    make([][]float64, 0, total),
	}

	for _, shard := range shards {
		ids := make([]string, 0, len(shard))
		for id := range shard {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		for _, id := range ids {
			fc.append(id, shard[id])
		}
	}

	return fc
}

func (fc *FeatureColumns) append(id string, outcome core.Outcome) {
	fc.IDs = append(fc.IDs, id)

	if outcome.Failed() || outcome.Annotation == nil {
		fc.SentimentScores = append(fc.SentimentScores, 0)
		fc.SentimentMagnitudes = append(fc.SentimentMagnitudes, 0)
		fc.EntityNames = append(fc.EntityNames, []string{})
		fc.EntityTypes = append(fc.EntityTypes, []string{})
		fc.EntityScores = append(fc.EntityScores, []float64{})
		fc.EntityMagnitudes = append(fc.EntityMagnitudes, []float64{})
		return
	}

	annotation := outcome.Annotation
	fc.SentimentScores = append(fc.SentimentScores, annotation.DocumentSentiment.Score)
	fc.SentimentMagnitudes = append(fc.SentimentMagnitudes, annotation.DocumentSentiment.Magnitude)

	names := make([]string, 0, len(annotation.Entities))
	types := make([]string, 0, len(annotation.Entities))
	scores := make([]float64, 0, len(annotation.Entities))
	magnitudes := make([]float64, 0, len(annotation.Entities))
	for _, entity := range annotation.Entities {
		names = append(names, entity.Name)
		types = append(types, entity.Type)
		scores = append(scores, entity.Sentiment.Score)
		magnitudes = append(magnitudes, entity.Sentiment.Magnitude)
	}

	fc.EntityNames = append(fc.EntityNames, names)
	fc.EntityTypes = append(fc.EntityTypes, types)
	fc.EntityScores = append(fc.EntityScores, scores)
	fc.EntityMagnitudes = append(fc.EntityMagnitudes, magnitudes)
}

// Join aligns flattened sentiment and entity columns with the given records,
// producing one feature row per record in record order. A record missing
// from either column set gets the same zeros and empty lists as a failed
// annotation.
func Join(records []core.Record, sentiments, entities *FeatureColumns) []core.FeatureRow {
	sentimentIdx := indexByID(sentiments)
	entityIdx := indexByID(entities)

	rows := make([]core.FeatureRow, 0, len(records))
	for _, record := range records {
		row := core.FeatureRow{
			ID:               record.ID,
			EntityNames:      []string{},
			EntityTypes:      []string{},
			EntityScores:     []float64{},
			EntityMagnitudes: []float64{},
		}

		if i, ok := sentimentIdx[record.ID]; ok {
			row.SentimentScore = sentiments.SentimentScores[i]
			row.SentimentMagnitude = sentiments.SentimentMagnitudes[i]
		}

		if i, ok := entityIdx[record.ID]; ok {
			row.EntityNames = entities.EntityNames[i]
			row.EntityTypes = entities.EntityTypes[i]
			row.EntityScores = entities.EntityScores[i]
			row.EntityMagnitudes = entities.EntityMagnitudes[i]
		}

		rows = append(rows, row)
	}

	return rows
}

func indexByID(fc *FeatureColumns) map[string]int {
	if fc == nil {
		return nil
	}

	idx := make(map[string]int, len(fc.IDs))
	for i, id := range fc.IDs {
		idx[id] = i
	}
	return idx
}
