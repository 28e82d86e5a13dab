package mock

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"

	"github.com/demandcast/demandcast/core"
)

// MockAnalyzer is a test double for language.Analyzer.
// It allows custom behavior injection via function fields. Call counters are
// mutex-guarded because annotation runs invoke the analyzer from a worker
// pool.
type MockAnalyzer struct {
	// AnalyzeSentimentFunc is called by AnalyzeSentiment if set.
	// If nil, uses default deterministic behavior.
	AnalyzeSentimentFunc func(ctx context.Context, text string) (*core.Annotation, error)

	// AnalyzeEntitySentimentFunc is called by AnalyzeEntitySentiment if set.
	// If nil, uses default deterministic behavior.
	AnalyzeEntitySentimentFunc func(ctx context.Context, text string) (*core.Annotation, error)

	mu             sync.Mutex
	sentimentCalls int
	entityCalls    int
}

// NewMockAnalyzer creates a mock analyzer with default deterministic behavior.
// Note: Returns concrete type to allow test assertions on call counts.
func NewMockAnalyzer() *MockAnalyzer {
	return &MockAnalyzer{}
}

// AnalyzeSentiment returns a deterministic document sentiment derived from
// the text hash.
func (m *MockAnalyzer) AnalyzeSentiment(ctx context.Context, text string) (*core.Annotation, error) {
	m.mu.Lock()
	m.sentimentCalls++
	fn := m.AnalyzeSentimentFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, text)
	}

	score, magnitude := deterministicSentiment(text)
	return &core.Annotation{
		DocumentSentiment: core.Sentiment{Score: score, Magnitude: magnitude},
		Language:          "en",
	}, nil
}

// AnalyzeEntitySentiment extracts simple mock entities from text.
// Default behavior: the first words of the text become entities, each with a
// deterministic sentiment.
func (m *MockAnalyzer) AnalyzeEntitySentiment(ctx context.Context, text string) (*core.Annotation, error) {
	m.mu.Lock()
	m.entityCalls++
	fn := m.AnalyzeEntitySentimentFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, text)
	}

	words := strings.Fields(strings.ToLower(text))
	entities := make([]core.Entity, 0, len(words))
	salience := 1.0
	for i, word := range words {
		if i >= 3 { // Limit to 3 entities
			break
		}

		word = strings.Trim(word, ".,!?;:\"'()[]{}")
		if word == "" {
			continue
		}

		score, magnitude := deterministicSentiment(word)
		entities = append(entities, core.Entity{
			Name:     word,
			Type:     "OTHER",
			Salience: salience,
			Sentiment: core.Sentiment{
				Score:     score,
				Magnitude: magnitude,
			},
		})

		// Each subsequent entity matters less
		salience /= 2
	}

	return &core.Annotation{
		Entities: entities,
		Language: "en",
	}, nil
}

// SentimentCalls returns the number of times AnalyzeSentiment was called.
func (m *MockAnalyzer) SentimentCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sentimentCalls
}

// EntityCalls returns the number of times AnalyzeEntitySentiment was called.
func (m *MockAnalyzer) EntityCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entityCalls
}

// Reset clears the call counts and injected functions.
func (m *MockAnalyzer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sentimentCalls = 0
	m.entityCalls = 0
	m.AnalyzeSentimentFunc = nil
	m.AnalyzeEntitySentimentFunc = nil
}

// deterministicSentiment derives a stable (score, magnitude) pair from text.
// It uses FNV hash so the same text always produces the same values, with
// score in [-1, 1] and magnitude in [0, 3].
func deterministicSentiment(text string) (score, magnitude float64) {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	score = float64(seed%2001)/1000.0 - 1.0
	seed = seed*1664525 + 1013904223 // LCG constants
	magnitude = float64(seed%3001) / 1000.0
	return score, magnitude
}
