package language

import (
	"context"
	"fmt"

	"github.com/demandcast/demandcast/core"
)

// Feature selects which analysis an annotation pass performs.
type Feature string

const (
	// FeatureSentiment analyzes document-level sentiment.
	FeatureSentiment Feature = "sentiment"

	// FeatureEntitySentiment extracts entities with sentiment aggregated
	// per entity.
	FeatureEntitySentiment Feature = "entity-sentiment"
)

// Analyzer produces annotations for narrative text.
// Implementations must be thread-safe for concurrent use.
type Analyzer interface {
	// AnalyzeSentiment returns the document-level sentiment of text.
	// Returns an error if the analysis call fails; callers decide whether
	// the failure is fatal (the batcher records it per record instead).
	AnalyzeSentiment(ctx context.Context, text string) (*core.Annotation, error)

	// AnalyzeEntitySentiment returns the entities mentioned in text, each
	// with its own sentiment.
	AnalyzeEntitySentiment(ctx context.Context, text string) (*core.Annotation, error)
}

// Analyze dispatches to the analyzer method matching the feature. It lets
// the batcher run either pass without knowing which one.
func Analyze(ctx context.Context, a Analyzer, feature Feature, text string) (*core.Annotation, error) {
	switch feature {
	case FeatureSentiment:
		return a.AnalyzeSentiment(ctx, text)
	case FeatureEntitySentiment:
		return a.AnalyzeEntitySentiment(ctx, text)
	default:
		return nil, fmt.Errorf("unknown analysis feature %q", feature)
	}
}
