// Package mock provides a test double implementation of language.Analyzer.
//
// The mock allows tests to run without the hosted annotation service and
// enables controlled, deterministic behavior.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	analyzer := mock.NewMockAnalyzer()
//	annotation, err := analyzer.AnalyzeSentiment(ctx, "test")
//
//	// Custom behavior injection
//	analyzer.AnalyzeSentimentFunc = func(ctx context.Context, text string) (*core.Annotation, error) {
//	    return nil, errors.New("quota exceeded")
//	}
//
//	// Check call counts
//	count := analyzer.SentimentCalls()
//
// # Default Behavior
//
// Without injected functions the mock derives stable sentiment values from a
// hash of the text, so the same input always produces the same annotation.
// Like the real backends it is safe for concurrent use; annotation runs call
// it from several workers at once.
package mock
