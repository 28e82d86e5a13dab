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


// Package openai implements language.Analyzer on OpenAI-compatible chat
// APIs, for local development and offline runs where the hosted annotation
// service is unavailable.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"github.com/demandcast/demandcast/core"
	"github.com/demandcast/demandcast/language"
)

// Analyzer prompts a chat model into the hosted annotation API's JSON shape
// and parses the reply into core.Annotation. Scores come from a general
// model rather than the hosted service; treat them as approximations.
type Analyzer struct {
	client llms.Model
	logger *slog.Logger
}

func newAnalyzer(config *language.Config, apiKey string) (*Analyzer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Use "none" as token for local OpenAI-compatible services that don't
	// require authentication.
	if apiKey == "" {
		apiKey = "none"
	}

	client, err := openai.New(
		openai.WithBaseURL(config.Endpoint),
		openai.WithToken(apiKey),
		openai.WithModel(config.Model),
	)
	if err != nil {
		return nil, err
	}

	return &Analyzer{
		client: client,
		logger: slog.Default().With("component", "language-openai"),
	}, nil
}

// NewAnalyzer creates an analyzer backed by an OpenAI-compatible chat API.
//
// Returns language.Analyzer interface to enforce abstraction.
func NewAnalyzer(config *language.Config, apiKey string) (language.Analyzer, error) {
	return newAnalyzer(config, apiKey)
}

// AnalyzeSentiment prompts the model for document-level sentiment.
func (a *Analyzer) AnalyzeSentiment(ctx context.Context, text string) (*core.Annotation, error) {
	return a.generate(ctx, sentimentPrompt(), text)
}

// AnalyzeEntitySentiment prompts the model for entities with per-entity
// sentiment.
func (a *Analyzer) AnalyzeEntitySentiment(ctx context.Context, text string) (*core.Annotation, error) {
	return a.generate(ctx, entityPrompt(), text)
}

func (a *Analyzer) generate(ctx context.Context, systemPrompt, text string) (*core.Annotation, error) {
	content := []llms.MessageContent{
		{
			Role: schema.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(systemPrompt),
			},
		},
		{
			Role: schema.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(text),
			},
		},
	}

	// Try up to 3 times in case of malformed JSON
	var annotation core.Annotation
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		response, err := a.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			a.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return nil, err
		}

		if len(response.Choices) < 1 {
			return nil, errors.New("no choices returned from model")
		}

		responseText := stripFences(response.Choices[0].Content)

		var candidate core.Annotation
		if err := json.Unmarshal([]byte(responseText), &candidate); err != nil {
			lastErr = err
			a.logger.Warn("error parsing model response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}

		if err := core.ValidateAnnotation(&candidate); err != nil {
			lastErr = err
			a.logger.Warn("model produced invalid annotation",
				"attempt", attempt+1,
				"err", err)
			continue
		}

		annotation = candidate
		lastErr = nil
		break
	}

	if lastErr != nil {
		a.logger.Error("failed to parse model response after retries", "err", lastErr)
		return nil, fmt.Errorf("parsing model response: %w", lastErr)
	}

	return &annotation, nil
}

// stripFences removes markdown code fences some models wrap around JSON.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
