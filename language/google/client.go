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


// Package google implements language.Analyzer against the hosted
// natural-language REST API.
package google

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/demandcast/demandcast/core"
	"github.com/demandcast/demandcast/language"
)

// Client calls the documents:analyzeSentiment and
// documents:analyzeEntitySentiment methods over plain HTTP. Responses
// decode straight into core.Annotation, whose field names follow the API's
// JSON.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

type document struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type analyzeRequest struct {
	Document     document `json:"document"`
	EncodingType string   `json:"encodingType"`
}

// NewClient creates an analyzer for the hosted annotation API. The API key
// is sent as the key query parameter when non-empty.
//
// Returns language.Analyzer (not *Client) to enforce abstraction.
func NewClient(config *language.Config, apiKey string) (language.Analyzer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Client{
		endpoint:   config.Endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     slog.Default().With("component", "language-google"),
	}, nil
}

// AnalyzeSentiment returns the document-level sentiment of text.
func (c *Client) AnalyzeSentiment(ctx context.Context, text string) (*core.Annotation, error) {
	return c.analyze(ctx, "analyzeSentiment", text)
}

// AnalyzeEntitySentiment returns the entities in text with per-entity
// sentiment.
func (c *Client) AnalyzeEntitySentiment(ctx context.Context, text string) (*core.Annotation, error) {
	return c.analyze(ctx, "analyzeEntitySentiment", text)
}

func (c *Client) analyze(ctx context.Context, method, text string) (*core.Annotation, error) {
	payload, err := json.Marshal(analyzeRequest{
		Document:     document{Type: "PLAIN_TEXT", Content: text},
		EncodingType: "UTF8",
	})
	if err != nil {
		return nil, fmt.Errorf("encoding %s request: %w", method, err)
	}

	endpoint := fmt.Sprintf("%s/v1/documents:%s", c.endpoint, method)
	if c.apiKey != "" {
		endpoint += "?key=" + url.QueryEscape(c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", method, err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Debug("annotation call failed",
			"method", method,
			"status", resp.StatusCode)
		return nil, fmt.Errorf("%s: status %d: %s", method, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var annotation core.Annotation
	if err := json.Unmarshal(body, &annotation); err != nil {
		return nil, fmt.Errorf("decoding %s response: %w", method, err)
	}
	return &annotation, nil
}
