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


package training

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultPollInterval is how often WaitOperation checks a running
// operation. Imports take minutes and training takes hours.
const DefaultPollInterval = 30 * time.Second

const (
	datasetTypeForecasting    = "FORECASTING"
	predictionTypeForecasting = "FORECASTING"
)

// HTTPDoer is the part of http.Client the training client uses. Tests
// substitute fakes.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the forecasting-training service over its REST API.
// Every request carries the bearer token from the service key file.
type Client struct {
	endpoint     string
	project      string
	region       string
	token        string
	httpClient   HTTPDoer
	pollInterval time.Duration
	logger       *slog.Logger
}

// Option is a functional option for configuring a Client.
type Option func(*Client) error

// WithHTTPClient sets a custom HTTP transport.
// Default is an http.Client with a 60s timeout.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) error {
		if doer == nil {
			return errors.New("http client cannot be nil")
		}
		c.httpClient = doer
		return nil
	}
}

// WithPollInterval sets the delay between WaitOperation polls.
// Default is DefaultPollInterval.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return errors.New("poll interval must be positive")
		}
		c.pollInterval = d
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// NewClient creates a training service client scoped to one project and
// compute region.
//
// Returns Service (not *Client) to enforce abstraction.
func NewClient(endpoint, project, region, token string, opts ...Option) (Service, error) {
	switch {
	case strings.TrimSpace(endpoint) == "":
		return nil, errors.New("training endpoint is required")
	case strings.TrimSpace(project) == "":
		return nil, errors.New("project id is required")
	case strings.TrimSpace(region) == "":
		return nil, errors.New("compute region is required")
	case strings.TrimSpace(token) == "":
		return nil, ErrMissingToken
	}

	c := &Client{
		endpoint:     strings.TrimRight(endpoint, "/"),
		project:      project,
		region:       region,
		token:        token,
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		pollInterval: DefaultPollInterval,
		logger:       slog.Default().With("component", "training"),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

type createDatasetRequest struct {
	DisplayName string          `json:"displayName"`
	Metadata    datasetMetadata `json:"metadata"`
}

type datasetMetadata struct {
	DatasetType string `json:"tablesDatasetType"`
}

// CreateDataset registers a forecasting dataset. The dataset type is set
// explicitly; the service otherwise assumes a regression problem.
func (c *Client) CreateDataset(ctx context.Context, displayName string) (*Dataset, error) {
	if strings.TrimSpace(displayName) == "" {
		return nil, errors.New("dataset display name is required")
	}

	var dataset Dataset
	err := c.do(ctx, http.MethodPost, c.base()+"/datasets", createDatasetRequest{
		DisplayName: displayName,
		Metadata:    datasetMetadata{DatasetType: datasetTypeForecasting},
	}, &dataset)
	if err != nil {
		return nil, fmt.Errorf("creating dataset: %w", err)
	}

	c.logger.Info("created dataset", "display_name", displayName, "name", dataset.Name)
	return &dataset, nil
}

type importDataRequest struct {
	SourceURI string `json:"sourceUri"`
}

// ImportData starts loading rows from sourceURI into the dataset.
func (c *Client) ImportData(ctx context.Context, dataset, sourceURI string) (*Operation, error) {
	var op Operation
	err := c.do(ctx, http.MethodPost, c.resource(dataset)+":importData", importDataRequest{
		SourceURI: sourceURI,
	}, &op)
	if err != nil {
		return nil, fmt.Errorf("importing data: %w", err)
	}

	c.logger.Info("started data import", "source", sourceURI, "operation", op.Name)
	return &op, nil
}

type updateColumnSpecRequest struct {
	Column string `json:"column"`
	ColumnSpec
}

// UpdateColumnSpec sets the type, nullability, and forecasting type of one
// column.
func (c *Client) UpdateColumnSpec(ctx context.Context, dataset, column string, spec ColumnSpec) error {
	err := c.do(ctx, http.MethodPost, c.resource(dataset)+":updateColumnSpec", updateColumnSpecRequest{
		Column:     column,
		ColumnSpec: spec,
	}, nil)
	if err != nil {
		return fmt.Errorf("updating column spec for %q: %w", column, err)
	}
	return nil
}

// SetTimeColumn selects the column that indexes each time series.
func (c *Client) SetTimeColumn(ctx context.Context, dataset, column string) error {
	return c.setColumn(ctx, dataset, "setTimeColumn", column)
}

// SetTargetColumn selects the column the model predicts.
func (c *Client) SetTargetColumn(ctx context.Context, dataset, column string) error {
	return c.setColumn(ctx, dataset, "setTargetColumn", column)
}

// SetSplitColumn selects the column holding the manual TRAIN/VALIDATE/TEST
// assignment.
func (c *Client) SetSplitColumn(ctx context.Context, dataset, column string) error {
	return c.setColumn(ctx, dataset, "setSplitColumn", column)
}

// SetWeightColumn selects the column weighting each row's training loss.
func (c *Client) SetWeightColumn(ctx context.Context, dataset, column string) error {
	return c.setColumn(ctx, dataset, "setWeightColumn", column)
}

type setColumnRequest struct {
	Column string `json:"column"`
}

func (c *Client) setColumn(ctx context.Context, dataset, verb, column string) error {
	err := c.do(ctx, http.MethodPost, c.resource(dataset)+":"+verb, setColumnRequest{
		Column: column,
	}, nil)
	if err != nil {
		return fmt.Errorf("%s %q: %w", verb, column, err)
	}
	return nil
}

type createModelRequest struct {
	DisplayName               string   `json:"displayName"`
	Dataset                   string   `json:"dataset"`
	PredictionType            string   `json:"predictionType"`
	GranularityUnit           string   `json:"granularityUnit"`
	HorizonPeriods            int      `json:"horizonPeriods"`
	TrainBudgetMilliNodeHours int64    `json:"trainBudgetMilliNodeHours"`
	ExcludeColumns            []string `json:"excludeColumns,omitempty"`
	OptimizationObjective     string   `json:"optimizationObjective,omitempty"`
}

// CreateModel starts training a forecasting model on the dataset.
func (c *Client) CreateModel(ctx context.Context, dataset string, spec ModelSpec) (*Operation, error) {
	var op Operation
	err := c.do(ctx, http.MethodPost, c.base()+"/models", createModelRequest{
		DisplayName:               spec.DisplayName,
		Dataset:                   dataset,
		PredictionType:            predictionTypeForecasting,
		GranularityUnit:           spec.GranularityUnit,
		HorizonPeriods:            spec.HorizonPeriods,
		TrainBudgetMilliNodeHours: spec.TrainBudgetMilliNodeHours,
		ExcludeColumns:            spec.ExcludeColumns,
		OptimizationObjective:     spec.OptimizationObjective,
	}, &op)
	if err != nil {
		return nil, fmt.Errorf("creating model: %w", err)
	}

	c.logger.Info("started model training",
		"display_name", spec.DisplayName,
		"budget_milli_node_hours", spec.TrainBudgetMilliNodeHours,
		"operation", op.Name)
	return &op, nil
}

// WaitOperation polls the named operation until it finishes.
func (c *Client) WaitOperation(ctx context.Context, name string) error {
	for {
		var op Operation
		if err := c.do(ctx, http.MethodGet, c.resource(name), nil, &op); err != nil {
			return fmt.Errorf("polling operation %q: %w", name, err)
		}

		if op.Done {
			if op.Error != nil {
				return fmt.Errorf("%w: %s", ErrOperationFailed, op.Error.Message)
			}
			return nil
		}

		c.logger.Debug("operation still running", "operation", name)
		if err := sleepContext(ctx, c.pollInterval); err != nil {
			return err
		}
	}
}

// base is the project-and-region scope every collection URL lives under.
func (c *Client) base() string {
	return c.endpoint + "/v1/projects/" + c.project + "/locations/" + c.region
}

// resource addresses a server-assigned resource name such as
// "projects/p/locations/r/datasets/ds42".
func (c *Client) resource(name string) string {
	return c.endpoint + "/v1/" + name
}

func (c *Client) do(ctx context.Context, method, url string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling training service: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return newAPIError(resp.StatusCode, data)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// newAPIError extracts the server's error message when the body carries the
// standard {"error": {"message": ...}} envelope, falling back to the raw
// body.
func newAPIError(status int, body []byte) *APIError {
	message := strings.TrimSpace(string(body))

	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil && envelope.Error.Message != "" {
		message = envelope.Error.Message
	}
	return &APIError{Status: status, Message: message}
}

// sleepContext sleeps for d with context awareness.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
