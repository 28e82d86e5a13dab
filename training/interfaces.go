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

import "context"

// Dataset is a training dataset created on the forecasting service.
type Dataset struct {
	// Name is the server-assigned resource name, for example
	// "projects/demandcast/locations/us-central1/datasets/ds42". All
	// follow-up calls address the dataset by this name.
	Name string `json:"name"`

	// DisplayName is the human-readable name from the configuration.
	DisplayName string `json:"displayName"`
}

// Operation is a long-running server-side job. Data imports and model
// training both return one; callers poll it until Done.
type Operation struct {
	Name  string          `json:"name"`
	Done  bool            `json:"done"`
	Error *OperationError `json:"error,omitempty"`
}

// OperationError is the failure detail of a finished operation.
type OperationError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ColumnSpec declares how the service should treat one training column.
type ColumnSpec struct {
	// TypeCode is the column data type, for example "FLOAT64" or
	// "CATEGORY".
	TypeCode string `json:"typeCode"`

	// Nullable allows missing values in the column.
	Nullable bool `json:"nullable"`

	// ForecastingType marks the column as varying with time
	// ("TIME_VARIANT") or fixed per series ("TIME_INDEPENDENT").
	ForecastingType string `json:"forecastingType"`
}

// ModelSpec carries the training parameters for CreateModel.
type ModelSpec struct {
	DisplayName               string
	GranularityUnit           string
	HorizonPeriods            int
	TrainBudgetMilliNodeHours int64
	ExcludeColumns            []string
	OptimizationObjective     string
}

// Service is the forecasting-training surface the train driver sequences
// over. The production implementation is the REST Client; tests substitute
// fakes.
type Service interface {
	// CreateDataset registers a new forecasting dataset under the given
	// display name.
	CreateDataset(ctx context.Context, displayName string) (*Dataset, error)

	// ImportData loads rows from a warehouse table, addressed by a
	// bq://project.dataset.table URI, into the dataset. The returned
	// operation completes when the import does.
	ImportData(ctx context.Context, dataset, sourceURI string) (*Operation, error)

	// UpdateColumnSpec sets the data type, nullability, and forecasting
	// type of one imported column.
	UpdateColumnSpec(ctx context.Context, dataset, column string, spec ColumnSpec) error

	// SetTimeColumn selects the column that indexes each time series.
	SetTimeColumn(ctx context.Context, dataset, column string) error

	// SetTargetColumn selects the column the model predicts.
	SetTargetColumn(ctx context.Context, dataset, column string) error

	// SetSplitColumn selects the column holding the manual
	// TRAIN/VALIDATE/TEST assignment.
	SetSplitColumn(ctx context.Context, dataset, column string) error

	// SetWeightColumn selects the column weighting each row's training
	// loss.
	SetWeightColumn(ctx context.Context, dataset, column string) error

	// CreateModel starts training a forecasting model on the dataset. The
	// returned operation completes when training does.
	CreateModel(ctx context.Context, dataset string, spec ModelSpec) (*Operation, error)

	// WaitOperation polls the named operation until it finishes, returning
	// ErrOperationFailed when the server reports a failure.
	WaitOperation(ctx context.Context, name string) error
}
