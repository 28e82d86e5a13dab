// Package features builds the warehouse tables the forecasting model trains
// and evaluates on.
//
// Each step renders a SQL template with the merged global and per-step
// parameters and replaces its destination table with the results. The
// training and prediction splits share one template; only their parameters
// differ.
package features
