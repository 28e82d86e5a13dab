// Package config loads and validates the pipeline configuration file.
//
// One YAML document drives every driver. JSON works unchanged since JSON is
// a YAML subset. The recognized sections:
//
//	global:       project id, dataset and table names, display names,
//	              forecast granularity/horizon, annotation scheduling
//	file_paths:   queries dir, checkpoints dir, warehouse database,
//	              training service credentials
//	query_files:  pipeline step -> SQL template file name
//	query_params: pipeline step -> parameters applied to its template
//	model:        column specs and training settings
//
// Params(step) merges the raw global section with the step's query_params,
// step values winning on collision, which is what the SQL templates expect:
// a template can reference both global names (forecasting_dataset) and
// step-local ones (departments) without caring where they came from.
package config
