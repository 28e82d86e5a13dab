// Package training drives the managed forecasting-training service.
//
// Client implements Service over the service's REST API, authenticated with
// a bearer token from the key file or the DEMANDCAST_TRAINING_TOKEN
// environment variable. Trainer sequences the full flow on top of any
// Service: create the dataset, import the train-split feature table, apply
// column specs and roles, then train the model, waiting on each
// long-running operation.
package training
