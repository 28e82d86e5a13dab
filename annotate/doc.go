// Package annotate drives narrative records through a language analyzer and
// persists per-record outcomes to a checkpoint store.
//
// Records are scanned in input order, previously checkpointed IDs are
// skipped, and the rest are annotated in fixed-size batches by a worker
// pool. Batch starts are spaced a minimum interval apart to stay inside API
// quota; the run returns as soon as the trailing partial batch lands. A
// failure never stops a run: the record is checkpointed with the error
// sentinel and not retried.
//
// The package also flattens checkpointed outcomes into the parallel feature
// columns the warehouse loads.
package annotate
