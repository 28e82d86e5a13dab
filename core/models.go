package core

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/go-crypt/x/blake2b"
)

// LanguageError is the sentinel stored in a checkpoint shard for a record
// whose annotation call failed. The value is part of the on-disk format and
// must not change.
const LanguageError = "language error"

// Fingerprint is a deterministic identity derived from content, used to
// correlate pipeline runs that executed with the same configuration.
type Fingerprint uint64

// FingerprintFromContent generates a deterministic fingerprint from text
// content using BLAKE2b hashing. Identical content produces identical
// fingerprints.
func FingerprintFromContent(text string) Fingerprint {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return Fingerprint(binary.LittleEndian.Uint64(sum))
}

// String renders the fingerprint as fixed-width hex.
func (f Fingerprint) String() string {
	return fmt.Sprintf("%016x", uint64(f))
}

// Record is a single row pulled from the warehouse for annotation:
// a unique identifier plus the free-text narrative to analyze.
type Record struct {
	ID        string
	Narrative string
}

// FeatureRow is one row of the sentiment features table: a record's
// document-level sentiment plus its per-entity sentiment lists. Records
// whose annotation failed or never ran carry zeros and empty lists.
type FeatureRow struct {
	ID                 string
	SentimentScore     float64
	SentimentMagnitude float64
	EntityNames        []string
	EntityTypes        []string
	EntityScores       []float64
	EntityMagnitudes   []float64
}

// Sentiment holds a sentiment score in [-1, 1] and a non-negative magnitude.
// Field names follow the annotation API's JSON, which omits zero values.
type Sentiment struct {
	Score     float64 `json:"score,omitempty"`
	Magnitude float64 `json:"magnitude,omitempty"`
}

// Entity is a single entity mention aggregated over a document.
type Entity struct {
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Salience  float64   `json:"salience,omitempty"`
	Sentiment Sentiment `json:"sentiment,omitzero"`
}

// Annotation is the result of analyzing one narrative. A sentiment analysis
// populates DocumentSentiment; an entity-sentiment analysis populates
// Entities. Both may be present when the passes are merged.
type Annotation struct {
	DocumentSentiment Sentiment `json:"documentSentiment,omitzero"`
	Entities          []Entity  `json:"entities,omitempty"`
	Language          string    `json:"language,omitempty"`
}

// Outcome is the per-record result of an annotation attempt: exactly one of
// a successful Annotation or an error string. On the wire it is either the
// annotation object or a bare JSON string (the LanguageError sentinel).
type Outcome struct {
	Annotation *Annotation
	Err        string
}

// Success wraps a completed annotation.
func Success(a *Annotation) Outcome {
	return Outcome{Annotation: a}
}

// Failure returns the outcome recorded for a failed annotation call.
func Failure() Outcome {
	return Outcome{Err: LanguageError}
}

// Failed reports whether the outcome carries an error instead of an
// annotation.
func (o Outcome) Failed() bool {
	return o.Err != ""
}

// MarshalJSON writes the sentinel string for failures and the annotation
// object for successes. An outcome holding neither is invalid.
func (o Outcome) MarshalJSON() ([]byte, error) {
	if o.Err != "" {
		return json.Marshal(o.Err)
	}
	if o.Annotation == nil {
		return nil, fmt.Errorf("%w: neither annotation nor error set", ErrMalformedOutcome)
	}
	return json.Marshal(o.Annotation)
}

// UnmarshalJSON accepts a JSON string (error outcome) or object (annotation).
// Any other JSON value is malformed.
func (o *Outcome) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return ErrMalformedOutcome
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedOutcome, err)
		}
		o.Annotation = nil
		o.Err = s
		return nil
	case '{':
		var a Annotation
		if err := json.Unmarshal(trimmed, &a); err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedOutcome, err)
		}
		o.Annotation = &a
		o.Err = ""
		return nil
	default:
		return fmt.Errorf("%w: outcome must be a string or an object", ErrMalformedOutcome)
	}
}
