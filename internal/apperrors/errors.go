// Package apperrors defines the sentinel errors shared across datasetd.
// Callers wrap them with fmt.Errorf("...: %w", ...) and test with errors.Is.
package apperrors

import "errors"

var (
	// ErrSourceNotFound is returned when an input file or stream is absent.
	ErrSourceNotFound = errors.New("source not found")

	// ErrEmptyDocument is returned when a document has no row elements.
	ErrEmptyDocument = errors.New("document has no rows")

	// ErrSchemaUnavailable is returned when validation is requested before a
	// schema has been generated.
	ErrSchemaUnavailable = errors.New("schema unavailable")

	// ErrStoreUnavailable is returned when the relational store could not be
	// reached within the configured retry window.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrInvalidFilterField marks a filter on a field the document does not have.
	ErrInvalidFilterField = errors.New("field does not exist")

	// ErrInvalidFilterValue marks a filter on a value the document never holds.
	ErrInvalidFilterValue = errors.New("value not found")

	// ErrNotReady is returned by queries when no valid dataset is loaded.
	ErrNotReady = errors.New("dataset not ready")

	// ErrInvalidUpload is returned for malformed upload streams.
	ErrInvalidUpload = errors.New("invalid upload")
)
