package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown source adapter type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrInvalidRecord indicates a raw record failed validation.
	// Expected for noisy upstream data; the record is dropped and counted.
	ErrInvalidRecord = errors.New("invalid record")

	// ErrSourceUnavailable indicates a source could not be fetched after
	// exhausting retries. The source is skipped for the run.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrPersistence indicates the inventory store is unreachable.
	// Unlike per-record write failures, this aborts the run.
	ErrPersistence = errors.New("persistence unavailable")
)
