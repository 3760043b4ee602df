package store

import "errors"

var (
	// ErrUnavailable wraps failures to open the underlying database.
	ErrUnavailable = errors.New("storage unavailable")

	// ErrNotFound is returned when an id does not exist in its collection.
	ErrNotFound = errors.New("not found")

	// ErrUnknownCollection is returned for collections not declared in the schema.
	ErrUnknownCollection = errors.New("unknown collection")

	// ErrMalformedImport is returned for structural problems with an import
	// payload. Per-record problems never carry this error; they are collected
	// into the ImportResult instead.
	ErrMalformedImport = errors.New("malformed import payload")
)
