package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrIngestion marks bad or incomplete corpus data. A build that hits it
	// fails as a whole; the previously published index stays live.
	ErrIngestion = errors.New("corpus ingestion failed")

	// ErrIndexMismatch marks a query issued against an index built by a
	// different embedding function.
	ErrIndexMismatch = errors.New("embedding identity mismatch")

	// ErrInvalidArgument marks malformed call parameters. Never retried.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrExternalService marks an embedding/inference collaborator failure
	// that survived the retry budget.
	ErrExternalService = errors.New("external service failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
