package graph

import (
	"context"
	"errors"
	"fmt"
)

// Client is the backend a Writer talks to. Implementations must treat
// every value in a BatchOp as data (bind parameters), never as query
// text, and must make ExecuteBatch idempotent: re-executing a batch
// leaves the graph unchanged.
type Client interface {
	// ExecuteBatch applies one homogeneous chunk atomically.
	ExecuteBatch(ctx context.Context, op *BatchOp) error
	// ExistingIDs returns the node ids already stored for a project.
	ExistingIDs(ctx context.Context, project string) (map[string]struct{}, error)
	// ClearProject removes all nodes and edges of a project.
	ClearProject(ctx context.Context, project string) error
}

// TransientError marks a failure worth retrying: a lock timeout, a
// dropped connection. Anything not wrapped as transient is treated as
// permanent and fails the batch immediately.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as retryable. A nil err returns nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err is marked retryable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
