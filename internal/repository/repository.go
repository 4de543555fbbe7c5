package repository

import (
	"context"

	"github.com/tmakar/linkshort/internal/model"
)

// LinkStore is the only component that mutates persisted link state.
// Implementations must enforce code uniqueness at the storage level (not by
// pre-checking) and perform the click increment as a single server-side
// atomic operation, so that N concurrent clicks always add exactly N.
type LinkStore interface {
	// Insert creates a link with zero clicks. Returns errors.ErrDuplicateCode
	// if the code is already taken; exactly one of two racing inserts on the
	// same code succeeds.
	Insert(ctx context.Context, code, targetURL string) (*model.Link, error)

	// FindByCode returns the link for code, or errors.ErrNotFound.
	FindByCode(ctx context.Context, code string) (*model.Link, error)

	// ListAll returns every link ordered by creation time ascending.
	ListAll(ctx context.Context) ([]model.Link, error)

	// IncrementClick atomically adds 1 to the click counter and stamps
	// last_clicked_at, returning the updated link. Returns errors.ErrNotFound
	// without mutation if no link matches.
	IncrementClick(ctx context.Context, code string) (*model.Link, error)

	// Delete removes the link, freeing its code for reuse.
	// Returns errors.ErrNotFound if no link matches.
	Delete(ctx context.Context, code string) error

	// Exists reports whether a code is currently taken.
	Exists(ctx context.Context, code string) (bool, error)

	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error

	// Close releases the store's resources.
	Close() error
}
