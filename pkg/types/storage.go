package types

import (
	"context"
	"time"

	"github.com/mesh-intelligence/concepts/internal/errors"
)

// StorageProvider is the uniform persistence contract every backend
// satisfies. Data is an opaque serialized string; the provider never
// interprets it.
type StorageProvider interface {
	// Store persists data under id, overwriting any previous value, and
	// returns an implementation-defined handle (for example a content hash).
	// Callers may ignore the handle. Returns ErrInvalidID if id is empty.
	Store(ctx context.Context, id, data string) (string, error)

	// Retrieve returns the data stored under id.
	// Returns ErrNotFound if nothing is stored under id.
	Retrieve(ctx context.Context, id string) (string, error)

	// Update has the same contract as Store. It exists to document intent.
	Update(ctx context.Context, id, data string) error

	// Delete removes the association for id.
	// Returns ErrNotFound if id is absent, including on a repeated delete.
	Delete(ctx context.Context, id string) error

	// ListAll returns every id with live data.
	ListAll(ctx context.Context) ([]string, error)
}

// BlobStore is the immutable layer of a content-addressed backend. Put is
// idempotent: identical bytes yield the identical hash.
type BlobStore interface {
	Put(ctx context.Context, data []byte) (string, error)
	// Get returns ErrNotFound for an unknown hash.
	Get(ctx context.Context, hash string) ([]byte, error)
}

// PointerIndex is the mutable id -> content hash table of a content-addressed
// backend. Every Set and Remove is durable and appends a Version to the id's
// history with the given message.
type PointerIndex interface {
	// Get returns ErrNotFound if id has no pointer.
	Get(ctx context.Context, id string) (string, error)
	Set(ctx context.Context, id, hash, message string) error
	// Remove returns ErrNotFound if id has no pointer.
	Remove(ctx context.Context, id, message string) error
	IDs(ctx context.Context) ([]string, error)
	// History returns ErrNotFound if id was never set.
	History(ctx context.Context, id string) ([]Version, error)
}

// Version is one recorded change to an id, oldest first in a history. An
// empty Handle records a delete.
type Version struct {
	Handle  string    `json:"handle" yaml:"handle"`
	Message string    `json:"message" yaml:"message"`
	At      time.Time `json:"at" yaml:"at"`
}

// Historian is implemented by providers that keep every version of an id.
type Historian interface {
	// History returns the changes to id, oldest first, including changes
	// made before a delete. ErrNotFound if id was never stored.
	History(ctx context.Context, id string) ([]Version, error)
}

type changeMessageKey struct{}

// WithChangeMessage attaches a message describing the mutation made with
// ctx. Versioning providers record it; the rest ignore it. An existing
// message is kept, so the outermost caller names the change.
func WithChangeMessage(ctx context.Context, message string) context.Context {
	if _, ok := ChangeMessage(ctx); ok {
		return ctx
	}
	return context.WithValue(ctx, changeMessageKey{}, message)
}

// ChangeMessage returns the message set by WithChangeMessage.
func ChangeMessage(ctx context.Context) (string, bool) {
	msg, ok := ctx.Value(changeMessageKey{}).(string)
	return msg, ok
}

// Storage errors.
var (
	ErrNotFound    = errors.New("not found")
	ErrInvalidID   = errors.New("invalid id")
	ErrInvalidData = errors.New("invalid data")
)

// Domain errors.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrDeserialization = errors.New("deserialization failed")
	ErrNotInitialized  = errors.New("state not initialized")
	ErrRemote          = errors.New("remote call failed")
	ErrUnsupported     = errors.New("not supported by this backend")
)
