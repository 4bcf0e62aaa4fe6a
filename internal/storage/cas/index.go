package cas

import (
	"context"
	"encoding/json"
	"os"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/mesh-intelligence/concepts/internal/errors"
	"github.com/mesh-intelligence/concepts/internal/fsutil"
	"github.com/mesh-intelligence/concepts/pkg/types"
)

// indexFile is the on-disk layout of index.json.
type indexFile struct {
	Pointers map[string]string          `json:"pointers"`
	History  map[string][]types.Version `json:"history"`
}

// FileIndex is the mutable id -> hash table, kept in a single JSON file.
//
// The file is decoded once and then served from memory. Set and Remove
// write the whole index back atomically before returning; a failed write
// drops the cached copy so the next call reloads what is on disk.
type FileIndex struct {
	mu    sync.Mutex
	path  string
	state *indexFile
}

// NewFileIndex returns an index persisted at path.
func NewFileIndex(path string) *FileIndex {
	return &FileIndex{path: path}
}

// load returns the cached index, reading the file on first use. The caller
// must hold x.mu.
func (x *FileIndex) load() (*indexFile, error) {
	if x.state != nil {
		return x.state, nil
	}
	f := &indexFile{}
	data, err := os.ReadFile(x.path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, errors.Wrap(err, "read index")
	case len(data) > 0:
		if err := json.Unmarshal(data, f); err != nil {
			return nil, errors.Wrapf(err, "decode index %s", x.path)
		}
	}
	if f.Pointers == nil {
		f.Pointers = map[string]string{}
	}
	if f.History == nil {
		f.History = map[string][]types.Version{}
	}
	x.state = f
	return f, nil
}

func (x *FileIndex) flush() error {
	data, err := json.MarshalIndent(x.state, "", "  ")
	if err == nil {
		err = fsutil.WriteFileAtomic(x.path, data, 0o644)
	}
	if err != nil {
		x.state = nil
		return errors.Wrap(err, "write index")
	}
	return nil
}

func (f *indexFile) record(id, hash, message string) {
	f.History[id] = append(f.History[id], types.Version{
		Handle:  hash,
		Message: message,
		At:      time.Now().UTC().Truncate(time.Millisecond),
	})
}

// Get returns the hash id points to.
func (x *FileIndex) Get(ctx context.Context, id string) (string, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	f, err := x.load()
	if err != nil {
		return "", err
	}
	hash, ok := f.Pointers[id]
	if !ok {
		return "", errors.Wrapf(types.ErrNotFound, "no pointer for id %s", id)
	}
	return hash, nil
}

// Set points id at hash and records the change.
func (x *FileIndex) Set(ctx context.Context, id, hash, message string) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	f, err := x.load()
	if err != nil {
		return err
	}
	f.Pointers[id] = hash
	f.record(id, hash, message)
	return x.flush()
}

// Remove drops the pointer for id. Its history is kept.
func (x *FileIndex) Remove(ctx context.Context, id, message string) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	f, err := x.load()
	if err != nil {
		return err
	}
	if _, ok := f.Pointers[id]; !ok {
		return errors.Wrapf(types.ErrNotFound, "no pointer for id %s", id)
	}
	delete(f.Pointers, id)
	f.record(id, "", message)
	return x.flush()
}

// IDs returns every id with a pointer, sorted.
func (x *FileIndex) IDs(ctx context.Context) ([]string, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	f, err := x.load()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(f.Pointers))
	for id := range f.Pointers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// History returns a copy of the recorded changes to id, oldest first.
func (x *FileIndex) History(ctx context.Context, id string) ([]types.Version, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	f, err := x.load()
	if err != nil {
		return nil, err
	}
	versions, ok := f.History[id]
	if !ok {
		return nil, errors.Wrapf(types.ErrNotFound, "no history for id %s", id)
	}
	return slices.Clone(versions), nil
}
