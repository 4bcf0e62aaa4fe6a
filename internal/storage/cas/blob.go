package cas

import (
	"context"
	"crypto/sha256"
	"os"
	"path/filepath"

	"github.com/mr-tron/base58"

	"github.com/mesh-intelligence/concepts/internal/errors"
	"github.com/mesh-intelligence/concepts/internal/fsutil"
	"github.com/mesh-intelligence/concepts/pkg/types"
)

// Hash returns the content address of data: the base58 SHA-256 digest.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return base58.Encode(sum[:])
}

// FileBlobStore keeps immutable blobs under dir, fanned out by the first two
// characters of the hash. Blobs are never rewritten or removed.
type FileBlobStore struct {
	dir string
}

// NewFileBlobStore returns a blob store rooted at dir.
func NewFileBlobStore(dir string) *FileBlobStore {
	return &FileBlobStore{dir: dir}
}

func (s *FileBlobStore) path(hash string) string {
	return filepath.Join(s.dir, hash[:2], hash)
}

// Put stores data and returns its hash. Existing blobs are left untouched.
func (s *FileBlobStore) Put(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	hash := Hash(data)
	path := s.path(hash)
	if _, err := os.Stat(path); err == nil {
		return hash, nil
	}
	if err := fsutil.WriteFileAtomic(path, data, 0o444); err != nil {
		return "", errors.Wrapf(err, "write blob %s", hash)
	}
	return hash, nil
}

// Get returns the blob for hash. The content is verified against the hash.
func (s *FileBlobStore) Get(ctx context.Context, hash string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(hash) < 2 {
		return nil, errors.Wrapf(types.ErrNotFound, "blob %q", hash)
	}
	data, err := os.ReadFile(s.path(hash))
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(types.ErrNotFound, "blob %s", hash)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read blob %s", hash)
	}
	if got := Hash(data); got != hash {
		return nil, errors.Newf("blob %s is corrupt: content hashes to %s", hash, got)
	}
	return data, nil
}
