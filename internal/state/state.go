// Package state persists which owner this node acts as.
package state

import (
	"encoding/json"
	"os"

	"github.com/mesh-intelligence/concepts/internal/errors"
	"github.com/mesh-intelligence/concepts/internal/fsutil"
	"github.com/mesh-intelligence/concepts/pkg/types"
)

// InitHint is attached to ErrNotInitialized.
const InitHint = "run `concepts init <name>` first"

// State is the node's local identity.
type State struct {
	OwnerID   string `json:"ownerId"`
	OwnerName string `json:"ownerName,omitempty"`
}

// Manager reads and writes the state file.
type Manager struct {
	path string
}

// NewManager returns a manager for the file at path.
func NewManager(path string) *Manager {
	return &Manager{path: path}
}

// Path returns the state file location.
func (m *Manager) Path() string {
	return m.path
}

// Save writes s atomically.
func (m *Manager) Save(s State) error {
	if s.OwnerID == "" {
		return errors.Wrap(types.ErrInvalidArgument, "owner id must not be empty")
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode state")
	}
	if err := fsutil.WriteFileAtomic(m.path, data, 0o600); err != nil {
		return errors.Wrapf(err, "write state %s", m.path)
	}
	return nil
}

// Load reads the state. A missing file fails with ErrNotInitialized and a
// hint telling the user how to fix it.
func (m *Manager) Load() (State, error) {
	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		return State{}, errors.WithHint(types.ErrNotInitialized, InitHint)
	}
	if err != nil {
		return State{}, errors.Wrapf(err, "read state %s", m.path)
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return State{}, errors.Mark(errors.Wrapf(err, "decode state %s", m.path), types.ErrDeserialization)
	}
	if s.OwnerID == "" {
		return State{}, errors.WithHint(
			errors.Wrapf(types.ErrNotInitialized, "%s has no owner id", m.path), InitHint)
	}
	return s, nil
}

// Exists reports whether the state file is present.
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.path)
	return err == nil
}
