package types

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mesh-intelligence/concepts/internal/errors"
)

func TestOwnerInfoValidate(t *testing.T) {
	tests := []struct {
		name    string
		info    OwnerInfo
		wantErr bool
	}{
		{name: "valid", info: OwnerInfo{ID: "o1", Name: "Alice", Endpoint: "https://alice.example.com"}},
		{name: "valid with port", info: OwnerInfo{ID: "o1", Name: "Alice", Endpoint: "http://localhost:8080"}},
		{name: "missing id", info: OwnerInfo{Name: "Alice", Endpoint: "https://alice.example.com"}, wantErr: true},
		{name: "missing name", info: OwnerInfo{ID: "o1", Endpoint: "https://alice.example.com"}, wantErr: true},
		{name: "missing endpoint", info: OwnerInfo{ID: "o1", Name: "Alice"}, wantErr: true},
		{name: "endpoint not a url", info: OwnerInfo{ID: "o1", Name: "Alice", Endpoint: "alice"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.info.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, ErrInvalidArgument), "got %v", err)
		})
	}
}
