package types

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{
			name:    "empty backend returns ErrBackendEmpty",
			config:  Config{Backend: "", DataDir: "/tmp/data"},
			wantErr: ErrBackendEmpty,
		},
		{
			name:    "unknown backend returns ErrBackendUnknown",
			config:  Config{Backend: "postgres", DataDir: "/tmp/data"},
			wantErr: ErrBackendUnknown,
		},
		{
			name:   "valid sqlite config",
			config: Config{Backend: BackendSQLite, DataDir: "/tmp/data"},
		},
		{
			name:    "sqlite without DataDir",
			config:  Config{Backend: BackendSQLite},
			wantErr: ErrDataDirEmpty,
		},
		{
			name:    "cas without DataDir",
			config:  Config{Backend: BackendCAS},
			wantErr: ErrDataDirEmpty,
		},
		{
			name:   "memory needs nothing else",
			config: Config{Backend: BackendMemory},
		},
		{
			name:    "redis without addr",
			config:  Config{Backend: BackendRedis},
			wantErr: ErrRedisAddrEmpty,
		},
		{
			name:   "redis with addr",
			config: Config{Backend: BackendRedis, Redis: RedisConfig{Addr: "localhost:6379"}},
		},
		{
			name:    "remote without url",
			config:  Config{Backend: BackendRemote},
			wantErr: ErrRemoteURLEmpty,
		},
		{
			name:   "remote with url",
			config: Config{Backend: BackendRemote, Remote: RemoteConfig{URL: "http://peer:8080"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected nil error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error %v, got nil", tt.wantErr)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfigTimeout(t *testing.T) {
	assert.Equal(t, DefaultHTTPTimeout, Config{}.Timeout())
	assert.Equal(t, 3*time.Second, Config{HTTPTimeout: 3 * time.Second}.Timeout())
}
