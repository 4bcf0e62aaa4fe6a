package paths

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withPlatform swaps the platform lookups for the duration of a test.
func withPlatform(t *testing.T, goos, home, configDir string) {
	t.Helper()
	saved := platformDir
	t.Cleanup(func() { platformDir = saved })
	platformDir.goos = goos
	platformDir.homeDir = func() (string, error) { return home, nil }
	platformDir.userConfigDir = func() (string, error) { return configDir, nil }
}

func TestDefaultDirsLinux(t *testing.T) {
	withPlatform(t, "linux", "/home/ada", "/unused")

	t.Run("XDG variables win", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-config")
		t.Setenv("XDG_DATA_HOME", "/tmp/xdg-data")

		cfg, err := DefaultConfigDir()
		require.NoError(t, err)
		assert.Equal(t, "/tmp/xdg-config/concepts", cfg)

		data, err := DefaultDataDir()
		require.NoError(t, err)
		assert.Equal(t, "/tmp/xdg-data/concepts", data)
	})

	t.Run("home fallbacks", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		t.Setenv("XDG_DATA_HOME", "")

		cfg, err := DefaultConfigDir()
		require.NoError(t, err)
		assert.Equal(t, "/home/ada/.config/concepts", cfg)

		data, err := DefaultDataDir()
		require.NoError(t, err)
		assert.Equal(t, "/home/ada/.local/share/concepts", data)
	})
}

func TestDefaultDirsDarwin(t *testing.T) {
	withPlatform(t, "darwin", "/Users/ada", "/Users/ada/Library/Application Support")
	want := "/Users/ada/Library/Application Support/concepts"

	cfg, err := DefaultConfigDir()
	require.NoError(t, err)
	assert.Equal(t, want, cfg)

	data, err := DefaultDataDir()
	require.NoError(t, err)
	assert.Equal(t, want, data)
}

func TestDefaultDirsHomeError(t *testing.T) {
	withPlatform(t, "linux", "", "")
	platformDir.homeDir = func() (string, error) { return "", errors.New("no home") }
	t.Setenv("XDG_CONFIG_HOME", "")

	_, err := DefaultConfigDir()
	assert.Error(t, err)
}

func TestResolveConfigDir(t *testing.T) {
	withPlatform(t, "linux", "/home/ada", "/unused")
	t.Setenv("XDG_CONFIG_HOME", "")

	tests := []struct {
		name   string
		flag   string
		envVal string
		want   string
	}{
		{"flag wins over env", "/explicit/config", "/env/config", "/explicit/config"},
		{"env wins when flag empty", "", "/env/config", "/env/config"},
		{"platform default when both empty", "", "", "/home/ada/.config/concepts"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvConfigDir, tt.envVal)
			got, err := ResolveConfigDir(tt.flag)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveDataDir(t *testing.T) {
	cwd, err := os.Getwd()
	require.NoError(t, err)

	tests := []struct {
		name        string
		flag        string
		configValue string
		envVal      string
		want        string
	}{
		{"flag wins over all", "/flag/data", "/config/data", "/env/data", "/flag/data"},
		{"config value wins over env", "", "/config/data", "/env/data", "/config/data"},
		{"env when flag and config empty", "", "", "/env/data", "/env/data"},
		{"CWD default when all empty", "", "", "", filepath.Join(cwd, DefaultDataDirName)},
		{"relative flag becomes absolute", "rel/data", "", "", filepath.Join(cwd, "rel/data")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvDataDir, tt.envVal)
			got, err := ResolveDataDir(tt.flag, tt.configValue)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFileHelpers(t *testing.T) {
	assert.Equal(t, filepath.Join("/cfg", "config.yaml"), ConfigFile("/cfg"))
	assert.Equal(t, filepath.Join("/cfg", "state.json"), StateFile("/cfg"))
}
