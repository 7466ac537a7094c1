package ruqqus

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFileConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ruqqus.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"autosave": true,
		"client_id": "file-cid",
		"client_secret": "file-secret",
		"user_agent": "file-agent",
		"refresh_token": "file-refresh"
	}`), 0o600))

	fc, err := LoadFileConfig(path)
	require.NoError(t, err)

	assert.True(t, fc.Autosave)
	assert.Equal(t, "file-cid", fc.ClientID)
	assert.Equal(t, "file-secret", fc.ClientSecret)
	assert.Equal(t, "file-agent", fc.UserAgent)
	assert.Equal(t, "file-refresh", fc.RefreshToken)
}

func TestLoadFileConfig_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ruqqus.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"client_id": "file-cid", "refresh_token": "file-refresh"}`), 0o600))

	t.Setenv("RUQQUS_CLIENT_ID", "env-cid")
	t.Setenv("RUQQUS_CLIENT_SECRET", "env-secret")

	fc, err := LoadFileConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "env-cid", fc.ClientID, "environment overrides the file")
	assert.Equal(t, "env-secret", fc.ClientSecret, "environment supplies missing values")
	assert.Equal(t, "file-refresh", fc.RefreshToken, "file values without overrides survive")
}

func TestLoadFileConfig_MissingFileUsesEnvironmentOnly(t *testing.T) {
	t.Setenv("RUQQUS_CLIENT_ID", "env-cid")

	fc, err := LoadFileConfig(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Equal(t, "env-cid", fc.ClientID)
}

func TestLoadFileConfig_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o600))

	_, err := LoadFileConfig(path)
	require.Error(t, err)
}

func TestFileConfig_SaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ruqqus.json")

	fc := &FileConfig{
		Autosave:     true,
		ClientID:     "cid",
		ClientSecret: "secret",
		RefreshToken: "refresh1",
	}
	require.NoError(t, fc.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm(), "credentials file must not be world-readable")

	loaded, err := LoadFileConfig(path)
	require.NoError(t, err)
	assert.Equal(t, fc, loaded)
}

func TestFileConfig_SaveOverwritesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ruqqus.json")

	first := &FileConfig{ClientID: "cid", RefreshToken: "old"}
	require.NoError(t, first.Save(path))

	second := &FileConfig{ClientID: "cid", RefreshToken: "new"}
	require.NoError(t, second.Save(path))

	loaded, err := LoadFileConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "new", loaded.RefreshToken)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestApplyFileConfig(t *testing.T) {
	config := &Config{
		ClientID: "explicit-cid",
	}
	applyFileConfig(config, &FileConfig{
		ClientID:     "file-cid",
		ClientSecret: "file-secret",
		UserAgent:    "file-agent",
		RefreshToken: "file-refresh",
	})

	assert.Equal(t, "explicit-cid", config.ClientID, "explicit Config values win")
	assert.Equal(t, "file-secret", config.ClientSecret)
	assert.Equal(t, "file-agent", config.UserAgent)
	assert.Equal(t, "file-refresh", config.RefreshToken)
}

func TestNewClient_LoadsConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ruqqus.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"client_id": "file-cid",
		"client_secret": "file-secret",
		"refresh_token": "file-refresh"
	}`), 0o600))

	client, err := NewClient(&Config{ConfigFile: path})
	require.NoError(t, err)

	assert.Equal(t, "file-cid", client.config.ClientID)
	assert.Equal(t, "file-refresh", client.config.RefreshToken)
}
