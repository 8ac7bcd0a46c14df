package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerConfig_Defaults(t *testing.T) {
	cfg := DefaultServerConfig()
	assert.Equal(t, "0.0.0.0:2600", cfg.Address)
	assert.NotEmpty(t, cfg.BackupDir)
	assert.NoError(t, cfg.Validate())
}

func TestServerConfig_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "server.yaml")

	cfg := &ServerConfig{Address: "127.0.0.1:9000", BackupDir: "/srv/backups", MultipathTCP: true}
	require.NoError(t, cfg.Save(path))

	loaded, err := LoadServerConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadServerConfig_Missing(t *testing.T) {
	_, err := LoadServerConfig(filepath.Join(t.TempDir(), "server.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadServerConfig_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backup_dir: /data\n"), 0o644))

	cfg, err := LoadServerConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/data", cfg.BackupDir)
	assert.Equal(t, DefaultServerConfig().Address, cfg.Address)
}

func TestLoadServerConfig_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte("address: [unterminated\n"), 0o644))

	_, err := LoadServerConfig(path)
	require.Error(t, err)
	assert.NotErrorIs(t, err, os.ErrNotExist)
}

func TestLoadOrCreateServerConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "server.yaml")

	cfg, created, err := LoadOrCreateServerConfig(path)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, DefaultServerConfig(), cfg)
	assert.FileExists(t, path)

	again, created, err := LoadOrCreateServerConfig(path)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, cfg, again)
}

func TestClientConfig_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := LoadClientConfig(filepath.Join(t.TempDir(), "client.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultClientConfig(), cfg)
	assert.Error(t, cfg.Validate())
}

func TestClientConfig_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.yaml")

	cfg := &ClientConfig{
		RemoteAddress: "backup.lan:2600",
		Exclude:       []string{"**/.git", "*.tmp"},
		DSCP:          0x0A,
		MultipathTCP:  true,
	}
	require.NoError(t, cfg.Save(path))

	loaded, err := LoadClientConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
	assert.NoError(t, loaded.Validate())
}

func TestClientConfig_ValidateDSCP(t *testing.T) {
	cfg := &ClientConfig{RemoteAddress: "host:2600", DSCP: 300}
	assert.Error(t, cfg.Validate())
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	path, err := DefaultPath("server.yaml")
	require.NoError(t, err)
	assert.Equal(t, "server.yaml", filepath.Base(path))
	assert.Equal(t, "go_dir_sync", filepath.Base(filepath.Dir(path)))
}
