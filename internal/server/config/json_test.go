package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"endpoint_addr_http": "www.example:9000",
		"database_dsn":       "postgres://beyond",
		"shutdown_timeout":   "10s",
		"s3_root_user":       "user",
		"s3_root_password":   "password",
		"s3_bucket":          "avatars",
		"s3_region":          "region",
		"s3_base_endpoint":   "base_endpoint",
		"dropbox_app_key":    "dbkey",
		"dropbox_app_secret": "dbsecret",
		"google_app_key":     "gkey",
		"google_app_secret":  "gsecret",
		"debug_users":        []string{"alice", "bob"},
	})

	t.Run("loads from json", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}

		cfg := &Config{}
		parseJson(cfg)

		assert.Equal(t, "www.example:9000", cfg.EndpointAddrHTTP)
		assert.Equal(t, "postgres://beyond", cfg.DatabaseDSN)
		assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
		assert.Equal(t, "user", cfg.S3RootUser)
		assert.Equal(t, "password", cfg.S3RootPassword)
		assert.Equal(t, "avatars", cfg.S3Bucket)
		assert.Equal(t, "region", cfg.S3Region)
		assert.Equal(t, "base_endpoint", cfg.S3BaseEndpoint)
		assert.Equal(t, "dbkey", cfg.DropboxAppKey)
		assert.Equal(t, "dbsecret", cfg.DropboxAppSecret)
		assert.Equal(t, "gkey", cfg.GoogleAppKey)
		assert.Equal(t, "gsecret", cfg.GoogleAppSecret)
		assert.Equal(t, []string{"alice", "bob"}, cfg.DebugUsers)
	})

	t.Run("no CONFIG and no flags, no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{
			EndpointAddrHTTP: "defaults:1234",
			DatabaseDSN:      "dsn",
			ShutdownTimeout:  2 * time.Second,
		}
		parseJson(cfg)

		assert.Equal(t, "defaults:1234", cfg.EndpointAddrHTTP)
		assert.Equal(t, "dsn", cfg.DatabaseDSN)
		assert.Equal(t, 2*time.Second, cfg.ShutdownTimeout)
	})

	t.Run("invalid JSON panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg) })
	})
}
