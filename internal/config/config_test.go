package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/adtkit/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default().Session, cfg.Session)
	assert.Equal(t, "EN", cfg.System.Language)
}

func TestLoad_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "adtkit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
system:
  url: https://sap.example.com:44300
  client: "200"
  user: DEVELOPER
  timeout: 15s
session:
  store: redis
  redis_url: redis://localhost:6379/0
log:
  level: debug
`), 0644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://sap.example.com:44300", cfg.System.URL)
	assert.Equal(t, "200", cfg.System.Client)
	assert.Equal(t, 15*time.Second, cfg.System.Timeout)
	assert.Equal(t, "redis", cfg.Session.Store)
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL, "unset fields keep defaults")
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.NoError(t, cfg.Validate())
}

func TestDecode_JSONAndUnknownKeys(t *testing.T) {
	cfg := config.Default()
	err := config.Decode([]byte(`{"system": {"url": "http://h", "insecure": "true"}}`), ".json", &cfg)
	require.NoError(t, err)
	assert.True(t, cfg.System.Insecure)

	err = config.Decode([]byte("sytem:\n  url: x\n"), ".yaml", &cfg)
	assert.Error(t, err, "typos are reported")
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"ADT_URL":      "https://env.example.com",
		"ADT_PASSWORD": "secret",
		"ADT_INSECURE": "1",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := config.Default()
	require.NoError(t, config.ApplyEnv(&cfg, lookup))
	assert.Equal(t, "https://env.example.com", cfg.System.URL)
	assert.Equal(t, "secret", cfg.System.Password)
	assert.True(t, cfg.System.Insecure)

	env["ADT_INSECURE"] = "maybe"
	assert.Error(t, config.ApplyEnv(&cfg, lookup))
}

func TestValidate(t *testing.T) {
	cfg := config.Default()
	assert.Error(t, cfg.Validate(), "url is required")

	cfg.System.URL = "http://h"
	cfg.Session.Store = "etcd"
	assert.Error(t, cfg.Validate())

	cfg.Session.Store = "redis"
	assert.Error(t, cfg.Validate())
}
