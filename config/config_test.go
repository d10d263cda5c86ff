package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_DefaultsAndEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("MONGO_URI", "mongodb://localhost:27017/?replicaSet=rs0")
	t.Setenv("TRANSFER_TX_TIMEOUT", "2s")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "mongodb://localhost:27017/?replicaSet=rs0", cfg.Mongo.URI)
	assert.Equal(t, "test-secret", cfg.JWT.Secret)
	assert.Equal(t, 3, cfg.Transfer.MaxAttempts)
	assert.Equal(t, 50*time.Millisecond, cfg.Transfer.BaseBackoff)
	assert.Equal(t, 2*time.Second, cfg.Transfer.TxTimeout)
	assert.Equal(t, 10, cfg.Transfer.DefaultReorderLevel)
	assert.Equal(t, 24*time.Hour, cfg.Notification.DedupWindow)
	assert.False(t, cfg.S3.Enabled)
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	yaml := `
server:
  port: "9090"
  env: production
jwt:
  secret: from-file
transfer:
  maxAttempts: 5
  defaultReorderLevel: 25
notification:
  dedupWindow: 12h
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 5, cfg.Transfer.MaxAttempts)
	assert.Equal(t, 25, cfg.Transfer.DefaultReorderLevel)
	assert.Equal(t, 12*time.Hour, cfg.Notification.DedupWindow)
}

func TestValidate(t *testing.T) {
	cfg := Config{JWT: JWTConfig{Secret: "s"}, Transfer: TransferConfig{MaxAttempts: 1}}
	require.NoError(t, cfg.Validate())

	bad := cfg
	bad.JWT.Secret = ""
	bad.Transfer.MaxAttempts = 0
	bad.S3.Enabled = true
	err := bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt.secret")
	assert.Contains(t, err.Error(), "maxAttempts")
	assert.Contains(t, err.Error(), "s3.bucket")
}
