package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"traveldesk/internal/models"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("TD_API_KEY", "secret-from-env")

	dir := t.TempDir()
	path := writeConfig(t, `
database:
  path: `+filepath.Join(dir, "td.db")+`
server:
  address: ":9000"
  api_key: ${TD_API_KEY}
backup:
  enabled: true
  interval_hours: 6
  retention_days: 14
policy:
  max_gap_days: 3
  weekend_policy: always_stay
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Address)
	assert.Equal(t, "secret-from-env", cfg.Server.APIKey, "env placeholders must expand")
	assert.Equal(t, 6*time.Hour, cfg.BackupInterval())
	assert.Equal(t, 14, cfg.Backup.RetentionDays)

	policy := cfg.DefaultPolicy()
	assert.Equal(t, 3, policy.MaxGapDays)
	assert.Equal(t, models.WeekendAlwaysStay, policy.WeekendPolicy)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
database:
  path: `+filepath.Join(t.TempDir(), "td.db")+`
`))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, float64(10), cfg.Server.RateLimitRPS)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL())
	assert.Equal(t, 24*time.Hour, cfg.BackupInterval())
	assert.Equal(t, models.WeekendWorkIfAdjacent, cfg.DefaultPolicy().WeekendPolicy)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
