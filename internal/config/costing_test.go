package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadCostingConfigDefaultsWithoutFile(t *testing.T) {
	holder, err := loadCostingConfig(viper.New(), zap.NewNop(), t.TempDir())
	require.NoError(t, err)

	cfg := holder.Get()
	assert.Equal(t, "Medium", cfg.DefaultProductivityLevel)
	assert.Equal(t, 8, cfg.Invoice.SyncConcurrency)
	assert.Equal(t, "INV-{YYYY}{MM}-{SEQ5}", cfg.Invoice.NumberTemplate)
	assert.Equal(t, 30*time.Minute, cfg.Session.IdleTTL)
}

func TestLoadCostingConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	body := []byte(`costing:
  defaultProductivityLevel: High
  invoice:
    syncConcurrency: 3
    numberTemplate: "CST-{YY}{MM}-{SEQ4}"
  session:
    idleTTL: 5m
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "costing.yml"), body, 0o600))

	holder, err := loadCostingConfig(viper.New(), zap.NewNop(), dir)
	require.NoError(t, err)

	cfg := holder.Get()
	assert.Equal(t, "High", cfg.DefaultProductivityLevel)
	assert.Equal(t, 3, cfg.Invoice.SyncConcurrency)
	assert.Equal(t, "CST-{YY}{MM}-{SEQ4}", cfg.Invoice.NumberTemplate)
	assert.Equal(t, 5*time.Minute, cfg.Session.IdleTTL)
	assert.Equal(t, 30*time.Second, cfg.RowLock.TTL)
}

func TestLoadCostingConfigRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	body := []byte(`costing:
  defaultProductivityLevel: Stellar
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "costing.yml"), body, 0o600))

	_, err := loadCostingConfig(viper.New(), zap.NewNop(), dir)
	assert.Error(t, err)
}

func TestValidateCostingConfig(t *testing.T) {
	cfg := DefaultCostingConfig()
	assert.NoError(t, validateCostingConfig(cfg))

	cfg.Invoice.SyncConcurrency = 0
	assert.Error(t, validateCostingConfig(cfg))
}
