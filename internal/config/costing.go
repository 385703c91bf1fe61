package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// CostingConfig tunes the reconciliation and invoicing workflow.
type CostingConfig struct {
	DefaultProductivityLevel string        `mapstructure:"defaultProductivityLevel"`
	Invoice                  InvoiceConfig `mapstructure:"invoice"`
	Session                  SessionConfig `mapstructure:"session"`
	RowLock                  RowLockConfig `mapstructure:"rowLock"`
}

type InvoiceConfig struct {
	SyncConcurrency int    `mapstructure:"syncConcurrency"`
	NumberTemplate  string `mapstructure:"numberTemplate"`
}

type SessionConfig struct {
	IdleTTL time.Duration `mapstructure:"idleTTL"`
}

type RowLockConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

func DefaultCostingConfig() CostingConfig {
	return CostingConfig{
		DefaultProductivityLevel: "Medium",
		Invoice: InvoiceConfig{
			SyncConcurrency: 8,
			NumberTemplate:  "INV-{YYYY}{MM}-{SEQ5}",
		},
		Session: SessionConfig{IdleTTL: 30 * time.Minute},
		RowLock: RowLockConfig{TTL: 30 * time.Second},
	}
}

type CostingConfigHolder struct {
	current atomic.Value // holds CostingConfig
}

// NewStaticCostingConfigHolder wraps a fixed config, mainly for tests.
func NewStaticCostingConfigHolder(cfg CostingConfig) *CostingConfigHolder {
	holder := &CostingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewCostingConfigHolder(log *zap.Logger) (*CostingConfigHolder, error) {
	return loadCostingConfig(viper.New(), log, "/etc/costing", ".")
}

func loadCostingConfig(v *viper.Viper, log *zap.Logger, paths ...string) (*CostingConfigHolder, error) {
	v.SetConfigName("costing")
	v.SetConfigType("yml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix("COSTING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultCostingConfig()
	v.SetDefault("costing.defaultProductivityLevel", defaults.DefaultProductivityLevel)
	v.SetDefault("costing.invoice.syncConcurrency", defaults.Invoice.SyncConcurrency)
	v.SetDefault("costing.invoice.numberTemplate", defaults.Invoice.NumberTemplate)
	v.SetDefault("costing.session.idleTTL", defaults.Session.IdleTTL)
	v.SetDefault("costing.rowLock.ttl", defaults.RowLock.TTL)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	cfg, err := decodeCostingConfig(v)
	if err != nil {
		return nil, err
	}
	if err := validateCostingConfig(cfg); err != nil {
		return nil, err
	}

	holder := &CostingConfigHolder{}
	holder.current.Store(cfg)

	if !fileFound {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeCostingConfig(v)
		if err != nil {
			log.Warn("costing config reload failed", zap.Error(err))
			return
		}
		if err := validateCostingConfig(updated); err != nil {
			log.Warn("invalid costing config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("costing config reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

// decodeCostingConfig reads the whole tree so defaults fill keys the file leaves out.
func decodeCostingConfig(v *viper.Viper) (CostingConfig, error) {
	var root struct {
		Costing CostingConfig `mapstructure:"costing"`
	}
	if err := v.Unmarshal(&root); err != nil {
		return CostingConfig{}, err
	}
	return root.Costing, nil
}

func (h *CostingConfigHolder) Get() CostingConfig {
	return h.current.Load().(CostingConfig)
}

func validateCostingConfig(cfg CostingConfig) error {
	switch strings.ToLower(strings.TrimSpace(cfg.DefaultProductivityLevel)) {
	case "low", "medium", "high", "best":
	default:
		return fmt.Errorf("costing.defaultProductivityLevel %q is not a productivity level", cfg.DefaultProductivityLevel)
	}
	if cfg.Invoice.SyncConcurrency <= 0 {
		return errors.New("costing.invoice.syncConcurrency must be positive")
	}
	if strings.TrimSpace(cfg.Invoice.NumberTemplate) == "" {
		return errors.New("costing.invoice.numberTemplate cannot be empty")
	}
	if cfg.Session.IdleTTL <= 0 {
		return errors.New("costing.session.idleTTL must be positive")
	}
	if cfg.RowLock.TTL <= 0 {
		return errors.New("costing.rowLock.ttl must be positive")
	}
	return nil
}
