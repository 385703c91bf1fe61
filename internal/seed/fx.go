package seed

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/costing/internal/clock"
	"github.com/smallbiznis/costing/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Cfg   config.Config
	GenID *snowflake.Node
	Clock clock.Clock
	Log   *zap.Logger
}

var Module = fx.Module("seed",
	fx.Invoke(run),
)

func run(p Params) error {
	if !p.Cfg.SeedDemo {
		return nil
	}
	log := p.Log.Named("seed")
	if p.Cfg.DefaultOrgID == 0 {
		log.Warn("SEED_DEMO is set without DEFAULT_ORG; skipping demo data")
		return nil
	}

	orgID := snowflake.ID(p.Cfg.DefaultOrgID)
	seeded, err := EnsureDemo(context.Background(), p.DB, p.GenID, orgID, p.Clock.Now())
	if err != nil {
		return err
	}
	log.Info("demo data checked", zap.String("org_id", orgID.String()), zap.Bool("seeded", seeded))
	return nil
}
