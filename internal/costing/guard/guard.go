// Package guard serializes synchronization of the same billing row across
// concurrent inline edits and invoice runs.
package guard

import (
	"context"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/costing/internal/config"
	costingdomain "github.com/smallbiznis/costing/internal/costing/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	defaultLockTTL = 30 * time.Second
	releaseTimeout = 2 * time.Second
)

type Param struct {
	fx.In

	Log    *zap.Logger
	Client *redis.Client `optional:"true"`
	Config *config.CostingConfigHolder
}

// New returns a Redis-backed guard when a client is configured and a guard
// that admits every sync otherwise.
func New(p Param) costingdomain.RowGuard {
	if p.Client == nil {
		return Noop{}
	}
	return &RedisGuard{
		locker: NewLocker(p.Client),
		cfg:    p.Config,
		log:    p.Log.Named("costing.guard"),
	}
}

// NewRedisClient builds the shared client from REDIS_ADDR; nil when unset.
func NewRedisClient(lc fx.Lifecycle, cfg config.Config) *redis.Client {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	})
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client
}

type Noop struct{}

func (Noop) Acquire(context.Context, string) (func(), error) {
	return func() {}, nil
}

type RedisGuard struct {
	locker *Locker
	cfg    *config.CostingConfigHolder
	log    *zap.Logger
}

func (g *RedisGuard) Acquire(ctx context.Context, key string) (func(), error) {
	token, ok, err := g.locker.TryLock(ctx, key, g.ttl())
	if err != nil {
		return nil, fmt.Errorf("acquire row lock: %w", err)
	}
	if !ok {
		return nil, costingdomain.ErrRowBusy
	}
	return func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()
		if err := g.locker.Release(releaseCtx, key, token); err != nil {
			g.log.Warn("row lock release failed", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

func (g *RedisGuard) ttl() time.Duration {
	if g.cfg == nil {
		return defaultLockTTL
	}
	if ttl := g.cfg.Get().RowLock.TTL; ttl > 0 {
		return ttl
	}
	return defaultLockTTL
}
