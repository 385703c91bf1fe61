package session

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/costing/internal/clock"
	"github.com/smallbiznis/costing/internal/config"
	ratetierdomain "github.com/smallbiznis/costing/internal/ratetier/domain"
	resourcedomain "github.com/smallbiznis/costing/internal/resource/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
)

type countingLoader struct {
	rateCalls     int
	resourceCalls int
}

func (l *countingLoader) ListRateTiers(ctx context.Context, locationID snowflake.ID) ([]ratetierdomain.Rate, error) {
	l.rateCalls++
	return []ratetierdomain.Rate{{Level: ratetierdomain.LevelMedium}}, nil
}

func (l *countingLoader) ListAllResources(ctx context.Context) ([]resourcedomain.Resource, error) {
	l.resourceCalls++
	return []resourcedomain.Resource{{ID: 1, Name: "Ana"}}, nil
}

func newTestManager(t *testing.T, idle time.Duration) (*Manager, *clock.FakeClock, *countingLoader) {
	t.Helper()
	cfg := config.DefaultCostingConfig()
	cfg.Session.IdleTTL = idle
	clk := clock.NewFakeClock(time.Date(2025, time.October, 1, 9, 0, 0, 0, time.UTC))
	loader := &countingLoader{}
	m := NewManager(ManagerParam{
		Log:    zap.NewNop(),
		Clock:  clk,
		Config: config.NewStaticCostingConfigHolder(cfg),
		Loader: loader,
	})
	return m, clk, loader
}

func TestGetCreatesAndReusesSession(t *testing.T) {
	m, clk, _ := newTestManager(t, 10*time.Minute)

	first, created := m.Get(1, "")
	require.True(t, created)
	assert.NotEmpty(t, first.Token)

	clk.Advance(5 * time.Minute)
	again, created := m.Get(1, first.Token)
	assert.False(t, created)
	assert.Same(t, first, again)

	clk.Advance(9 * time.Minute)
	still, created := m.Get(1, first.Token)
	assert.False(t, created)
	assert.Same(t, first, still)
}

func TestGetExpiresIdleSession(t *testing.T) {
	m, clk, _ := newTestManager(t, 10*time.Minute)

	first, _ := m.Get(1, "")
	clk.Advance(10 * time.Minute)

	next, created := m.Get(1, first.Token)
	assert.True(t, created)
	assert.NotEqual(t, first.Token, next.Token)
	assert.Equal(t, 1, m.Len())
}

func TestSessionsAreScopedByOrganization(t *testing.T) {
	m, _, _ := newTestManager(t, 10*time.Minute)

	sess, _ := m.Get(1, "")
	other, created := m.Get(2, sess.Token)
	assert.True(t, created)
	assert.NotSame(t, sess, other)
	assert.Equal(t, snowflake.ID(2), other.OrgID)
}

func TestCachesAreNotSharedAcrossSessions(t *testing.T) {
	m, _, loader := newTestManager(t, 10*time.Minute)
	ctx := context.Background()

	a, _ := m.Get(1, "")
	b, _ := m.Get(1, "")

	_, err := a.Workspace().Rates.Rates(ctx, 5)
	require.NoError(t, err)
	_, err = a.Workspace().Rates.Rates(ctx, 5)
	require.NoError(t, err)
	_, err = b.Workspace().Rates.Rates(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, loader.rateCalls)

	_, err = a.Workspace().Resources.All(ctx)
	require.NoError(t, err)
	_, err = b.Workspace().Resources.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, loader.resourceCalls)

	assert.NotSame(t, a.Workspace().View, b.Workspace().View)
}

func TestResetAndSweep(t *testing.T) {
	m, clk, _ := newTestManager(t, 10*time.Minute)

	a, _ := m.Get(1, "")
	m.Get(1, "")
	assert.True(t, m.Reset(1, a.Token))
	assert.False(t, m.Reset(1, a.Token))
	assert.Equal(t, 1, m.Len())

	clk.Advance(11 * time.Minute)
	assert.Equal(t, 1, m.Sweep())
	assert.Zero(t, m.Len())
}

func TestJanitorStartsAndStops(t *testing.T) {
	m, _, _ := newTestManager(t, time.Minute)
	lc := fxtest.NewLifecycle(t)
	RegisterJanitor(lc, m)
	lc.RequireStart()
	lc.RequireStop()
}
