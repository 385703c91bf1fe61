package ratecatalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/costing/internal/observability/metrics"
	ratetierdomain "github.com/smallbiznis/costing/internal/ratetier/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockLoader struct {
	mock.Mock
}

func (m *mockLoader) ListRateTiers(ctx context.Context, locationID snowflake.ID) ([]ratetierdomain.Rate, error) {
	args := m.Called(ctx, locationID)
	rates, _ := args.Get(0).([]ratetierdomain.Rate)
	return rates, args.Error(1)
}

func rate(level ratetierdomain.ProductivityLevel, v int64) ratetierdomain.Rate {
	return ratetierdomain.Rate{Level: level, BaseRate: decimal.NewFromInt(v)}
}

func TestRatesLoadsOnceAndSorts(t *testing.T) {
	loader := &mockLoader{}
	loader.On("ListRateTiers", mock.Anything, snowflake.ID(1)).Return([]ratetierdomain.Rate{
		rate(ratetierdomain.LevelBest, 30),
		rate(ratetierdomain.LevelLow, 15),
		rate(ratetierdomain.LevelHigh, 25),
		rate(ratetierdomain.LevelMedium, 20),
	}, nil).Once()

	m, err := metrics.New(prometheus.NewRegistry(), metrics.Config{})
	require.NoError(t, err)
	cache := New(loader, m)

	first, err := cache.Rates(context.Background(), 1)
	require.NoError(t, err)
	second, err := cache.Rates(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	require.Len(t, first, 4)
	assert.Equal(t, ratetierdomain.LevelLow, first[0].Level)
	assert.Equal(t, ratetierdomain.LevelBest, first[3].Level)
	assert.True(t, cache.Cached(1))
	assert.Equal(t, 1, cache.Len())
	loader.AssertExpectations(t)
}

func TestRatesDoesNotCacheFailures(t *testing.T) {
	loader := &mockLoader{}
	loader.On("ListRateTiers", mock.Anything, snowflake.ID(2)).Return(nil, errors.New("unavailable")).Once()
	loader.On("ListRateTiers", mock.Anything, snowflake.ID(2)).Return([]ratetierdomain.Rate{rate(ratetierdomain.LevelMedium, 20)}, nil).Once()

	cache := New(loader, nil)

	_, err := cache.Rates(context.Background(), 2)
	require.Error(t, err)
	assert.False(t, cache.Cached(2))

	rates, err := cache.Rates(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, rates, 1)
	loader.AssertExpectations(t)
}

func TestRatesKeepsOtherKeysOnFailure(t *testing.T) {
	loader := &mockLoader{}
	loader.On("ListRateTiers", mock.Anything, snowflake.ID(1)).Return([]ratetierdomain.Rate{rate(ratetierdomain.LevelLow, 15)}, nil).Once()
	loader.On("ListRateTiers", mock.Anything, snowflake.ID(2)).Return(nil, errors.New("unavailable")).Once()

	cache := New(loader, nil)
	_, err := cache.Rates(context.Background(), 1)
	require.NoError(t, err)
	_, err = cache.Rates(context.Background(), 2)
	require.Error(t, err)

	rates, err := cache.Rates(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, rates, 1)
	loader.AssertExpectations(t)
}

type slowLoader struct {
	calls atomic.Int32
}

func (l *slowLoader) ListRateTiers(ctx context.Context, locationID snowflake.ID) ([]ratetierdomain.Rate, error) {
	l.calls.Add(1)
	time.Sleep(20 * time.Millisecond)
	return []ratetierdomain.Rate{rate(ratetierdomain.LevelMedium, 20)}, nil
}

func TestRatesCollapsesConcurrentMisses(t *testing.T) {
	loader := &slowLoader{}
	cache := New(loader, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.Rates(context.Background(), 9)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), loader.calls.Load())
}

func TestReturnedRatesAreCopies(t *testing.T) {
	loader := &mockLoader{}
	loader.On("ListRateTiers", mock.Anything, snowflake.ID(3)).Return([]ratetierdomain.Rate{rate(ratetierdomain.LevelLow, 15)}, nil).Once()
	cache := New(loader, nil)

	rates, err := cache.Rates(context.Background(), 3)
	require.NoError(t, err)
	rates[0].BaseRate = decimal.NewFromInt(999)

	again, err := cache.Rates(context.Background(), 3)
	require.NoError(t, err)
	assert.True(t, again[0].BaseRate.Equal(decimal.NewFromInt(15)))
}

func TestLookupMissingLevelIsZero(t *testing.T) {
	rates := []ratetierdomain.Rate{rate(ratetierdomain.LevelLow, 15)}
	assert.True(t, Lookup(rates, ratetierdomain.LevelLow).Equal(decimal.NewFromInt(15)))
	assert.True(t, Lookup(rates, ratetierdomain.LevelBest).IsZero())
}
