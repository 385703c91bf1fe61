package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParseProductivityLevel(t *testing.T) {
	level, err := ParseProductivityLevel(" high ")
	assert.NoError(t, err)
	assert.Equal(t, LevelHigh, level)

	_, err = ParseProductivityLevel("stellar")
	assert.ErrorIs(t, err, ErrInvalidLevel)

	assert.True(t, LevelBest.Valid())
	assert.False(t, ProductivityLevel("").Valid())
}

func TestRankOrdersTiers(t *testing.T) {
	assert.Less(t, LevelLow.Rank(), LevelMedium.Rank())
	assert.Less(t, LevelHigh.Rank(), LevelBest.Rank())
	assert.Equal(t, len(Levels), ProductivityLevel("x").Rank())
}

func TestLookup(t *testing.T) {
	rates := []Rate{
		{Level: LevelMedium, BaseRate: decimal.NewFromInt(20)},
		{Level: LevelHigh, BaseRate: decimal.NewFromInt(25)},
	}

	rate, ok := Lookup(rates, LevelHigh)
	assert.True(t, ok)
	assert.True(t, rate.Equal(decimal.NewFromInt(25)))

	rate, ok = Lookup(rates, LevelBest)
	assert.False(t, ok)
	assert.True(t, rate.IsZero())
}
