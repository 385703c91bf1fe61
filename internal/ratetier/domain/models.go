// Package domain contains productivity-tier cost rates per location.
package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// ProductivityLevel is an enumerated performance tier.
type ProductivityLevel string

const (
	LevelLow    ProductivityLevel = "Low"
	LevelMedium ProductivityLevel = "Medium"
	LevelHigh   ProductivityLevel = "High"
	LevelBest   ProductivityLevel = "Best"
)

// Levels lists every productivity level in tier order.
var Levels = []ProductivityLevel{LevelLow, LevelMedium, LevelHigh, LevelBest}

var ErrInvalidLevel = errors.New("invalid_productivity_level")

// ParseProductivityLevel accepts any casing of a known level.
func ParseProductivityLevel(raw string) (ProductivityLevel, error) {
	value := strings.TrimSpace(raw)
	for _, level := range Levels {
		if strings.EqualFold(value, string(level)) {
			return level, nil
		}
	}
	return "", ErrInvalidLevel
}

func (l ProductivityLevel) Valid() bool {
	_, err := ParseProductivityLevel(string(l))
	return err == nil
}

// Rank orders levels from Low (0) to Best (3); unknown levels sort last.
func (l ProductivityLevel) Rank() int {
	for i, level := range Levels {
		if level == l {
			return i
		}
	}
	return len(Levels)
}

// RateTier is the internal cost rate ($/hour) of one productivity level on a location.
type RateTier struct {
	ID         snowflake.ID      `json:"id" gorm:"primaryKey"`
	OrgID      snowflake.ID      `json:"organization_id" gorm:"column:org_id;not null;index"`
	LocationID snowflake.ID      `json:"location_id" gorm:"column:location_id;not null;uniqueIndex:ux_rate_tier_location_level"`
	Level      ProductivityLevel `json:"level" gorm:"type:varchar(16);not null;uniqueIndex:ux_rate_tier_location_level"`
	BaseRate   decimal.Decimal   `json:"base_rate" gorm:"type:decimal(18,4);not null"`
	CreatedAt  time.Time         `json:"created_at" gorm:"not null"`
	UpdatedAt  time.Time         `json:"updated_at" gorm:"not null"`
}

func (RateTier) TableName() string { return "rate_tiers" }

// Rate is the catalog view of a tier: {level, baseRate}.
type Rate struct {
	Level    ProductivityLevel `json:"level"`
	BaseRate decimal.Decimal   `json:"base_rate"`
}

// Lookup resolves a level against an ordered catalog. A level missing from
// the catalog resolves to a zero rate.
func Lookup(rates []Rate, level ProductivityLevel) (decimal.Decimal, bool) {
	for _, r := range rates {
		if r.Level == level {
			return r.BaseRate, true
		}
	}
	return decimal.Zero, false
}
