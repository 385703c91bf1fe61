// Package domain contains the project and location (sub-project) catalog.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Project groups billable locations for one client engagement.
type Project struct {
	ID         snowflake.ID   `json:"id" gorm:"primaryKey"`
	OrgID      snowflake.ID   `json:"organization_id" gorm:"column:org_id;not null;index"`
	Name       string         `json:"name" gorm:"type:text;not null"`
	ClientName string         `json:"client_name" gorm:"type:text;not null"`
	CreatedAt  time.Time      `json:"created_at" gorm:"not null"`
	UpdatedAt  time.Time      `json:"updated_at" gorm:"not null"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Project) TableName() string { return "projects" }

// Location is the billable unit beneath a project. FlatRate is the revenue
// rate charged to the client per hour.
type Location struct {
	ID        snowflake.ID    `json:"id" gorm:"primaryKey"`
	OrgID     snowflake.ID    `json:"organization_id" gorm:"column:org_id;not null;index"`
	ProjectID snowflake.ID    `json:"project_id" gorm:"column:project_id;not null;index"`
	Name      string          `json:"name" gorm:"type:text;not null"`
	FlatRate  decimal.Decimal `json:"flat_rate" gorm:"type:decimal(18,4);not null;default:0"`
	CreatedAt time.Time       `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time       `json:"updated_at" gorm:"not null"`
	DeletedAt gorm.DeletedAt  `json:"-" gorm:"index"`
}

func (Location) TableName() string { return "locations" }

// LocationView is a location joined with its live parent project.
type LocationView struct {
	Location
	ProjectName string `json:"project_name"`
	ClientName  string `json:"client_name"`
}
