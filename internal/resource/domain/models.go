// Package domain contains the resource roster and resource-to-location assignments.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Resource is a person whose hours are billed against locations.
type Resource struct {
	ID          snowflake.ID   `json:"id" gorm:"primaryKey"`
	OrgID       snowflake.ID   `json:"organization_id" gorm:"column:org_id;not null;index"`
	Name        string         `json:"name" gorm:"type:text;not null"`
	Role        string         `json:"role" gorm:"type:text"`
	AvatarURL   string         `json:"avatar_url,omitempty" gorm:"type:text"`
	Assignments []Assignment   `json:"assigned_locations" gorm:"foreignKey:ResourceID"`
	CreatedAt   time.Time      `json:"created_at" gorm:"not null"`
	UpdatedAt   time.Time      `json:"updated_at" gorm:"not null"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Resource) TableName() string { return "resources" }

// AssignedTo reports whether the resource has a live assignment on the location.
func (r Resource) AssignedTo(locationID snowflake.ID) bool {
	for _, a := range r.Assignments {
		if a.LocationID == locationID {
			return true
		}
	}
	return false
}

// Assignment is a live resource-to-location assignment. Removing an
// assignment deletes the row.
type Assignment struct {
	ID         snowflake.ID `json:"-" gorm:"primaryKey"`
	OrgID      snowflake.ID `json:"-" gorm:"column:org_id;not null;index"`
	ResourceID snowflake.ID `json:"-" gorm:"column:resource_id;not null;uniqueIndex:ux_assignment_resource_location"`
	LocationID snowflake.ID `json:"location_id" gorm:"column:location_id;not null;uniqueIndex:ux_assignment_resource_location"`
	CreatedAt  time.Time    `json:"-" gorm:"not null"`
}

func (Assignment) TableName() string { return "resource_assignments" }
