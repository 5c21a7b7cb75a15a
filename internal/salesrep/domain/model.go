// Package domain contains persistence models for sales reps.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// SalesRep is a commissioned seller. CommissionPercent is nil when the rep
// rides on the configured default.
type SalesRep struct {
	ID                snowflake.ID `gorm:"primaryKey"`
	Name              string       `gorm:"type:text;not null"`
	Email             string       `gorm:"type:text;not null;uniqueIndex:ux_sales_reps_email"`
	CommissionPercent *float64     `gorm:"type:numeric(6,3)"`
	CreatedAt         time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt         time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (SalesRep) TableName() string { return "sales_reps" }
