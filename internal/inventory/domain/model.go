// Package domain contains persistence models for inventory units.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// UnitStatus represents a unit's sale lifecycle.
type UnitStatus string

const (
	UnitStatusAvailable UnitStatus = "available"
	UnitStatusSold      UnitStatus = "sold"
)

// DefaultCategory applies when an import mapping carries no category column.
const DefaultCategory = "truck"

// Unit is one physical vehicle on the lot. Cost fields are the acquisition
// stack consumed by commission computation.
type Unit struct {
	ID       snowflake.ID `gorm:"primaryKey"`
	VIN      string       `gorm:"column:vin;type:text"`
	Serial   string       `gorm:"type:text"`
	Make     string       `gorm:"type:text;not null"`
	Model    string       `gorm:"type:text;not null"`
	Category string       `gorm:"type:text;not null"`
	Year     int          `gorm:"not null"`
	Mileage  *int64       `gorm:""`
	Axles    *int         `gorm:""`
	Status   UnitStatus   `gorm:"type:text;not null;default:'available'"`

	CostPurchase       int64 `gorm:"not null;default:0"`
	CostTransportIn    int64 `gorm:"not null;default:0"`
	CostReconditioning int64 `gorm:"not null;default:0"`

	ImportBatchID *string   `gorm:"type:text"`
	CreatedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Unit) TableName() string { return "units" }

// AcquisitionCost is the full landed cost of the unit.
func (u Unit) AcquisitionCost() int64 {
	return u.CostPurchase + u.CostTransportIn + u.CostReconditioning
}
