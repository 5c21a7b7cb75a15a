// Package domain contains persistence models for sales commissions.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// CommissionStatus walks forward only: accrued -> payable -> paid.
type CommissionStatus string

const (
	CommissionStatusAccrued CommissionStatus = "accrued"
	CommissionStatusPayable CommissionStatus = "payable"
	CommissionStatusPaid    CommissionStatus = "paid"
)

// CommissionBasis names what the payout is derived from.
type CommissionBasis string

const CommissionBasisNet CommissionBasis = "net"

// Commission is the payout owed to a rep for one deal. Exactly one row per
// deal, enforced by a unique index on deal_id.
type Commission struct {
	ID               snowflake.ID     `gorm:"primaryKey"`
	DealID           snowflake.ID     `gorm:"not null;uniqueIndex:ux_commissions_deal"`
	SalesRepID       snowflake.ID     `gorm:"not null;index"`
	Basis            CommissionBasis  `gorm:"type:text;not null;default:'net'"`
	Percent          *float64         `gorm:"type:numeric(6,3)"`
	FlatAmount       *int64           `gorm:""`
	CalculatedAmount int64            `gorm:"not null;default:0"`
	Status           CommissionStatus `gorm:"type:text;not null;default:'accrued'"`
	PaidAt           *time.Time       `gorm:""`
	CreatedAt        time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Commission) TableName() string { return "commissions" }
