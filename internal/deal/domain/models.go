// Package domain contains persistence models for the deal ledger.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	taxruledomain "github.com/lotworks/dealdesk/internal/taxrule/domain"
	"gorm.io/datatypes"
)

// DealStatus represents deal lifecycle states. The workflow is monotonic:
// draft -> issued -> (partially_paid <-> paid); delivered/closed are side
// timestamps, and canceled is reachable from draft only.
type DealStatus string

const (
	DealStatusDraft         DealStatus = "draft"
	DealStatusIssued        DealStatus = "issued"
	DealStatusPartiallyPaid DealStatus = "partially_paid"
	DealStatusPaid          DealStatus = "paid"
	DealStatusCanceled      DealStatus = "canceled"
)

// Deal is a sales transaction for one or more inventory units.
//
// Invariants maintained by every totals recalculation:
//
//	total_due   = vehicle_subtotal - discounts_total + taxes_total + fees_total
//	balance_due = total_due - amount_paid
type Deal struct {
	ID            snowflake.ID `gorm:"primaryKey"`
	OpportunityID snowflake.ID `gorm:"not null;index"`
	AccountID     snowflake.ID `gorm:"not null;index"`
	SalesRepID    snowflake.ID `gorm:"not null;index"`
	Status        DealStatus   `gorm:"type:text;not null;default:'draft';index"`
	Currency      string       `gorm:"type:text;not null"`

	VehicleSubtotal int64 `gorm:"not null;default:0"`
	DiscountsTotal  int64 `gorm:"not null;default:0"`
	TaxesTotal      int64 `gorm:"not null;default:0"`
	FeesTotal       int64 `gorm:"not null;default:0"`
	TotalDue        int64 `gorm:"not null;default:0"`
	AmountPaid      int64 `gorm:"not null;default:0"`
	BalanceDue      int64 `gorm:"not null;default:0"`

	TaxRuleID *snowflake.ID `gorm:""`

	IssuedAt    *time.Time `gorm:""`
	DeliveredAt *time.Time `gorm:""`
	ClosedAt    *time.Time `gorm:""`
	CreatedAt   time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Deal) TableName() string { return "deals" }

// DealUnit attaches one physical unit to a deal at an agreed price.
type DealUnit struct {
	DealID      snowflake.ID `gorm:"primaryKey"`
	UnitID      snowflake.ID `gorm:"primaryKey"`
	AgreedPrice int64        `gorm:"not null;default:0"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (DealUnit) TableName() string { return "deal_units" }

// DealFee is one tax/fee line on a deal, usually instantiated from a tax
// rule line. LineKind drives total aggregation; lines written without a kind
// are classified by name as a fallback.
type DealFee struct {
	ID           snowflake.ID           `gorm:"primaryKey"`
	DealID       snowflake.ID           `gorm:"not null;index:ix_deal_fees_deal"`
	Name         string                 `gorm:"type:text;not null"`
	LineKind     taxruledomain.LineKind `gorm:"type:text;not null;default:''"`
	CalcType     taxruledomain.CalcType `gorm:"type:text;not null"`
	Base         taxruledomain.FeeBase  `gorm:"type:text;not null"`
	Rate         *float64               `gorm:"type:numeric(9,4)"`
	FixedAmount  int64                  `gorm:"not null;default:0"`
	ResultAmount int64                  `gorm:"not null;default:0"`
	Applies      bool                   `gorm:"not null;default:true"`
	Sort         int                    `gorm:"not null;default:0;index:ix_deal_fees_deal"`
	Conditions   datatypes.JSONMap      `gorm:"type:jsonb;not null;default:'{}'"`
	CreatedAt    time.Time              `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time              `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (DealFee) TableName() string { return "deal_fees" }

// Kind returns the explicit line kind, falling back to name classification
// for untagged ad-hoc fees.
func (f DealFee) Kind() taxruledomain.LineKind {
	if f.LineKind == taxruledomain.LineKindTax || f.LineKind == taxruledomain.LineKindFee {
		return f.LineKind
	}
	return taxruledomain.ClassifyLineKind(f.Name)
}

// PaymentMethod is how money arrived.
type PaymentMethod string

const (
	PaymentMethodWire  PaymentMethod = "wire"
	PaymentMethodACH   PaymentMethod = "ach"
	PaymentMethodCheck PaymentMethod = "check"
	PaymentMethodCash  PaymentMethod = "cash"
	PaymentMethodOther PaymentMethod = "other"
)

// ValidPaymentMethod reports whether m is a known method.
func ValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case PaymentMethodWire, PaymentMethodACH, PaymentMethodCheck, PaymentMethodCash, PaymentMethodOther:
		return true
	}
	return false
}

// Payment is money received against a deal.
type Payment struct {
	ID         snowflake.ID  `gorm:"primaryKey"`
	DealID     snowflake.ID  `gorm:"not null;index"`
	Method     PaymentMethod `gorm:"type:text;not null"`
	Amount     int64         `gorm:"not null"`
	ReceivedAt time.Time     `gorm:"not null"`
	Reference  *string       `gorm:"type:text"`
	Notes      *string       `gorm:"type:text"`
	RecordedBy snowflake.ID  `gorm:"not null"`
	CreatedAt  time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Payment) TableName() string { return "payments" }
