// Package domain contains persistence models for versioned tax rules.
package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// LineKind tags a rule line (and the deal fee instantiated from it) as a tax
// or an ordinary fee for total aggregation. The tag replaces the name-sniffing
// the legacy tooling did; ClassifyLineKind remains only as a fallback for
// untagged ad-hoc lines.
type LineKind string

const (
	LineKindTax LineKind = "tax"
	LineKindFee LineKind = "fee"
)

// CalcType is how a line amount is computed.
type CalcType string

const (
	CalcTypePercent CalcType = "percent"
	CalcTypeFixed   CalcType = "fixed"
)

// FeeBase is what a percent line is computed against. Percent lines whose
// base is not the vehicle subtotal degrade to zero.
type FeeBase string

const (
	FeeBaseVehicleSubtotal FeeBase = "vehicle_subtotal"
	FeeBaseCustom          FeeBase = "custom"
)

// ClassifyLineKind falls back to substring matching for lines created
// without an explicit kind.
func ClassifyLineKind(name string) LineKind {
	lowered := strings.ToLower(name)
	if strings.Contains(lowered, "tax") || strings.Contains(lowered, "sales") {
		return LineKindTax
	}
	return LineKindFee
}

// TaxRegime is a named jurisdiction/scenario grouping of rule versions.
type TaxRegime struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	Name         string       `gorm:"type:text;not null"`
	Jurisdiction string       `gorm:"type:text;not null;default:''"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (TaxRegime) TableName() string { return "tax_regimes" }

// TaxRule is one version of a regime's line template.
type TaxRule struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	RegimeID  snowflake.ID `gorm:"not null;index;uniqueIndex:ux_tax_rules_regime_version"`
	Version   int          `gorm:"not null;uniqueIndex:ux_tax_rules_regime_version"`
	IsActive  bool         `gorm:"not null;default:true"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (TaxRule) TableName() string { return "tax_rules" }

// TaxRuleLine is an ordered template line. Rate carries the percent value
// (6.25 means 6.25%); FixedAmount is minor units. Conditions are stored on
// instantiated fees but not evaluated by rule application.
type TaxRuleLine struct {
	ID          snowflake.ID      `gorm:"primaryKey"`
	RuleID      snowflake.ID      `gorm:"not null;index:ix_tax_rule_lines_rule"`
	Name        string            `gorm:"type:text;not null"`
	LineKind    LineKind          `gorm:"type:text;not null"`
	CalcType    CalcType          `gorm:"type:text;not null"`
	Base        FeeBase           `gorm:"type:text;not null"`
	Rate        *float64          `gorm:"type:numeric(9,4)"`
	FixedAmount int64             `gorm:"not null;default:0"`
	Conditions  datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'"`
	Sort        int               `gorm:"not null;default:0;index:ix_tax_rule_lines_rule"`
	CreatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (TaxRuleLine) TableName() string { return "tax_rule_lines" }

func (l *TaxRuleLine) Validate() error {
	if strings.TrimSpace(l.Name) == "" {
		return ErrInvalidLineName
	}
	if l.LineKind != LineKindTax && l.LineKind != LineKindFee {
		return ErrInvalidLineKind
	}
	switch l.CalcType {
	case CalcTypePercent:
		if l.Rate == nil || *l.Rate < 0 {
			return ErrInvalidRate
		}
	case CalcTypeFixed:
		if l.FixedAmount < 0 {
			return ErrInvalidAmount
		}
	default:
		return ErrInvalidCalcType
	}
	if l.Base != FeeBaseVehicleSubtotal && l.Base != FeeBaseCustom {
		return ErrInvalidBase
	}
	return nil
}
