package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Resolver returns a rule version with its ordered lines for application
// to a deal.
type Resolver interface {
	ResolveForDeal(ctx context.Context, ruleID snowflake.ID) (TaxRule, []TaxRuleLine, error)
}

type CreateRegimeRequest struct {
	Name         string `json:"name"`
	Jurisdiction string `json:"jurisdiction"`
}

type CreateRuleLineRequest struct {
	Name        string            `json:"name"`
	LineKind    LineKind          `json:"line_kind"`
	CalcType    CalcType          `json:"calc_type"`
	Base        FeeBase           `json:"base"`
	Rate        *float64          `json:"rate"`
	FixedAmount int64             `json:"fixed_amount"`
	Conditions  datatypes.JSONMap `json:"conditions"`
	Sort        int               `json:"sort"`
}

type CreateRuleRequest struct {
	RegimeID string                  `json:"regime_id"`
	Lines    []CreateRuleLineRequest `json:"lines"`
}

type RuleResponse struct {
	Rule  TaxRule       `json:"rule"`
	Lines []TaxRuleLine `json:"lines"`
}

type ListRegimeResponse struct {
	Regimes []TaxRegime `json:"regimes"`
}

type Service interface {
	CreateRegime(ctx context.Context, req CreateRegimeRequest) (TaxRegime, error)
	ListRegimes(ctx context.Context) (ListRegimeResponse, error)
	CreateRule(ctx context.Context, req CreateRuleRequest) (RuleResponse, error)
	GetRule(ctx context.Context, id string) (RuleResponse, error)
}
