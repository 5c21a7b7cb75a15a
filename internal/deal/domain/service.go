package domain

import (
	"context"
	"errors"
	"time"

	commissiondomain "github.com/lotworks/dealdesk/internal/commission/domain"
	taxruledomain "github.com/lotworks/dealdesk/internal/taxrule/domain"
	"gorm.io/datatypes"
)

type DealUnitInput struct {
	UnitID      string `json:"unit_id"`
	AgreedPrice int64  `json:"agreed_price"`
}

// CreateDealRequest seeds a draft deal from a won opportunity: subtotal from
// agreed unit prices, taxes and fees zero.
type CreateDealRequest struct {
	OpportunityID  string          `json:"opportunity_id"`
	AccountID      string          `json:"account_id"`
	SalesRepID     string          `json:"sales_rep_id"`
	Currency       string          `json:"currency"`
	DiscountsTotal int64           `json:"discounts_total"`
	Units          []DealUnitInput `json:"units"`
}

type AddFeeRequest struct {
	DealID      string                 `json:"-"`
	Name        string                 `json:"name"`
	LineKind    taxruledomain.LineKind `json:"line_kind"`
	CalcType    taxruledomain.CalcType `json:"calc_type"`
	Base        taxruledomain.FeeBase  `json:"base"`
	Rate        *float64               `json:"rate"`
	FixedAmount int64                  `json:"fixed_amount"`
	Applies     *bool                  `json:"applies"`
	Sort        int                    `json:"sort"`
	Conditions  datatypes.JSONMap      `json:"conditions"`
}

type RecordPaymentRequest struct {
	DealID     string        `json:"-"`
	Method     PaymentMethod `json:"method"`
	Amount     int64         `json:"amount"`
	ReceivedAt *time.Time    `json:"received_at"`
	Reference  *string       `json:"reference"`
	Notes      *string       `json:"notes"`
	RecordedBy string        `json:"recorded_by"`
}

type UpdatePaymentRequest struct {
	ID         string         `json:"-"`
	Method     *PaymentMethod `json:"method"`
	Amount     *int64         `json:"amount"`
	ReceivedAt *time.Time     `json:"received_at"`
	Reference  *string        `json:"reference"`
	Notes      *string        `json:"notes"`
}

type ListDealRequest struct {
	Status      string
	SalesRepID  string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	TotalMin    *int64
	TotalMax    *int64
}

type ListDealResponse struct {
	Deals []Deal `json:"deals"`
}

// DealDetail is a deal with its attached collections.
type DealDetail struct {
	Deal     Deal      `json:"deal"`
	Units    []DealUnit `json:"units"`
	Fees     []DealFee  `json:"fees"`
	Payments []Payment  `json:"payments"`
}

type IssueDealResponse struct {
	Deal       Deal                        `json:"deal"`
	Commission commissiondomain.Commission `json:"commission"`
}

type Service interface {
	Create(ctx context.Context, req CreateDealRequest) (Deal, error)
	GetByID(ctx context.Context, id string) (DealDetail, error)
	List(ctx context.Context, req ListDealRequest) (ListDealResponse, error)

	AddFee(ctx context.Context, req AddFeeRequest) (DealFee, error)
	ApplyTaxRule(ctx context.Context, dealID, ruleID string) (DealDetail, error)

	RecordPayment(ctx context.Context, req RecordPaymentRequest) (Payment, error)
	UpdatePayment(ctx context.Context, req UpdatePaymentRequest) (Payment, error)
	// DeletePayment recalculates totals from the remaining payments.
	// Deleting an unknown payment id is a no-op.
	DeletePayment(ctx context.Context, id string) error

	Issue(ctx context.Context, dealID string) (IssueDealResponse, error)
	MarkDelivered(ctx context.Context, dealID string) (Deal, error)
	Close(ctx context.Context, dealID string) (Deal, error)
	Cancel(ctx context.Context, dealID string) (Deal, error)
}

var (
	ErrInvalidID               = errors.New("invalid_id")
	ErrDealNotFound            = errors.New("deal_not_found")
	ErrPaymentNotFound         = errors.New("payment_not_found")
	ErrInvalidStatus           = errors.New("invalid_status")
	ErrInvalidAmount           = errors.New("invalid_amount")
	ErrInvalidMethod           = errors.New("invalid_method")
	ErrInvalidCurrency         = errors.New("invalid_currency")
	ErrNoUnits                 = errors.New("deal_has_no_units")
	ErrNotDelivered            = errors.New("deal_not_delivered")
	ErrAlreadyDelivered        = errors.New("deal_already_delivered")
	ErrAlreadyClosed           = errors.New("deal_already_closed")
	ErrInvalidFeeConfiguration = errors.New("invalid_fee_configuration")
)
