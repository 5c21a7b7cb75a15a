package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// AccrueRequest carries the amounts the deal ledger computed at issuance.
type AccrueRequest struct {
	DealID           snowflake.ID
	SalesRepID       snowflake.ID
	Percent          float64
	CalculatedAmount int64
}

type ListCommissionRequest struct {
	DealID     string
	SalesRepID string
	Status     string
}

type ListCommissionResponse struct {
	Commissions []Commission `json:"commissions"`
}

type Service interface {
	// AccrueForDeal upserts the single commission for a deal: updates the
	// amounts in place when one exists, creates an accrued one otherwise.
	AccrueForDeal(ctx context.Context, req AccrueRequest) (Commission, error)
	// ReleaseForDeal flips the deal's accrued commission to payable; called
	// when a deal's balance reaches zero. A deal with no accrued commission
	// is a no-op.
	ReleaseForDeal(ctx context.Context, dealID snowflake.ID) error
	MarkPayable(ctx context.Context, id string) (Commission, error)
	MarkPaid(ctx context.Context, id string) (Commission, error)
	List(ctx context.Context, req ListCommissionRequest) (ListCommissionResponse, error)
}

var (
	ErrInvalidID         = errors.New("invalid_id")
	ErrNotFound          = errors.New("not_found")
	ErrInvalidTransition = errors.New("invalid_transition")
)
