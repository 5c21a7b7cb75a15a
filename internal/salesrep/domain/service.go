package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateSalesRepRequest struct {
	Name              string   `json:"name"`
	Email             string   `json:"email"`
	CommissionPercent *float64 `json:"commission_percent"`
}

type ListSalesRepResponse struct {
	SalesReps []SalesRep `json:"sales_reps"`
}

type Service interface {
	Create(ctx context.Context, req CreateSalesRepRequest) (SalesRep, error)
	List(ctx context.Context) (ListSalesRepResponse, error)
	GetByID(ctx context.Context, id string) (SalesRep, error)
}

// RepLookup resolves a rep's commission percent for commission computation.
// Returns nil when the rep carries no override.
type RepLookup interface {
	CommissionPercent(ctx context.Context, repID snowflake.ID) (*float64, error)
}

var (
	ErrInvalidName    = errors.New("invalid_name")
	ErrInvalidEmail   = errors.New("invalid_email")
	ErrInvalidID      = errors.New("invalid_id")
	ErrInvalidPercent = errors.New("invalid_percent")
	ErrNotFound       = errors.New("not_found")
)
