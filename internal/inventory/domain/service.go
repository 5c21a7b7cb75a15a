package domain

import (
	"context"
	"errors"
	"io"

	"github.com/bwmarrin/snowflake"
	"github.com/lotworks/dealdesk/pkg/db/pagination"
)

// ColumnMapping maps unit fields to zero-based CSV column indexes.
// Unmapped fields are -1.
type ColumnMapping struct {
	VIN      int `json:"vin"`
	Serial   int `json:"serial"`
	Make     int `json:"make"`
	Model    int `json:"model"`
	Category int `json:"category"`
	Year     int `json:"year"`
	Mileage  int `json:"mileage"`
	Axles    int `json:"axles"`
}

// UnmappedColumns is the zero value callers should start from.
func UnmappedColumns() ColumnMapping {
	return ColumnMapping{VIN: -1, Serial: -1, Make: -1, Model: -1, Category: -1, Year: -1, Mileage: -1, Axles: -1}
}

// RowIssue describes one validation finding on an import row.
type RowIssue struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ImportRowResult is the outcome for a single CSV row.
type ImportRowResult struct {
	Line      int        `json:"line"`
	Unit      *Unit      `json:"unit,omitempty"`
	Errors    []RowIssue `json:"errors,omitempty"`
	Warnings  []RowIssue `json:"warnings,omitempty"`
	Duplicate bool       `json:"duplicate"`
	Imported  bool       `json:"imported"`
}

// ImportReport summarizes a whole import run. Rows are inserted
// independently: a failure partway through leaves earlier rows committed.
type ImportReport struct {
	BatchID    string            `json:"batch_id"`
	Total      int               `json:"total"`
	Imported   int               `json:"imported"`
	Rejected   int               `json:"rejected"`
	Duplicates int               `json:"duplicates"`
	Rows       []ImportRowResult `json:"rows"`
}

type ImportCSVRequest struct {
	Reader            io.Reader
	Mapping           ColumnMapping
	OverrideDuplicate bool
}

type ListUnitRequest struct {
	pagination.Pagination

	Status   string
	Category string
}

type ListUnitResponse struct {
	Units    []Unit               `json:"units"`
	PageInfo *pagination.PageInfo `json:"page_info,omitempty"`
}

type Service interface {
	List(ctx context.Context, req ListUnitRequest) (ListUnitResponse, error)
	GetByID(ctx context.Context, id string) (Unit, error)
	ImportCSV(ctx context.Context, req ImportCSVRequest) (ImportReport, error)
	MarkUnitsSold(ctx context.Context, unitIDs []snowflake.ID) error
}

// CostLookup is the side-channel the deal ledger uses to price a unit's
// acquisition stack. The bool reports whether cost data exists for the unit.
type CostLookup interface {
	AcquisitionCost(ctx context.Context, unitID snowflake.ID) (int64, bool, error)
}

var (
	ErrInvalidID        = errors.New("invalid_id")
	ErrNotFound         = errors.New("not_found")
	ErrInvalidMapping   = errors.New("invalid_mapping")
	ErrEmptyFile        = errors.New("empty_file")
	ErrInvalidPageToken = errors.New("invalid_page_token")
)
