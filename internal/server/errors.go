package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/lotworks/dealdesk/internal/audit/domain"
	commissiondomain "github.com/lotworks/dealdesk/internal/commission/domain"
	dealdomain "github.com/lotworks/dealdesk/internal/deal/domain"
	inventorydomain "github.com/lotworks/dealdesk/internal/inventory/domain"
	salesrepdomain "github.com/lotworks/dealdesk/internal/salesrep/domain"
	taxruledomain "github.com/lotworks/dealdesk/internal/taxrule/domain"
	"github.com/lotworks/dealdesk/pkg/db"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	switch {
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, dealdomain.ErrInvalidID),
		errors.Is(err, dealdomain.ErrInvalidAmount),
		errors.Is(err, dealdomain.ErrInvalidMethod),
		errors.Is(err, dealdomain.ErrInvalidCurrency),
		errors.Is(err, dealdomain.ErrNoUnits),
		errors.Is(err, dealdomain.ErrInvalidFeeConfiguration),
		errors.Is(err, taxruledomain.ErrInvalidID),
		errors.Is(err, taxruledomain.ErrInvalidName),
		errors.Is(err, taxruledomain.ErrInvalidLineName),
		errors.Is(err, taxruledomain.ErrInvalidLineKind),
		errors.Is(err, taxruledomain.ErrInvalidCalcType),
		errors.Is(err, taxruledomain.ErrInvalidBase),
		errors.Is(err, taxruledomain.ErrInvalidRate),
		errors.Is(err, taxruledomain.ErrInvalidAmount),
		errors.Is(err, taxruledomain.ErrNoLines),
		errors.Is(err, inventorydomain.ErrInvalidID),
		errors.Is(err, inventorydomain.ErrInvalidMapping),
		errors.Is(err, inventorydomain.ErrEmptyFile),
		errors.Is(err, inventorydomain.ErrInvalidPageToken),
		errors.Is(err, commissiondomain.ErrInvalidID),
		errors.Is(err, salesrepdomain.ErrInvalidID),
		errors.Is(err, salesrepdomain.ErrInvalidName),
		errors.Is(err, salesrepdomain.ErrInvalidEmail),
		errors.Is(err, salesrepdomain.ErrInvalidPercent),
		errors.Is(err, auditdomain.ErrInvalidAction),
		errors.Is(err, auditdomain.ErrInvalidTimeRange):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, dealdomain.ErrDealNotFound),
		errors.Is(err, dealdomain.ErrPaymentNotFound),
		errors.Is(err, taxruledomain.ErrRuleNotFound),
		errors.Is(err, taxruledomain.ErrRegimeNotFound),
		errors.Is(err, inventorydomain.ErrNotFound),
		errors.Is(err, commissiondomain.ErrNotFound),
		errors.Is(err, salesrepdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, dealdomain.ErrInvalidStatus),
		errors.Is(err, dealdomain.ErrNotDelivered),
		errors.Is(err, dealdomain.ErrAlreadyDelivered),
		errors.Is(err, dealdomain.ErrAlreadyClosed),
		errors.Is(err, commissiondomain.ErrInvalidTransition),
		db.IsDuplicateKeyErr(err):
		return true
	default:
		return false
	}
}
