package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	dealdomain "github.com/lotworks/dealdesk/internal/deal/domain"
)

func (s *Server) CreateDeal(c *gin.Context) {
	var req dealdomain.CreateDealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	deal, err := s.dealSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, deal)
}

type listDealsQuery struct {
	Status      string `form:"status"`
	SalesRepID  string `form:"sales_rep_id"`
	CreatedFrom string `form:"created_from"`
	CreatedTo   string `form:"created_to"`
	TotalMin    string `form:"total_min"`
	TotalMax    string `form:"total_max"`
}

func (s *Server) ListDeals(c *gin.Context) {
	var query listDealsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req := dealdomain.ListDealRequest{
		Status:     strings.TrimSpace(query.Status),
		SalesRepID: strings.TrimSpace(query.SalesRepID),
	}

	if value := strings.TrimSpace(query.CreatedFrom); value != "" {
		parsed, err := time.Parse(time.RFC3339, value)
		if err != nil {
			AbortWithError(c, newValidationError("created_from", "invalid_created_from", "invalid created_from"))
			return
		}
		req.CreatedFrom = &parsed
	}
	if value := strings.TrimSpace(query.CreatedTo); value != "" {
		parsed, err := time.Parse(time.RFC3339, value)
		if err != nil {
			AbortWithError(c, newValidationError("created_to", "invalid_created_to", "invalid created_to"))
			return
		}
		req.CreatedTo = &parsed
	}
	if value := strings.TrimSpace(query.TotalMin); value != "" {
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			AbortWithError(c, newValidationError("total_min", "invalid_total_min", "total_min must be an integer amount"))
			return
		}
		req.TotalMin = &parsed
	}
	if value := strings.TrimSpace(query.TotalMax); value != "" {
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			AbortWithError(c, newValidationError("total_max", "invalid_total_max", "total_max must be an integer amount"))
			return
		}
		req.TotalMax = &parsed
	}

	resp, err := s.dealSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetDealByID(c *gin.Context) {
	detail, err := s.dealSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (s *Server) AddDealFee(c *gin.Context) {
	var req dealdomain.AddFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.DealID = c.Param("id")

	fee, err := s.dealSvc.AddFee(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, fee)
}

func (s *Server) ApplyTaxRule(c *gin.Context) {
	detail, err := s.dealSvc.ApplyTaxRule(c.Request.Context(), c.Param("id"), c.Param("ruleId"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (s *Server) RecordPayment(c *gin.Context) {
	var req dealdomain.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.DealID = c.Param("id")

	payment, err := s.dealSvc.RecordPayment(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, payment)
}

func (s *Server) UpdatePayment(c *gin.Context) {
	var req dealdomain.UpdatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = c.Param("id")

	payment, err := s.dealSvc.UpdatePayment(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

func (s *Server) DeletePayment(c *gin.Context) {
	if err := s.dealSvc.DeletePayment(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) IssueDeal(c *gin.Context) {
	resp, err := s.dealSvc.Issue(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) MarkDealDelivered(c *gin.Context) {
	deal, err := s.dealSvc.MarkDelivered(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, deal)
}

func (s *Server) CloseDeal(c *gin.Context) {
	deal, err := s.dealSvc.Close(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, deal)
}

func (s *Server) CancelDeal(c *gin.Context) {
	deal, err := s.dealSvc.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, deal)
}
