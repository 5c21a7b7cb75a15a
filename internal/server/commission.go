package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	commissiondomain "github.com/lotworks/dealdesk/internal/commission/domain"
)

type listCommissionsQuery struct {
	Status     string `form:"status"`
	DealID     string `form:"deal_id"`
	SalesRepID string `form:"sales_rep_id"`
}

func (s *Server) ListCommissions(c *gin.Context) {
	var query listCommissionsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.commissionSvc.List(c.Request.Context(), commissiondomain.ListCommissionRequest{
		Status:     strings.TrimSpace(query.Status),
		DealID:     strings.TrimSpace(query.DealID),
		SalesRepID: strings.TrimSpace(query.SalesRepID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) MarkCommissionPayable(c *gin.Context) {
	commission, err := s.commissionSvc.MarkPayable(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, commission)
}

func (s *Server) MarkCommissionPaid(c *gin.Context) {
	commission, err := s.commissionSvc.MarkPaid(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, commission)
}
