package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	salesrepdomain "github.com/lotworks/dealdesk/internal/salesrep/domain"
)

func (s *Server) CreateSalesRep(c *gin.Context) {
	var req salesrepdomain.CreateSalesRepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	rep, err := s.salesRepSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rep)
}

func (s *Server) ListSalesReps(c *gin.Context) {
	resp, err := s.salesRepSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetSalesRepByID(c *gin.Context) {
	rep, err := s.salesRepSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}
