package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	taxruledomain "github.com/lotworks/dealdesk/internal/taxrule/domain"
)

func (s *Server) CreateTaxRegime(c *gin.Context) {
	var req taxruledomain.CreateRegimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	regime, err := s.taxRuleSvc.CreateRegime(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, regime)
}

func (s *Server) ListTaxRegimes(c *gin.Context) {
	resp, err := s.taxRuleSvc.ListRegimes(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) CreateTaxRule(c *gin.Context) {
	var req taxruledomain.CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.taxRuleSvc.CreateRule(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) GetTaxRuleByID(c *gin.Context) {
	resp, err := s.taxRuleSvc.GetRule(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
