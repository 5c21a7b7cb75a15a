package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	inventorydomain "github.com/lotworks/dealdesk/internal/inventory/domain"
)

type listUnitsQuery struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size"`
	Status    string `form:"status"`
	Category  string `form:"category"`
}

func (s *Server) ListUnits(c *gin.Context) {
	var query listUnitsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req := inventorydomain.ListUnitRequest{
		Status:   strings.TrimSpace(query.Status),
		Category: strings.TrimSpace(query.Category),
	}
	req.PageToken = strings.TrimSpace(query.PageToken)
	req.PageSize = query.PageSize

	resp, err := s.inventorySvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetUnitByID(c *gin.Context) {
	unit, err := s.inventorySvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, unit)
}

// importUnitsForm carries the column mapping alongside the uploaded CSV.
// Column values are zero-based indexes; -1 leaves a field unmapped.
type importUnitsForm struct {
	VIN               int  `form:"vin,default=-1"`
	Serial            int  `form:"serial,default=-1"`
	Make              int  `form:"make,default=-1"`
	Model             int  `form:"model,default=-1"`
	Category          int  `form:"category,default=-1"`
	Year              int  `form:"year,default=-1"`
	Mileage           int  `form:"mileage,default=-1"`
	Axles             int  `form:"axles,default=-1"`
	OverrideDuplicate bool `form:"override_duplicate"`
}

func (s *Server) ImportUnits(c *gin.Context) {
	var form importUnitsForm
	if err := c.ShouldBind(&form); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		AbortWithError(c, newValidationError("file", "missing_file", "a CSV file is required"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	defer file.Close()

	report, err := s.inventorySvc.ImportCSV(c.Request.Context(), inventorydomain.ImportCSVRequest{
		Reader: file,
		Mapping: inventorydomain.ColumnMapping{
			VIN:      form.VIN,
			Serial:   form.Serial,
			Make:     form.Make,
			Model:    form.Model,
			Category: form.Category,
			Year:     form.Year,
			Mileage:  form.Mileage,
			Axles:    form.Axles,
		},
		OverrideDuplicate: form.OverrideDuplicate,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
