package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	inventorydomain "github.com/lotworks/dealdesk/internal/inventory/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testDBSeq int

func newTestService(t *testing.T) (inventorydomain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	testDBSeq++
	dsn := fmt.Sprintf("file:inventorysvc%d?mode=memory&cache=shared", testDBSeq)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&inventorydomain.Unit{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(Params{DB: db, Log: zap.NewNop(), GenID: node})
	return svc, db, node
}

func importMapping() inventorydomain.ColumnMapping {
	mapping := inventorydomain.UnmappedColumns()
	mapping.VIN = 0
	mapping.Serial = 1
	mapping.Make = 2
	mapping.Model = 3
	mapping.Category = 4
	mapping.Year = 5
	return mapping
}

func TestImportCSV_AcceptsRejectsAndCounts(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	csv := strings.Join([]string{
		"vin,serial,make,model,category,year",
		"1FUJGLDR0DLBX1234,S-1,Freightliner,Cascadia,truck,2020",
		"4V4NC9EH5KN202458,S-2,Volvo,VNL,truck,1975",
		",S-3,,T680,truck,2021",
	}, "\n")

	report, err := svc.ImportCSV(ctx, inventorydomain.ImportCSVRequest{
		Reader:  strings.NewReader(csv),
		Mapping: importMapping(),
	})
	require.NoError(t, err)

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 1, report.Imported)
	assert.Equal(t, 2, report.Rejected)
	assert.Equal(t, 0, report.Duplicates)
	assert.NotEmpty(t, report.BatchID)

	var count int64
	require.NoError(t, db.Model(&inventorydomain.Unit{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	var unit inventorydomain.Unit
	require.NoError(t, db.First(&unit, "vin = ?", "1FUJGLDR0DLBX1234").Error)
	require.NotNil(t, unit.ImportBatchID)
	assert.Equal(t, report.BatchID, *unit.ImportBatchID)
	assert.Equal(t, inventorydomain.UnitStatusAvailable, unit.Status)
}

func TestImportCSV_DuplicateSkipAndOverride(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	seed := "vin,serial,make,model,category,year\n1FUJGLDR0DLBX1234,S-1,Freightliner,Cascadia,truck,2020\n"
	_, err := svc.ImportCSV(ctx, inventorydomain.ImportCSVRequest{
		Reader:  strings.NewReader(seed),
		Mapping: importMapping(),
	})
	require.NoError(t, err)

	// Same VIN, different case: skipped without override.
	dup := "vin,serial,make,model,category,year\n1fujgldr0dlbx1234,S-9,Freightliner,Cascadia,truck,2021\n"
	report, err := svc.ImportCSV(ctx, inventorydomain.ImportCSVRequest{
		Reader:  strings.NewReader(dup),
		Mapping: importMapping(),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Imported)
	assert.Equal(t, 1, report.Duplicates)

	report, err = svc.ImportCSV(ctx, inventorydomain.ImportCSVRequest{
		Reader:            strings.NewReader(dup),
		Mapping:           importMapping(),
		OverrideDuplicate: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Imported)
	assert.Equal(t, 0, report.Duplicates)

	var count int64
	require.NoError(t, db.Model(&inventorydomain.Unit{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestImportCSV_IntraFileDedupe(t *testing.T) {
	svc, _, _ := newTestService(t)

	csv := strings.Join([]string{
		"vin,serial,make,model,category,year",
		"1FUJGLDR0DLBX1234,S-1,Freightliner,Cascadia,truck,2020",
		"1FUJGLDR0DLBX1234,S-2,Freightliner,Cascadia,truck,2020",
	}, "\n")

	report, err := svc.ImportCSV(context.Background(), inventorydomain.ImportCSVRequest{
		Reader:  strings.NewReader(csv),
		Mapping: importMapping(),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Imported)
	assert.Equal(t, 1, report.Duplicates)
}

func TestImportCSV_RejectsIncompleteMapping(t *testing.T) {
	svc, _, _ := newTestService(t)

	mapping := importMapping()
	mapping.Year = -1

	_, err := svc.ImportCSV(context.Background(), inventorydomain.ImportCSVRequest{
		Reader:  strings.NewReader("vin\nabc\n"),
		Mapping: mapping,
	})
	assert.ErrorIs(t, err, inventorydomain.ErrInvalidMapping)
}

func TestListUnits_CursorPagination(t *testing.T) {
	svc, db, node := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		unit := inventorydomain.Unit{
			ID: node.Generate(), Make: "Volvo", Model: "VNL", Category: "truck",
			Year: 2020 + i, Status: inventorydomain.UnitStatusAvailable,
		}
		require.NoError(t, db.Create(&unit).Error)
	}

	req := inventorydomain.ListUnitRequest{}
	req.PageSize = 2

	var seen []snowflake.ID
	for {
		resp, err := svc.List(ctx, req)
		require.NoError(t, err)
		for _, unit := range resp.Units {
			seen = append(seen, unit.ID)
		}
		require.NotNil(t, resp.PageInfo)
		if !resp.PageInfo.HasMore {
			break
		}
		req.PageToken = resp.PageInfo.NextPageToken
	}
	assert.Len(t, seen, 5)

	bad := inventorydomain.ListUnitRequest{}
	bad.PageToken = "%%%"
	_, err := svc.List(ctx, bad)
	assert.ErrorIs(t, err, inventorydomain.ErrInvalidPageToken)
}

func TestMarkUnitsSold(t *testing.T) {
	svc, db, node := newTestService(t)
	ctx := context.Background()

	unit := inventorydomain.Unit{
		ID: node.Generate(), Make: "Volvo", Model: "VNL", Category: "truck",
		Year: 2021, Status: inventorydomain.UnitStatusAvailable,
	}
	require.NoError(t, db.Create(&unit).Error)

	require.NoError(t, svc.MarkUnitsSold(ctx, []snowflake.ID{unit.ID}))

	var reloaded inventorydomain.Unit
	require.NoError(t, db.First(&reloaded, "id = ?", unit.ID).Error)
	assert.Equal(t, inventorydomain.UnitStatusSold, reloaded.Status)

	// Empty slice is a no-op.
	require.NoError(t, svc.MarkUnitsSold(ctx, nil))
}
