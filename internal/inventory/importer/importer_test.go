package importer

import (
	"strings"
	"testing"
	"time"

	inventorydomain "github.com/lotworks/dealdesk/internal/inventory/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testMapping = inventorydomain.ColumnMapping{
	VIN:      0,
	Serial:   1,
	Make:     2,
	Model:    3,
	Category: 4,
	Year:     5,
	Mileage:  6,
	Axles:    7,
}

func row(fields ...string) RawRow {
	return RawRow{Line: 2, Fields: fields}
}

func TestParse_SkipsHeader(t *testing.T) {
	input := "vin,serial,make,model\n1FUJGLDR0DLBX1234,S-1,Freightliner,Cascadia\n"
	rows, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].Line)
	assert.Equal(t, "Freightliner", rows[0].Fields[2])
}

func TestParse_EmptyFile(t *testing.T) {
	_, err := Parse(strings.NewReader(""))
	assert.ErrorIs(t, err, inventorydomain.ErrEmptyFile)
}

func TestEvaluateRow_ValidTruck(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	result := EvaluateRow(
		row("1FUJGLDR0DLBX1234", "S-100", "Freightliner", "Cascadia", "truck", "2020", "410000", "3"),
		testMapping, map[string]bool{}, now)

	assert.Empty(t, result.Errors)
	assert.False(t, result.Duplicate)
	require.NotNil(t, result.Unit)
	assert.Equal(t, "Freightliner", result.Unit.Make)
	assert.Equal(t, 2020, result.Unit.Year)
	require.NotNil(t, result.Unit.Mileage)
	assert.Equal(t, int64(410000), *result.Unit.Mileage)
	require.NotNil(t, result.Unit.Axles)
	assert.Equal(t, 3, *result.Unit.Axles)
}

func TestEvaluateRow_RequiredFields(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	result := EvaluateRow(
		row("1FUJGLDR0DLBX1234", "", "", "", "truck", ""),
		testMapping, map[string]bool{}, now)

	assert.Nil(t, result.Unit)
	fields := make([]string, 0, len(result.Errors))
	for _, e := range result.Errors {
		fields = append(fields, e.Field)
	}
	assert.ElementsMatch(t, []string{"make", "model", "year"}, fields)
}

func TestEvaluateRow_YearBounds(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	old := EvaluateRow(
		row("", "S-1", "Mack", "R600", "truck", "1975"),
		testMapping, map[string]bool{}, now)
	require.Len(t, old.Errors, 1)
	assert.Equal(t, "out_of_range", old.Errors[0].Code)
	assert.Nil(t, old.Unit)

	// Next model year is fine, two years out is not.
	next := EvaluateRow(
		row("", "S-2", "Volvo", "VNL", "truck", "2027"),
		testMapping, map[string]bool{}, now)
	assert.Empty(t, next.Errors)

	future := EvaluateRow(
		row("", "S-3", "Volvo", "VNL", "truck", "2028"),
		testMapping, map[string]bool{}, now)
	require.Len(t, future.Errors, 1)
	assert.Equal(t, "out_of_range", future.Errors[0].Code)

	alpha := EvaluateRow(
		row("", "S-4", "Volvo", "VNL", "truck", "twenty20"),
		testMapping, map[string]bool{}, now)
	require.Len(t, alpha.Errors, 1)
	assert.Equal(t, "not_numeric", alpha.Errors[0].Code)
}

func TestEvaluateRow_NumericFields(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	result := EvaluateRow(
		row("", "S-1", "Kenworth", "T680", "truck", "2021", "many", "x"),
		testMapping, map[string]bool{}, now)

	codes := make([]string, 0, len(result.Errors))
	for _, e := range result.Errors {
		codes = append(codes, e.Field+":"+e.Code)
	}
	assert.ElementsMatch(t, []string{"mileage:not_numeric", "axles:not_numeric"}, codes)
}

func TestEvaluateRow_ShortTruckVINWarnsOnly(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	result := EvaluateRow(
		row("SHORTVIN", "", "Peterbilt", "579", "truck", "2019"),
		testMapping, map[string]bool{}, now)

	assert.Empty(t, result.Errors)
	require.NotNil(t, result.Unit)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "length_mismatch", result.Warnings[0].Code)

	// Non-truck categories skip the VIN length check.
	trailer := EvaluateRow(
		row("SHORTVIN", "", "Great Dane", "Everest", "trailer", "2019"),
		testMapping, map[string]bool{}, now)
	assert.Empty(t, trailer.Warnings)
}

func TestEvaluateRow_DuplicateIsCaseInsensitive(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	existing := map[string]bool{"1fujgldr0dlbx1234": true}

	result := EvaluateRow(
		row("1FUJGLDR0DLBX1234", "", "Freightliner", "Cascadia", "truck", "2020"),
		testMapping, existing, now)

	assert.True(t, result.Duplicate)
	assert.Empty(t, result.Errors)
	require.NotNil(t, result.Unit)

	bySerial := EvaluateRow(
		row("", "sn-0042", "Freightliner", "Cascadia", "truck", "2020"),
		testMapping, map[string]bool{"sn-0042": true}, now)
	assert.True(t, bySerial.Duplicate)
}

func TestEvaluateRow_DefaultCategory(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	mapping := testMapping
	mapping.Category = -1

	result := EvaluateRow(
		row("1FUJGLDR0DLBX1234", "", "Freightliner", "Cascadia", "ignored", "2020"),
		mapping, map[string]bool{}, now)

	require.NotNil(t, result.Unit)
	assert.Equal(t, inventorydomain.DefaultCategory, result.Unit.Category)
}
