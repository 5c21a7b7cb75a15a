// Package importer turns mapped CSV rows into candidate inventory units.
// It is persistence-free: the inventory service feeds it existing VIN/serial
// keys and inserts whatever survives validation.
package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	inventorydomain "github.com/lotworks/dealdesk/internal/inventory/domain"
)

const (
	// MinYear is the oldest model year the import accepts.
	MinYear = 1980

	vinLength = 17
)

// RawRow is one data row read from the CSV, keeping its 1-based line number
// for reporting.
type RawRow struct {
	Line   int
	Fields []string
}

// Parse reads the CSV, discards the header row, and returns raw rows.
func Parse(r io.Reader) ([]RawRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	if _, err := reader.Read(); err != nil {
		if err == io.EOF {
			return nil, inventorydomain.ErrEmptyFile
		}
		return nil, fmt.Errorf("importer: failed to read CSV header: %w", err)
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("importer: failed to read CSV records: %w", err)
	}

	rows := make([]RawRow, 0, len(records))
	for i, record := range records {
		rows = append(rows, RawRow{Line: i + 2, Fields: record})
	}
	return rows, nil
}

// EvaluateRow applies the column mapping and validates the candidate:
// required make/model/category, year in range, numeric mileage/axles.
// A truck VIN that is not 17 characters is a warning, not an error. A
// case-insensitive VIN or serial match against existing inventory marks the
// row duplicate.
func EvaluateRow(raw RawRow, mapping inventorydomain.ColumnMapping, existingKeys map[string]bool, now time.Time) inventorydomain.ImportRowResult {
	result := inventorydomain.ImportRowResult{Line: raw.Line}

	unit := inventorydomain.Unit{
		VIN:      field(raw.Fields, mapping.VIN),
		Serial:   field(raw.Fields, mapping.Serial),
		Make:     field(raw.Fields, mapping.Make),
		Model:    field(raw.Fields, mapping.Model),
		Category: field(raw.Fields, mapping.Category),
		Status:   inventorydomain.UnitStatusAvailable,
	}
	if mapping.Category < 0 {
		unit.Category = inventorydomain.DefaultCategory
	}

	if unit.Make == "" {
		result.Errors = append(result.Errors, issue("make", "required", "make is required"))
	}
	if unit.Model == "" {
		result.Errors = append(result.Errors, issue("model", "required", "model is required"))
	}
	if unit.Category == "" {
		result.Errors = append(result.Errors, issue("category", "required", "category is required"))
	}

	maxYear := now.Year() + 1
	if yearText := field(raw.Fields, mapping.Year); yearText == "" {
		result.Errors = append(result.Errors, issue("year", "required", "year is required"))
	} else if year, err := strconv.Atoi(yearText); err != nil {
		result.Errors = append(result.Errors, issue("year", "not_numeric", "year must be numeric"))
	} else if year < MinYear || year > maxYear {
		result.Errors = append(result.Errors, issue("year", "out_of_range",
			fmt.Sprintf("year must be between %d and %d", MinYear, maxYear)))
	} else {
		unit.Year = year
	}

	if mileageText := field(raw.Fields, mapping.Mileage); mileageText != "" {
		mileage, err := strconv.ParseInt(mileageText, 10, 64)
		if err != nil {
			result.Errors = append(result.Errors, issue("mileage", "not_numeric", "mileage must be numeric"))
		} else {
			unit.Mileage = &mileage
		}
	}

	if axlesText := field(raw.Fields, mapping.Axles); axlesText != "" {
		axles, err := strconv.Atoi(axlesText)
		if err != nil {
			result.Errors = append(result.Errors, issue("axles", "not_numeric", "axles must be numeric"))
		} else {
			unit.Axles = &axles
		}
	}

	if unit.VIN != "" && strings.EqualFold(unit.Category, inventorydomain.DefaultCategory) && len(unit.VIN) != vinLength {
		result.Warnings = append(result.Warnings, issue("vin", "length_mismatch",
			fmt.Sprintf("truck VIN should be %d characters", vinLength)))
	}

	if unit.VIN != "" && existingKeys[strings.ToLower(unit.VIN)] {
		result.Duplicate = true
	}
	if unit.Serial != "" && existingKeys[strings.ToLower(unit.Serial)] {
		result.Duplicate = true
	}
	if result.Duplicate {
		result.Warnings = append(result.Warnings, issue("vin", "duplicate",
			"VIN or serial matches an existing unit"))
	}

	if len(result.Errors) == 0 {
		result.Unit = &unit
	}
	return result
}

func field(fields []string, index int) string {
	if index < 0 || index >= len(fields) {
		return ""
	}
	return strings.TrimSpace(fields[index])
}

func issue(fieldName, code, message string) inventorydomain.RowIssue {
	return inventorydomain.RowIssue{Field: fieldName, Code: code, Message: message}
}
