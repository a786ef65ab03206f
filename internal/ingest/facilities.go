package ingest

import (
	"bytes"
	"log/slog"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "custodyetl/internal/errors"
	"custodyetl/pkg/contracts/domain"
)

// Facility reference columns. The workbook headers are already flat (no
// banner rows), so the header sits on the first row.
const (
	colLatitude     = "latitude"
	colLongitude    = "longitude"
	colCity         = "city"
	colState        = "state"
	colTypeDetailed = "type_detailed"
	colTypeGrouped  = "type_grouped"
)

// ParseFacilities reads the facility reference workbook: first sheet only,
// deduplicated on facility code (first occurrence wins).
func ParseFacilities(data []byte, logger *slog.Logger) ([]domain.Facility, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeParseFailed, "open facilities workbook")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperrors.SchemaViolation("facilities workbook has no sheets")
	}
	tbl, err := readSheet(f, sheets[0], 0)
	if err != nil {
		return nil, err
	}
	if tbl == nil {
		return nil, apperrors.SchemaViolation("facilities sheet %s is empty", sheets[0])
	}
	if _, ok := tbl.index[colFacilityCode]; !ok {
		return nil, apperrors.SchemaViolation("facilities sheet is missing column %s", colFacilityCode)
	}

	get := func(row []string, col string) string {
		i, ok := tbl.index[col]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	seen := make(map[string]bool)
	var facilities []domain.Facility
	for _, row := range tbl.rows {
		code := strings.TrimSpace(get(row, colFacilityCode))
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true

		fac := domain.Facility{
			Code:         code,
			City:         optString(get(row, colCity)),
			State:        optString(get(row, colState)),
			TypeDetailed: optString(get(row, colTypeDetailed)),
			TypeGrouped:  optString(get(row, colTypeGrouped)),
		}
		if v, err := strconv.ParseFloat(get(row, colLatitude), 64); err == nil {
			fac.Latitude = &v
		}
		if v, err := strconv.ParseFloat(get(row, colLongitude), 64); err == nil {
			fac.Longitude = &v
		}
		facilities = append(facilities, fac)
	}

	logger.Info("facilities workbook parsed", "facilities", len(facilities))
	return facilities, nil
}
