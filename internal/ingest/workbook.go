package ingest

import (
	"bytes"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	apperrors "custodyetl/internal/errors"
	"custodyetl/pkg/contracts/domain"
)

// Canonical column names after lowercasing, space replacement and renames.
const (
	colPersonID          = "unique_identifier"
	colFacilityCode      = "detention_facility_code"
	colBookInDateTime    = "detention_book_in_date_time"
	colBookOutDateTime   = "detention_book_out_date_time"
	colReleaseReason     = "detention_release_reason"
	colStayBookIn        = "stay_book_in_date_time"
	colStayBookOut       = "stay_book_out_date_time"
	colStayReleaseReason = "stay_release_reason"
	colBirthYear         = "birth_year"
	colEthnicity         = "ethnicity"
	colGender            = "gender"
	colMaritalStatus     = "marital_status"
	colReligion          = "religion"
	colFinalCharge       = "final_charge"
	colMSCChargeCode     = "msc_charge_code"
	colFinalOrder        = "final_order_yes_no"
)

// columnRenames maps canonicalized workbook headers to their pipeline names.
var columnRenames = map[string]string{
	"book_in_date_time":                         colBookInDateTime,
	"most_serious_conviction_(msc)_charge_code": colMSCChargeCode,
}

// requiredColumns must exist in every sheet; their absence is a fatal
// schema violation, never a silent skip.
var requiredColumns = []string{
	colPersonID,
	colFacilityCode,
	colBookInDateTime,
	colStayBookIn,
}

// redactedPattern marks FOIA-redacted cells. A column whose every present
// value is redacted carries no information and is dropped wholesale.
var redactedPattern = regexp.MustCompile(`\(b\)|\(B\)|b\([0-9]\)|B\([0-9]\)`)

// datetimeLayouts are tried in order when a cell is not a native Excel time.
var datetimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/06 15:04",
	"2006-01-02",
	"1/2/2006",
	"1/2/06",
}

// sheetTable is one sheet flattened to canonical column names. Cells are
// raw strings; "" means missing.
type sheetTable struct {
	name    string
	columns []string
	index   map[string]int
	rows    [][]string
}

// ParseDetentions flattens every sheet of the bookings workbook into event
// records. headerRow is the zero-based index of the header row (the export
// carries banner rows above it).
func ParseDetentions(data []byte, headerRow int, logger *slog.Logger) ([]domain.DetentionEvent, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeParseFailed, "open detentions workbook")
	}
	defer f.Close()

	var tables []*sheetTable
	for _, sheet := range f.GetSheetList() {
		tbl, err := readSheet(f, sheet, headerRow)
		if err != nil {
			return nil, err
		}
		if tbl != nil {
			tables = append(tables, tbl)
		}
	}
	if len(tables) == 0 {
		return nil, apperrors.SchemaViolation("detentions workbook has no data sheets")
	}

	// All sheets must agree on the column set before concatenation.
	base := tables[0]
	for _, tbl := range tables[1:] {
		if !sameColumns(base.columns, tbl.columns) {
			return nil, apperrors.SchemaViolation(
				"sheets %s and %s have incongruent schemas", base.name, tbl.name)
		}
	}
	for _, tbl := range tables {
		for _, col := range requiredColumns {
			if _, ok := tbl.index[col]; !ok {
				return nil, apperrors.SchemaViolation("sheet %s is missing column %s", tbl.name, col)
			}
		}
	}

	redacted := redactedColumns(tables)
	if len(redacted) > 0 {
		names := make([]string, 0, len(redacted))
		for col := range redacted {
			names = append(names, col)
		}
		sort.Strings(names)
		logger.Info("dropping fully redacted columns", "columns", names)
	}

	var events []domain.DetentionEvent
	skipped := 0
	for _, tbl := range tables {
		for _, row := range tbl.rows {
			ev, ok := buildEvent(tbl, row, redacted)
			if !ok {
				skipped++
				continue
			}
			events = append(events, ev)
		}
	}
	if skipped > 0 {
		logger.Info("skipped rows without book-in timestamps", "rows", skipped)
	}
	logger.Info("detentions workbook parsed", "sheets", len(tables), "events", len(events))
	return events, nil
}

// readSheet loads one sheet; nil result means the sheet has no rows below
// the header.
func readSheet(f *excelize.File, sheet string, headerRow int) (*sheetTable, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeParseFailed, "read sheet %s", sheet)
	}
	if len(rows) <= headerRow+1 {
		return nil, nil
	}

	header := rows[headerRow]
	tbl := &sheetTable{name: sheet, index: make(map[string]int)}
	drop := make(map[int]bool)
	for i, h := range header {
		name := canonicalName(h)
		if name == "" || strings.Contains(name, "bond") || strings.Contains(name, "eid_") {
			drop[i] = true
			continue
		}
		tbl.columns = append(tbl.columns, name)
		tbl.index[name] = len(tbl.columns) - 1
	}

	for _, raw := range rows[headerRow+1:] {
		if emptyRow(raw) {
			continue
		}
		row := make([]string, len(tbl.columns))
		pos := 0
		for i := 0; i < len(header); i++ {
			if drop[i] {
				continue
			}
			if i < len(raw) {
				row[pos] = strings.TrimSpace(raw[i])
			}
			pos++
		}
		tbl.rows = append(tbl.rows, row)
	}
	return tbl, nil
}

// canonicalName lowercases a header and replaces spaces with underscores,
// then applies the fixed renames.
func canonicalName(h string) string {
	name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(h)), " ", "_")
	if renamed, ok := columnRenames[name]; ok {
		return renamed
	}
	return name
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

func emptyRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// redactedColumns finds columns whose every value, across all sheets, is
// missing or matches the redaction pattern. Key columns are exempt.
func redactedColumns(tables []*sheetTable) map[string]bool {
	required := make(map[string]bool, len(requiredColumns))
	for _, col := range requiredColumns {
		required[col] = true
	}

	invalid := make(map[string]int)
	total := 0
	for _, tbl := range tables {
		total += len(tbl.rows)
		for col, i := range tbl.index {
			for _, row := range tbl.rows {
				v := row[i]
				if v == "" || redactedPattern.MatchString(v) {
					invalid[col]++
				}
			}
		}
	}

	out := make(map[string]bool)
	for col, n := range invalid {
		if n == total && !required[col] {
			out[col] = true
		}
	}
	return out
}

// buildEvent maps one flattened row into a DetentionEvent. Rows without a
// parseable detention or stay book-in timestamp cannot anchor any interval
// and are skipped.
func buildEvent(tbl *sheetTable, row []string, redacted map[string]bool) (domain.DetentionEvent, bool) {
	get := func(col string) string {
		if redacted[col] {
			return ""
		}
		i, ok := tbl.index[col]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	bookIn, ok := parseDateTime(get(colBookInDateTime))
	if !ok {
		return domain.DetentionEvent{}, false
	}
	stayIn, ok := parseDateTime(get(colStayBookIn))
	if !ok {
		return domain.DetentionEvent{}, false
	}

	ev := domain.DetentionEvent{
		PersonID:           get(colPersonID),
		FacilityCode:       get(colFacilityCode),
		BookInDateTime:     bookIn,
		StayBookInDateTime: stayIn,
		ReleaseReason:      optString(get(colReleaseReason)),
		StayReleaseReason:  optString(get(colStayReleaseReason)),
		Ethnicity:          optString(get(colEthnicity)),
		Gender:             optString(get(colGender)),
		MaritalStatus:      optString(get(colMaritalStatus)),
		Religion:           optString(get(colReligion)),
		FinalCharge:        optString(get(colFinalCharge)),
		MSCChargeCode:      optString(get(colMSCChargeCode)),
		FinalOrder:         get(colFinalOrder) == "YES",
	}
	if out, ok := parseDateTime(get(colBookOutDateTime)); ok {
		ev.BookOutDateTime = &out
	}
	if out, ok := parseDateTime(get(colStayBookOut)); ok {
		ev.StayBookOutDateTime = &out
	}
	if y, err := strconv.ParseInt(strings.TrimSuffix(get(colBirthYear), ".0"), 10, 32); err == nil {
		year := int32(y)
		ev.BirthYear = &year
	}
	return ev, true
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// parseDateTime tries the known workbook layouts. The formatted-string
// layouts cover both native Excel datetime cells and text columns.
func parseDateTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
