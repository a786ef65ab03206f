package exporter

import (
	"encoding/csv"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	perrors "custodyetl/internal/errors"
	"custodyetl/pkg/contracts/domain"
)

// panelHeaders is the CSV column order; it mirrors the parquet schema and is
// stable across runs.
var panelHeaders = []string{
	"person_id", "detention_date", "date_id", "stay_id", "detention_id",
	"detention_facility_code", "city", "state", "type_detailed", "type_grouped",
	"next_detention_facility_code", "next_city", "next_state", "distance_km",
	"days_in_current_detention", "days_in_current_stay", "in_detention",
	"stay_number", "total_num_stays", "first_stay", "previously_removed",
	"detention_release_reason", "stay_release_reason",
	"birth_year", "ethnicity", "gender", "marital_status", "religion",
	"final_charge", "msc_charge_code", "final_order",
}

// WritePanelCSV renders the daily panel as CSV. Null fields become empty
// cells.
func WritePanelCSV(path string, rows []domain.PanelRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return perrors.Wrap(err, perrors.CodeStorageFailed, "create directory for %s", path)
	}
	file, err := os.Create(path)
	if err != nil {
		return perrors.Wrap(err, perrors.CodeStorageFailed, "create %s", path)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(panelHeaders); err != nil {
		return perrors.Wrap(err, perrors.CodeStorageFailed, "write headers to %s", path)
	}
	for i := range rows {
		if err := writer.Write(panelRecord(&rows[i])); err != nil {
			return perrors.Wrap(err, perrors.CodeStorageFailed, "write record %d to %s", i, path)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return perrors.Wrap(err, perrors.CodeStorageFailed, "flush %s", path)
	}

	slog.Info("CSV file written",
		slog.String("path", path),
		slog.Int("rows", len(rows)))
	return nil
}

func panelRecord(r *domain.PanelRow) []string {
	return []string{
		r.PersonID,
		r.DetentionDate.UTC().Format("2006-01-02"),
		strconv.Itoa(int(r.DateID)),
		r.StayID,
		r.DetentionID,
		r.FacilityCode,
		strOrEmpty(r.City),
		strOrEmpty(r.State),
		strOrEmpty(r.TypeDetailed),
		strOrEmpty(r.TypeGrouped),
		strOrEmpty(r.NextFacilityCode),
		strOrEmpty(r.NextCity),
		strOrEmpty(r.NextState),
		floatOrEmpty(r.DistanceKM),
		strconv.Itoa(int(r.DaysInCurrentDetention)),
		strconv.Itoa(int(r.DaysInCurrentStay)),
		strconv.FormatBool(r.InDetention),
		strconv.Itoa(int(r.StayNumber)),
		strconv.Itoa(int(r.TotalStays)),
		strconv.FormatBool(r.FirstStay),
		strconv.FormatBool(r.PreviouslyRemoved),
		strOrEmpty(r.ReleaseReason),
		strOrEmpty(r.StayReleaseReason),
		intOrEmpty(r.BirthYear),
		strOrEmpty(r.Ethnicity),
		strOrEmpty(r.Gender),
		strOrEmpty(r.MaritalStatus),
		strOrEmpty(r.Religion),
		strOrEmpty(r.FinalCharge),
		strOrEmpty(r.MSCChargeCode),
		strconv.FormatBool(r.FinalOrder),
	}
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func floatOrEmpty(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', 3, 64)
}

func intOrEmpty(v *int32) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(int(*v))
}
