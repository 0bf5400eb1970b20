package totem

import (
	"strconv"
	"strings"
	"time"

	"examsync/internal/store"
)

// NormalizeRow turns a raw spreadsheet row into a typed ExamDraft. It is a
// pure function and never fails: unparseable dates and times come back as nil
// fields and the skip decision is left to the orchestrator.
func NormalizeRow(row Row) ExamDraft {
	return ExamDraft{
		SectorCode:       field(row, ColSector),
		CareerCode:       field(row, ColCareer),
		SubjectCode:      field(row, ColSubject),
		AreaTopicCode:    field(row, ColAreaTopic),
		ShortName:        field(row, ColShortName),
		Date:             parseSheetDate(row[ColDate]),
		Time:             parseSheetTime(row[ColTime]),
		ExamType:         field(row, ColExamType),
		Professor:        field(row, ColProfessor),
		Observations:     field(row, ColObservations),
		MonitoringNote:   field(row, ColMonitoring),
		Mode:             field(row, ColMode),
		URL:              field(row, ColURL),
		Chair:            field(row, ColChair),
		ControlledBy:     field(row, ColControlledBy),
		AllowedMaterials: field(row, ColAllowedMaterials),
		Raw:              row,
	}
}

// field trims a textual cell. Numeric-looking codes stay strings to avoid
// locale-dependent coercion.
func field(row Row, key string) string {
	return strings.TrimSpace(row[key])
}

// parseSheetDate parses the sheet's D/M/YYYY form (single- or double-digit
// day and month). Returns nil on any parse failure.
func parseSheetDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return nil
	}

	day, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return nil
	}
	month, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil
	}
	year, err := strconv.Atoi(strings.TrimSpace(parts[2]))
	if err != nil {
		return nil
	}

	if month < 1 || month > 12 || day < 1 || day > 31 || year < 1000 {
		return nil
	}

	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// Reject overflow dates like 31/2 that time.Date silently rolls over.
	if d.Day() != day || d.Month() != time.Month(month) {
		return nil
	}
	return &d
}

// parseSheetTime parses H:MM or HH:MM. Absent or malformed text yields nil
// without failing the row.
func parseSheetTime(s string) *store.ClockTime {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	parts := strings.SplitN(s, ":", 3)
	if len(parts) < 2 {
		return nil
	}

	hour, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || hour < 0 || hour > 23 {
		return nil
	}
	minute, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || minute < 0 || minute > 59 {
		return nil
	}

	return &store.ClockTime{Hour: hour, Minute: minute}
}
