package totem

import (
	"testing"
	"time"
)

func TestNormalizeRow(t *testing.T) {
	row := Row{
		"SECTOR":       " 2 ",
		"CARRERA":      "13",
		"MATERIA":      "10037",
		"AREATEMA":     "710",
		"NOMBRE CORTO": "Derecho Romano",
		"FECHA":        "4/7/2025",
		"Hora":         "18:00",
		"Tipo Examen":  "Escrito",
	}

	draft := NormalizeRow(row)

	if draft.SectorCode != "2" {
		t.Errorf("SectorCode = %q, want %q", draft.SectorCode, "2")
	}
	if draft.CareerCode != "13" {
		t.Errorf("CareerCode = %q, want %q", draft.CareerCode, "13")
	}
	if draft.SubjectCode != "10037" {
		t.Errorf("SubjectCode = %q, want %q", draft.SubjectCode, "10037")
	}
	if draft.Date == nil {
		t.Fatal("Date = nil, want parsed date")
	}
	want := time.Date(2025, time.July, 4, 0, 0, 0, 0, time.UTC)
	if !draft.Date.Equal(want) {
		t.Errorf("Date = %v, want %v", draft.Date, want)
	}
	if draft.Time == nil || draft.Time.Hour != 18 || draft.Time.Minute != 0 {
		t.Errorf("Time = %v, want 18:00", draft.Time)
	}
	if !draft.Complete() {
		t.Error("Complete() = false, want true")
	}
}

func TestParseSheetDate(t *testing.T) {
	tests := []struct {
		in      string
		want    string // empty means nil expected
	}{
		{"4/7/2025", "2025-07-04"},
		{"04/07/2025", "2025-07-04"},
		{"31/12/2024", "2024-12-31"},
		{" 1/1/2030 ", "2030-01-01"},
		{"31/2/2025", ""}, // rollover rejected
		{"0/7/2025", ""},
		{"4/13/2025", ""},
		{"4/7/25", ""}, // two-digit years rejected
		{"2025-07-04", ""},
		{"sin fecha", ""},
		{"", ""},
	}

	for _, tt := range tests {
		got := parseSheetDate(tt.in)
		if tt.want == "" {
			if got != nil {
				t.Errorf("parseSheetDate(%q) = %v, want nil", tt.in, got)
			}
			continue
		}
		if got == nil {
			t.Errorf("parseSheetDate(%q) = nil, want %s", tt.in, tt.want)
			continue
		}
		if got.Format("2006-01-02") != tt.want {
			t.Errorf("parseSheetDate(%q) = %s, want %s", tt.in, got.Format("2006-01-02"), tt.want)
		}
	}
}

func TestParseSheetTime(t *testing.T) {
	tests := []struct {
		in   string
		want string // empty means nil expected
	}{
		{"18:00", "18:00"},
		{"9:30", "09:30"},
		{" 08:05 ", "08:05"},
		{"18:00:00", "18:00"},
		{"24:00", ""},
		{"12:60", ""},
		{"18", ""},
		{"mañana", ""},
		{"", ""},
	}

	for _, tt := range tests {
		got := parseSheetTime(tt.in)
		if tt.want == "" {
			if got != nil {
				t.Errorf("parseSheetTime(%q) = %v, want nil", tt.in, got)
			}
			continue
		}
		if got == nil {
			t.Errorf("parseSheetTime(%q) = nil, want %s", tt.in, tt.want)
			continue
		}
		if got.String() != tt.want {
			t.Errorf("parseSheetTime(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestSubjectDisplayName(t *testing.T) {
	withName := ExamDraft{SubjectCode: "10037", ShortName: "Derecho Romano"}
	if got := withName.SubjectDisplayName(); got != "Derecho Romano" {
		t.Errorf("SubjectDisplayName() = %q, want %q", got, "Derecho Romano")
	}

	noName := ExamDraft{SubjectCode: "10037"}
	if got := noName.SubjectDisplayName(); got != "Materia 10037" {
		t.Errorf("SubjectDisplayName() = %q, want %q", got, "Materia 10037")
	}
}

func TestCompleteRequiresIdentityFields(t *testing.T) {
	date := time.Date(2025, time.July, 4, 0, 0, 0, 0, time.UTC)
	full := ExamDraft{SectorCode: "2", CareerCode: "13", SubjectCode: "10037", Date: &date}
	if !full.Complete() {
		t.Error("Complete() = false for full draft, want true")
	}

	missing := []ExamDraft{
		{CareerCode: "13", SubjectCode: "10037", Date: &date},
		{SectorCode: "2", SubjectCode: "10037", Date: &date},
		{SectorCode: "2", CareerCode: "13", Date: &date},
		{SectorCode: "2", CareerCode: "13", SubjectCode: "10037"},
	}
	for i, d := range missing {
		if d.Complete() {
			t.Errorf("Complete() = true for draft %d missing a field, want false", i)
		}
	}
}
