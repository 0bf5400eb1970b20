package registrar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"examsync/internal/totem"
)

func TestEnrollments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got, want := r.URL.Path, "/acta/materia/10037"; got != want {
			t.Errorf("path = %q, want %q", got, want)
		}
		q := r.URL.Query()
		if got := q.Get("rendida"); got != "false" {
			t.Errorf("rendida = %q, want %q", got, "false")
		}
		if got := q.Get("fechaDesde"); got != "04/07/2025" {
			t.Errorf("fechaDesde = %q, want %q", got, "04/07/2025")
		}
		if got := q.Get("fechaHasta"); got != "04/08/2025" {
			t.Errorf("fechaHasta = %q, want %q", got, "04/08/2025")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"dni": 30111222, "nombre": "PEREZ, ANA", "materia": 10037, "areaTema": 710},
			{"dni": "30111333", "nombre": "GOMEZ, LUIS", "materia": "10037", "areasTemas": "640"}
		]`))
	}))
	defer srv.Close()

	to := time.Date(2025, time.August, 4, 0, 0, 0, 0, time.UTC)
	window := totem.DateWindow{
		From: time.Date(2025, time.July, 4, 0, 0, 0, 0, time.UTC),
		To:   &to,
	}

	c := New(srv.URL, Options{})
	records, err := c.Enrollments(context.Background(), "10037", window)
	if err != nil {
		t.Fatalf("Enrollments() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}

	want := totem.EnrollmentRecord{
		StudentID:     "30111222",
		DisplayName:   "PEREZ, ANA",
		SubjectCode:   "10037",
		AreaTopicCode: "710",
	}
	if records[0] != want {
		t.Errorf("records[0] = %+v, want %+v", records[0], want)
	}
	if got := records[1].AreaTopicCode; got != "640" {
		t.Errorf("records[1].AreaTopicCode = %q, want %q (plural key fallback)", got, "640")
	}
}

func TestEnrollmentsOpenWindow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.URL.Query()["fechaHasta"]; ok {
			t.Error("fechaHasta sent for an open window")
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := New(srv.URL, Options{})
	records, err := c.Enrollments(context.Background(), "10037", totem.DateWindow{From: time.Now()})
	if err != nil {
		t.Fatalf("Enrollments() error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("len(records) = %d, want 0", len(records))
	}
}

func TestEnrollmentsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL, Options{})
	if _, err := c.Enrollments(context.Background(), "10037", totem.DateWindow{From: time.Now()}); err == nil {
		t.Fatal("Enrollments() error = nil, want HTTP status error")
	}
}

func TestEnrollmentsMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": "not an array"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, Options{})
	if _, err := c.Enrollments(context.Background(), "10037", totem.DateWindow{From: time.Now()}); err == nil {
		t.Fatal("Enrollments() error = nil, want decode error")
	}
}
