package totem

import (
	"context"
	"errors"
	"testing"

	"examsync/internal/store"
	"examsync/internal/store/memory"
)

func seedCatalog(t *testing.T) (*memory.Store, store.Faculty, store.Career) {
	t.Helper()
	st := memory.New()
	fac := st.AddFaculty(store.Faculty{Name: "Derecho", Active: true})
	career := st.AddCareer(store.Career{FacultyID: fac.ID, Code: "13", Name: "Abogacía", Active: true})
	st.AddSectorMapping(store.SectorMapping{Sector: "2", FacultyID: fac.ID, Active: true})
	return st, fac, career
}

func TestResolveFaculty(t *testing.T) {
	st, fac, _ := seedCatalog(t)
	r := NewResolver(st)

	got, err := r.ResolveFaculty(context.Background(), "2")
	if err != nil {
		t.Fatalf("ResolveFaculty() error = %v", err)
	}
	if got.ID != fac.ID {
		t.Errorf("faculty ID = %d, want %d", got.ID, fac.ID)
	}

	if _, err := r.ResolveFaculty(context.Background(), "99"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("unknown sector error = %v, want ErrNotFound", err)
	}
}

func TestResolveCareerCreatesPlaceholderOnce(t *testing.T) {
	st, fac, _ := seedCatalog(t)
	r := NewResolver(st)
	ctx := context.Background()

	// First encounter creates the placeholder and still reports not found.
	_, err := r.ResolveCareer(ctx, "77", fac.ID)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("first ResolveCareer() error = %v, want ErrNotFound", err)
	}

	m, err := st.CareerMappingByCode(ctx, "77")
	if err != nil {
		t.Fatalf("placeholder not created: %v", err)
	}
	if m.Resolved {
		t.Error("placeholder Resolved = true, want false")
	}
	if m.DisplayName != "Carrera TOTEM 77" {
		t.Errorf("placeholder DisplayName = %q, want %q", m.DisplayName, "Carrera TOTEM 77")
	}

	// Re-encountering the code must reuse the placeholder, not duplicate it.
	if _, err := r.ResolveCareer(ctx, "77", fac.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("second ResolveCareer() error = %v, want ErrNotFound", err)
	}
	m2, err := st.CareerMappingByCode(ctx, "77")
	if err != nil {
		t.Fatalf("CareerMappingByCode() error = %v", err)
	}
	if m2.ID != m.ID {
		t.Errorf("placeholder recreated: id %d -> %d", m.ID, m2.ID)
	}
}

func TestResolveCareerAfterManualResolution(t *testing.T) {
	st, fac, career := seedCatalog(t)
	r := NewResolver(st)
	ctx := context.Background()

	if _, err := r.ResolveCareer(ctx, "77", fac.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("ResolveCareer() before resolution error = %v, want ErrNotFound", err)
	}

	resolved, err := r.ResolveCareerMapping(ctx, "77", career.ID)
	if err != nil {
		t.Fatalf("ResolveCareerMapping() error = %v", err)
	}
	if !resolved.Resolved || resolved.CareerID == nil || *resolved.CareerID != career.ID {
		t.Fatalf("mapping = %+v, want resolved to career %d", resolved, career.ID)
	}

	got, err := r.ResolveCareer(ctx, "77", fac.ID)
	if err != nil {
		t.Fatalf("ResolveCareer() after resolution error = %v", err)
	}
	if got.ID != career.ID {
		t.Errorf("career ID = %d, want %d", got.ID, career.ID)
	}
}

func TestResolveCareerPreMappedCode(t *testing.T) {
	st, fac, career := seedCatalog(t)
	st.AddCareerMapping(store.CareerMapping{
		ExternalCode: "13",
		CareerID:     &career.ID,
		Resolved:     true,
		Active:       true,
	})
	r := NewResolver(st)

	got, err := r.ResolveCareer(context.Background(), "13", fac.ID)
	if err != nil {
		t.Fatalf("ResolveCareer() error = %v", err)
	}
	if got.ID != career.ID {
		t.Errorf("career ID = %d, want %d", got.ID, career.ID)
	}
}

func TestResolveCareerInactiveMapping(t *testing.T) {
	st, fac, career := seedCatalog(t)
	st.AddCareerMapping(store.CareerMapping{
		ExternalCode: "13",
		CareerID:     &career.ID,
		Resolved:     true,
		Active:       false,
	})
	r := NewResolver(st)

	if _, err := r.ResolveCareer(context.Background(), "13", fac.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("inactive mapping error = %v, want ErrNotFound", err)
	}
}

func TestUnmappedSectors(t *testing.T) {
	st, _, _ := seedCatalog(t)
	r := NewResolver(st)
	ctx := context.Background()

	_, err := st.SaveSheetSnapshot(ctx, "1° Turno Ordinario", []map[string]string{
		{"SECTOR": "2"},
		{"SECTOR": "4"},
		{"SECTOR": "4"},
	})
	if err != nil {
		t.Fatalf("SaveSheetSnapshot() error = %v", err)
	}

	got, err := r.UnmappedSectors(ctx)
	if err != nil {
		t.Fatalf("UnmappedSectors() error = %v", err)
	}
	if len(got) != 1 || got[0] != "4" {
		t.Errorf("UnmappedSectors() = %v, want [4]", got)
	}
}
