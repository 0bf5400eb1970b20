package totem

import (
	"context"
	"errors"
	"fmt"

	"examsync/internal/store"
)

// Resolver maps the spreadsheet's organizational codes onto the local
// catalog. Absence of a mapping is a normal outcome, reported as
// store.ErrNotFound; it never aborts a run.
type Resolver struct {
	store store.Store
}

// NewResolver returns a Resolver backed by st.
func NewResolver(st store.Store) *Resolver {
	return &Resolver{store: st}
}

// ResolveFaculty looks up the faculty mapped to a sector code. Pure lookup,
// active mappings only, no creation side effect.
func (r *Resolver) ResolveFaculty(ctx context.Context, sectorCode string) (store.Faculty, error) {
	f, err := r.store.FacultyBySector(ctx, sectorCode)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Faculty{}, fmt.Errorf("sector %q: %w", sectorCode, store.ErrNotFound)
		}
		return store.Faculty{}, fmt.Errorf("resolve faculty for sector %q: %w", sectorCode, err)
	}
	return f, nil
}

// ResolveCareer looks up the local career mapped to the sheet's career code.
// When no mapping row exists at all, a placeholder (Resolved=false) is
// created exactly once so the code stays visible for manual resolution;
// re-encountering the same code finds the placeholder instead of creating a
// second one. ErrNotFound is returned whenever the mapping is absent or
// unresolved, including immediately after placeholder creation.
func (r *Resolver) ResolveCareer(ctx context.Context, externalCode string, facultyID int) (store.Career, error) {
	m, err := r.store.CareerMappingByCode(ctx, externalCode)
	if errors.Is(err, store.ErrNotFound) {
		m, err = r.store.EnsureCareerMapping(ctx, store.CareerMapping{
			ExternalCode: externalCode,
			DisplayName:  "Carrera TOTEM " + externalCode,
			Resolved:     false,
			Active:       true,
		})
	}
	if err != nil {
		return store.Career{}, fmt.Errorf("resolve career %q: %w", externalCode, err)
	}

	if !m.Resolved || !m.Active || m.CareerID == nil {
		return store.Career{}, fmt.Errorf("career code %q unresolved: %w", externalCode, store.ErrNotFound)
	}

	career, err := r.store.CareerByID(ctx, *m.CareerID)
	if err != nil {
		return store.Career{}, fmt.Errorf("career %d for code %q: %w", *m.CareerID, externalCode, err)
	}
	return career, nil
}

// ResolveCareerMapping is the administrative operation that binds a
// placeholder mapping to a local career. Resolution is monotonic: this is the
// only operation that touches the Resolved flag, and it only ever sets it.
func (r *Resolver) ResolveCareerMapping(ctx context.Context, externalCode string, careerID int) (store.CareerMapping, error) {
	m, err := r.store.ResolveCareerMapping(ctx, externalCode, careerID)
	if err != nil {
		return store.CareerMapping{}, fmt.Errorf("resolve mapping %q -> career %d: %w", externalCode, careerID, err)
	}
	return m, nil
}

// CreateSectorMapping registers a sector -> faculty mapping. Upsert by
// sector: repeating the call for an existing sector returns the stored row.
func (r *Resolver) CreateSectorMapping(ctx context.Context, sector string, facultyID int) (store.SectorMapping, error) {
	m, err := r.store.CreateSectorMapping(ctx, sector, facultyID)
	if err != nil {
		return store.SectorMapping{}, fmt.Errorf("create sector mapping %q: %w", sector, err)
	}
	return m, nil
}

// UnmappedSectors lists sector codes seen in sheet snapshots that have no
// SectorMapping yet.
func (r *Resolver) UnmappedSectors(ctx context.Context) ([]string, error) {
	seen, err := r.store.ListSnapshotSectors(ctx)
	if err != nil {
		return nil, fmt.Errorf("list snapshot sectors: %w", err)
	}
	mapped, err := r.store.ListMappedSectors(ctx)
	if err != nil {
		return nil, fmt.Errorf("list mapped sectors: %w", err)
	}

	mappedSet := make(map[string]bool, len(mapped))
	for _, s := range mapped {
		mappedSet[s] = true
	}

	var out []string
	for _, s := range seen {
		if !mappedSet[s] {
			out = append(out, s)
		}
	}
	return out, nil
}

// UnresolvedCareerMappings lists placeholder mappings awaiting manual
// resolution.
func (r *Resolver) UnresolvedCareerMappings(ctx context.Context) ([]store.CareerMapping, error) {
	return r.store.ListUnresolvedCareerMappings(ctx)
}
