package totem

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"examsync/internal/store"
)

// UpsertGuard enforces the exam identity invariant: at most one persisted
// exam per (careerID, subject display name, calendar date) across any number
// of synchronization runs.
type UpsertGuard struct {
	store store.Store
}

// NewUpsertGuard returns an UpsertGuard backed by st.
func NewUpsertGuard(st store.Store) *UpsertGuard {
	return &UpsertGuard{store: st}
}

// Ensure persists the draft as an exam for the given career, or returns the
// existing exam when one already matches the identity key. The lookup is
// exact, not fuzzy, and a repeat sync never overwrites fields on the stored
// exam — manual edits such as classroom assignments survive re-ingestion.
//
// A newly created exam and its source link are written in one transaction:
// either both exist afterwards or neither does.
func (g *UpsertGuard) Ensure(ctx context.Context, draft ExamDraft, careerID int) (store.Exam, bool, error) {
	if draft.Date == nil {
		return store.Exam{}, false, fmt.Errorf("draft has no date")
	}
	subjectName := draft.SubjectDisplayName()

	existing, err := g.store.FindExamByIdentity(ctx, careerID, subjectName, *draft.Date)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return store.Exam{}, false, fmt.Errorf("find exam by identity: %w", err)
	}

	exam := store.Exam{
		CareerID:         careerID,
		SubjectName:      subjectName,
		Date:             *draft.Date,
		Time:             draft.Time,
		ExamType:         draft.ExamType,
		AllowedMaterials: draft.AllowedMaterials,
		Observations:     draft.Observations,
	}
	link := store.ExamSourceLink{
		SectorCode:         draft.SectorCode,
		ExternalCareerCode: draft.CareerCode,
		SubjectCode:        draft.SubjectCode,
		AreaTopicCode:      draft.AreaTopicCode,
		RawPayload:         draft.Raw,
	}

	created, err := g.store.CreateExamWithLink(ctx, exam, link)
	if err != nil {
		return store.Exam{}, false, fmt.Errorf("create exam %q: %w", subjectName, err)
	}
	return created, true, nil
}

// provenanceKey groups exams by their spreadsheet provenance for the
// reconciliation pass: sector, external career code, subject code and the
// calendar day of the exam.
type provenanceKey struct {
	Sector     string
	CareerCode string
	Subject    string
	Day        string
}

// Reconcile is the corrective maintenance procedure for duplicates written
// before the identity invariant existed. It groups every exam by provenance
// key and, for each group with more than one member, keeps the oldest-created
// record and deletes the rest along with their source links. Safe to run
// repeatedly: a pass over a clean table deletes nothing, and the sole
// remaining member of a group is never deleted.
func (g *UpsertGuard) Reconcile(ctx context.Context) (ReconcileResult, error) {
	all, err := g.store.ListExamsWithLinks(ctx)
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("list exams for reconciliation: %w", err)
	}

	groups := make(map[provenanceKey][]store.ExamWithLink)
	for _, ewl := range all {
		key := provenanceKey{
			Sector:     ewl.Link.SectorCode,
			CareerCode: ewl.Link.ExternalCareerCode,
			Subject:    ewl.Link.SubjectCode,
			Day:        ewl.Exam.Date.Format("2006-01-02"),
		}
		groups[key] = append(groups[key], ewl)
	}

	var result ReconcileResult
	var doomed []int
	for _, members := range groups {
		if len(members) < 2 {
			continue
		}
		result.GroupsFound++

		// Oldest created wins; ties broken by lowest ID for determinism.
		sort.Slice(members, func(i, j int) bool {
			if !members[i].Exam.CreatedAt.Equal(members[j].Exam.CreatedAt) {
				return members[i].Exam.CreatedAt.Before(members[j].Exam.CreatedAt)
			}
			return members[i].Exam.ID < members[j].Exam.ID
		})
		for _, loser := range members[1:] {
			doomed = append(doomed, loser.Exam.ID)
		}
	}

	if len(doomed) > 0 {
		if err := g.store.DeleteExams(ctx, doomed); err != nil {
			return ReconcileResult{}, fmt.Errorf("delete duplicate exams: %w", err)
		}
		result.RecordsDeleted = len(doomed)
	}
	return result, nil
}

// DuplicateGroups reports the current duplicate groups without deleting
// anything. Used by the admin CLI's verification command.
func (g *UpsertGuard) DuplicateGroups(ctx context.Context) (map[string][]int, error) {
	all, err := g.store.ListExamsWithLinks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}

	groups := make(map[provenanceKey][]int)
	for _, ewl := range all {
		key := provenanceKey{
			Sector:     ewl.Link.SectorCode,
			CareerCode: ewl.Link.ExternalCareerCode,
			Subject:    ewl.Link.SubjectCode,
			Day:        ewl.Exam.Date.Format("2006-01-02"),
		}
		groups[key] = append(groups[key], ewl.Exam.ID)
	}

	out := make(map[string][]int)
	for key, ids := range groups {
		if len(ids) < 2 {
			continue
		}
		sort.Ints(ids)
		label := fmt.Sprintf("%s/%s/%s@%s", key.Sector, key.CareerCode, key.Subject, key.Day)
		out[label] = ids
	}
	return out, nil
}
