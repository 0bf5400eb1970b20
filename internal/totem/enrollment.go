package totem

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"examsync/internal/store"
)

// Default backpressure policy against the external registrar. Both values
// are tunable through FetcherOptions; they bound load, they are not a
// correctness requirement.
const (
	DefaultBatchSize  = 5
	DefaultBatchPause = time.Second
)

// Fetcher queries the external registrar for enrollment data in rate-limited
// batches. Per-code failures are isolated: one code failing never aborts its
// siblings in the same or later batches.
type Fetcher struct {
	client     EnrollmentClient
	store      store.Store
	batchSize  int
	batchPause time.Duration
}

// FetcherOptions tunes the batching policy. Zero values fall back to the
// defaults.
type FetcherOptions struct {
	BatchSize  int
	BatchPause time.Duration
}

// NewFetcher returns a Fetcher using client for registrar calls and st for
// exam/source-link lookups.
func NewFetcher(client EnrollmentClient, st store.Store, opts FetcherOptions) *Fetcher {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.BatchPause <= 0 {
		opts.BatchPause = DefaultBatchPause
	}
	return &Fetcher{
		client:     client,
		store:      st,
		batchSize:  opts.BatchSize,
		batchPause: opts.BatchPause,
	}
}

// FetchEnrollment queries the registrar for every subject code, batchSize
// codes in flight at a time with a pause between batches. The returned map
// has one entry per requested code; failed codes carry Err and a zero count,
// which callers must not read as a confirmed zero.
func (f *Fetcher) FetchEnrollment(ctx context.Context, subjectCodes []string, window DateWindow) (map[string]EnrollmentResult, error) {
	codes := dedupeCodes(subjectCodes)
	results := make(map[string]EnrollmentResult, len(codes))

	for start := 0; start < len(codes); start += f.batchSize {
		end := start + f.batchSize
		if end > len(codes) {
			end = len(codes)
		}
		batch := codes[start:end]

		var (
			mu sync.Mutex
			wg sync.WaitGroup
		)
		for _, code := range batch {
			wg.Add(1)
			go func(code string) {
				defer wg.Done()
				res := f.fetchOne(ctx, code, window)
				mu.Lock()
				results[code] = res
				mu.Unlock()
			}(code)
		}
		wg.Wait()

		if end < len(codes) {
			select {
			case <-ctx.Done():
				return results, ctx.Err()
			case <-time.After(f.batchPause):
			}
		}
	}

	return results, nil
}

// fetchOne performs a single registrar call, converting failure into a
// marked result instead of an error.
func (f *Fetcher) fetchOne(ctx context.Context, code string, window DateWindow) EnrollmentResult {
	records, err := f.client.Enrollments(ctx, code, window)
	if err != nil {
		return EnrollmentResult{SubjectCode: code, Err: err.Error()}
	}
	return EnrollmentResult{
		SubjectCode: code,
		Records:     records,
		Count:       len(records),
	}
}

// ExamEnrollment is the enrollment view of one exam: the registrar records
// whose area/topic code matches the exam's source link.
type ExamEnrollment struct {
	ExamID          int                `json:"examId"`
	SubjectCode     string             `json:"subjectCode"`
	Count           int                `json:"count"`
	TotalForSubject int                `json:"totalForSubject"`
	Records         []EnrollmentRecord `json:"records,omitempty"`
	Err             string             `json:"error,omitempty"`
}

// ForExam fetches enrollment for one exam and narrows the registrar's
// records to those matching the exam's area/topic code. A registrar failure
// comes back as a marked partial result, not an error: the exam's data could
// not be confirmed, which is different from a confirmed zero.
func (f *Fetcher) ForExam(ctx context.Context, examID int, window DateWindow) (ExamEnrollment, error) {
	link, err := f.store.ExamLink(ctx, examID)
	if err != nil {
		return ExamEnrollment{}, fmt.Errorf("source link for exam %d: %w", examID, err)
	}

	out := ExamEnrollment{ExamID: examID, SubjectCode: link.SubjectCode}

	records, err := f.client.Enrollments(ctx, link.SubjectCode, window)
	if err != nil {
		out.Err = err.Error()
		return out, nil
	}

	out.TotalForSubject = len(records)
	for _, rec := range records {
		if link.AreaTopicCode == "" || rec.AreaTopicCode == link.AreaTopicCode {
			out.Records = append(out.Records, rec)
		}
	}
	out.Count = len(out.Records)
	return out, nil
}

// dedupeCodes drops duplicates while keeping a deterministic order.
func dedupeCodes(codes []string) []string {
	seen := make(map[string]bool, len(codes))
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
