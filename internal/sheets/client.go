// Package sheets implements the spreadsheet row source against the Google
// Sheets CSV export endpoint. The sync core sees it only as a totem.RowSource.
package sheets

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"examsync/internal/totem"
)

// DefaultBaseURL is the Google Sheets host the export URLs are built on.
const DefaultBaseURL = "https://docs.google.com"

// maxCSVSize caps a single sheet download (10MB). The totem sheets are a few
// hundred rows; anything larger is a broken export.
const maxCSVSize = 10 * 1024 * 1024

// Client downloads sheets as CSV and yields header-keyed rows.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	spreadsheetID string
	candidates    []string
}

// Options configures a Client. Zero values get sensible defaults.
type Options struct {
	BaseURL string
	Timeout time.Duration
	// CandidateSheets is the list probed by SheetNames. The export endpoint
	// cannot enumerate sheets, so detection means trying known names and
	// keeping those that answer with data.
	CandidateSheets []string
}

// New returns a Client for one spreadsheet.
func New(spreadsheetID string, opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Client{
		httpClient:    &http.Client{Timeout: opts.Timeout},
		baseURL:       strings.TrimRight(opts.BaseURL, "/"),
		spreadsheetID: spreadsheetID,
		candidates:    opts.CandidateSheets,
	}
}

// SheetNames probes the candidate sheets and returns those that currently
// hold data. Returns an error when no candidates are configured or none
// answered, so the orchestrator can fall back to its own list.
func (c *Client) SheetNames(ctx context.Context) ([]string, error) {
	if len(c.candidates) == 0 {
		return nil, fmt.Errorf("sheet detection not configured")
	}

	var found []string
	for _, name := range c.candidates {
		rows, err := c.Rows(ctx, name)
		if err != nil {
			slog.Debug("sheet probe failed", "sheet", name, "error", err)
			continue
		}
		if len(rows) > 0 {
			found = append(found, name)
		}
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("no candidate sheet answered with data")
	}
	return found, nil
}

// Rows downloads the named sheet's CSV export and returns its data rows
// keyed by header name.
func (c *Client) Rows(ctx context.Context, sheetName string) ([]totem.Row, error) {
	exportURL := fmt.Sprintf("%s/spreadsheets/d/%s/gviz/tq?tqx=out:csv&sheet=%s",
		c.baseURL, url.PathEscape(c.spreadsheetID), url.QueryEscape(sheetName))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, exportURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for sheet %q: %w", sheetName, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download sheet %q: %w", sheetName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download sheet %q: HTTP %d", sheetName, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxCSVSize))
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheetName, err)
	}

	return ParseRows(data)
}

// ParseRows turns raw CSV bytes into header-keyed rows. The header is the
// first non-empty record; fully empty records are dropped. Exposed for the
// fixture-based tests.
func ParseRows(data []byte) ([]totem.Row, error) {
	records, err := parseCSV(sanitizeUTF8(data))
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	headerIdx := -1
	var header []string
	for i, rec := range records {
		if !isEmptyRecord(rec) {
			header = rec
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil, nil
	}

	var rows []totem.Row
	for _, rec := range records[headerIdx+1:] {
		if isEmptyRecord(rec) {
			continue
		}
		row := make(totem.Row, len(header))
		for i, key := range header {
			key = strings.TrimSpace(key)
			if key == "" {
				continue
			}
			if i < len(rec) {
				row[key] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseCSV(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r.ReadAll()
}

func isEmptyRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// sanitizeUTF8 replaces invalid byte sequences so the CSV reader never sees
// broken encoding from a half-exported sheet.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('�')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}

	return buf.Bytes()
}
