// Package registrar talks to the university's student records API. It
// implements totem.EnrollmentClient over plain HTTP; the records endpoint
// returns a JSON array of enrollment acts per subject code.
package registrar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"examsync/internal/totem"
)

const maxResponseSize = 5 * 1024 * 1024

// Client queries enrollment acts for subject codes.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// Options configures a Client. Zero values get sensible defaults.
type Options struct {
	Timeout time.Duration
}

// New returns a Client against the given registrar base URL, e.g.
// "https://sistemasweb.example.edu/api/v1".
func New(baseURL string, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// act is the registrar's wire shape for one enrollment record. Field names
// follow the upstream API; some deployments report the area topic under a
// plural key, so both are read.
type act struct {
	StudentID    json.Number `json:"dni"`
	DisplayName  string      `json:"nombre"`
	SubjectCode  json.Number `json:"materia"`
	AreaTopic    json.Number `json:"areaTema"`
	AreaTopicAlt json.Number `json:"areasTemas"`
}

// Enrollments fetches the pending (not yet sat) enrollment acts for one
// subject code inside the window.
func (c *Client) Enrollments(ctx context.Context, subjectCode string, window totem.DateWindow) ([]totem.EnrollmentRecord, error) {
	q := url.Values{}
	q.Set("rendida", "false")
	q.Set("fechaDesde", formatDate(window.From))
	if window.To != nil {
		q.Set("fechaHasta", formatDate(*window.To))
	}

	reqURL := fmt.Sprintf("%s/acta/materia/%s?%s", c.baseURL, url.PathEscape(subjectCode), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build registrar request for subject %s: %w", subjectCode, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query registrar for subject %s: %w", subjectCode, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("query registrar for subject %s: HTTP %d", subjectCode, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read registrar response for subject %s: %w", subjectCode, err)
	}

	var acts []act
	if err := json.Unmarshal(body, &acts); err != nil {
		return nil, fmt.Errorf("decode registrar response for subject %s: %w", subjectCode, err)
	}

	records := make([]totem.EnrollmentRecord, 0, len(acts))
	for _, a := range acts {
		area := a.AreaTopic.String()
		if area == "" {
			area = a.AreaTopicAlt.String()
		}
		records = append(records, totem.EnrollmentRecord{
			StudentID:     a.StudentID.String(),
			DisplayName:   a.DisplayName,
			SubjectCode:   a.SubjectCode.String(),
			AreaTopicCode: area,
		})
	}
	return records, nil
}

// formatDate renders a date the way the registrar expects, DD/MM/YYYY.
func formatDate(t time.Time) string {
	return t.Format("02/01/2006")
}
