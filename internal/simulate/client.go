package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// httpClient wraps http.Client with the service base URL.
type httpClient struct {
	client  *http.Client
	baseURL string
}

func newHTTPClient(baseURL string, timeout time.Duration) *httpClient {
	return &httpClient{client: &http.Client{Timeout: timeout}, baseURL: baseURL}
}

// do sends a request and decodes a JSON response into out when out is non-nil.
func (c *httpClient) do(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(data))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

type detectionResponse struct {
	Status    string      `json:"status"`
	Candidate string      `json:"candidate"`
	Record    *scanRecord `json:"record,omitempty"`
}

type scanRecord struct {
	SequenceID uint64 `json:"sequence_id"`
	UUID       string `json:"uuid"`
	StudentID  string `json:"student_id"`
}

type serviceStats struct {
	Started   bool   `json:"started"`
	Persisted int64  `json:"persisted"`
	Forwarded uint64 `json:"forwarded"`
}

func (c *httpClient) postDetection(ctx context.Context, d Detection) (detectionResponse, error) {
	var resp detectionResponse
	err := c.do(ctx, http.MethodPost, "/detections", d, &resp)
	return resp, err
}

func (c *httpClient) recent(ctx context.Context) ([]scanRecord, error) {
	var recs []scanRecord
	err := c.do(ctx, http.MethodGet, "/scans", nil, &recs)
	return recs, err
}

func (c *httpClient) stats(ctx context.Context) (serviceStats, error) {
	var s serviceStats
	err := c.do(ctx, http.MethodGet, "/stats", nil, &s)
	return s, err
}

func (c *httpClient) reset(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/session/reset", nil, nil)
}

func (c *httpClient) health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}
