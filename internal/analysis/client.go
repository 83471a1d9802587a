package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/five82/heapdiff/internal/census"
	"github.com/five82/heapdiff/internal/snapshot"
)

// Client talks to a remote heapdiff worker.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
}

const (
	defaultWorkerAddr = "127.0.0.1:7490"
	defaultUserAgent  = "heapdiff/0.1"
	requestTimeout    = 30 * time.Second
	requestIDHeader   = "X-Request-ID"
)

// NewClient builds a Client for the worker listening on addr (host:port or
// a full URL).
func NewClient(addr string) (*Client, error) {
	base, err := parseBaseURL(addr)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: requestTimeout,
		},
		userAgent: defaultUserAgent,
	}, nil
}

// ListSnapshots retrieves the worker's snapshot list.
func (c *Client) ListSnapshots(ctx context.Context) ([]snapshot.Snapshot, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var payload SnapshotListResponse
	if err := c.do(ctx, http.MethodGet, "/api/snapshots", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Snapshots, nil
}

// TakeCensusDiff asks the worker for the delta between two snapshots.
func (c *Client) TakeCensusDiff(ctx context.Context, pathA, pathB string, spec census.BreakdownSpec, opts census.TreeOptions) (census.Delta, error) {
	if c == nil {
		return census.Delta{}, fmt.Errorf("client is nil")
	}
	body := CensusDiffRequest{
		PathA:     pathA,
		PathB:     pathB,
		Breakdown: spec,
		Options:   opts,
	}
	var payload census.Delta
	if err := c.do(ctx, http.MethodPost, "/api/census-diff", body, &payload); err != nil {
		return census.Delta{}, err
	}
	if payload.Report == nil {
		return census.Delta{}, fmt.Errorf("census diff response has no report")
	}
	if payload.ParentMap == nil {
		payload.ParentMap = census.ParentMap{}
	}
	return payload, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, dest any) error {
	rel := &url.URL{Path: path}
	reqURL := c.baseURL.ResolveReference(rel)

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(requestIDHeader, uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return statusError(rel.String(), resp)
	}
	if dest == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func statusError(path string, resp *http.Response) error {
	var payload errorResponse
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&payload)
	msg := strings.TrimSpace(payload.Error)

	err := fmt.Errorf("api %s returned status %d", path, resp.StatusCode)
	if msg != "" {
		err = fmt.Errorf("api %s returned status %d: %s", path, resp.StatusCode, msg)
	}
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %w", ErrSnapshotNotFound, err)
	}
	return err
}

func parseBaseURL(addr string) (*url.URL, error) {
	trimmed := strings.TrimSpace(addr)
	if trimmed == "" {
		trimmed = defaultWorkerAddr
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse worker addr %q: %w", addr, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
