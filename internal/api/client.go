package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Client is a typed HTTP client for the daemon API, used by the CLI.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient constructs a client for the daemon listening at addr
// (host:port or full URL).
func NewClient(addr, token string) *Client {
	base := strings.TrimRight(addr, "/")
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{
		baseURL: base,
		token:   token,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

// ExportQuery mirrors the export filter as query parameters.
type ExportQuery struct {
	Owner            string
	Preset           string
	From             string
	To               string
	IncludeOriginals bool
}

// PhotoQuery mirrors the photo list filter as query parameters.
type PhotoQuery struct {
	Owner  string
	Preset string
	Status string
}

// Status fetches daemon runtime information.
func (c *Client) Status(ctx context.Context) (*DaemonStatus, error) {
	var out DaemonStatus
	if err := c.getJSON(ctx, "/api/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListPhotos fetches photo records matching the query.
func (c *Client) ListPhotos(ctx context.Context, q PhotoQuery) ([]PhotoView, error) {
	params := url.Values{}
	setParam(params, "owner", q.Owner)
	setParam(params, "preset", q.Preset)
	setParam(params, "status", q.Status)
	var out PhotoListResponse
	if err := c.getJSON(ctx, "/api/photos", params, &out); err != nil {
		return nil, err
	}
	return out.Photos, nil
}

// GetPhoto fetches one photo record.
func (c *Client) GetPhoto(ctx context.Context, id string) (*PhotoView, error) {
	var out PhotoResponse
	if err := c.getJSON(ctx, "/api/photos/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out.Photo, nil
}

// UploadPhoto uploads an image file for the given owner.
func (c *Client) UploadPhoto(ctx context.Context, path, ownerID, preset string) (*PhotoView, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read upload file: %w", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(data); err != nil {
		return nil, err
	}
	_ = mw.WriteField("owner_id", ownerID)
	if preset != "" {
		_ = mw.WriteField("preset", preset)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/photos", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out UploadResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out.Photo, nil
}

// DeletePhoto removes a photo and its stored files.
func (c *Client) DeletePhoto(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/api/photos/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// Transform requests a styling job for the photo.
func (c *Client) Transform(ctx context.Context, id string, body TransformRequest) (*TransformResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/photos/"+url.PathEscape(id)+"/transform", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var out TransformResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Jobs lists tracked transform jobs.
func (c *Client) Jobs(ctx context.Context) ([]JobView, error) {
	var out JobListResponse
	if err := c.getJSON(ctx, "/api/jobs", nil, &out); err != nil {
		return nil, err
	}
	return out.Jobs, nil
}

// Job fetches one transform job.
func (c *Client) Job(ctx context.Context, id string) (*JobView, error) {
	var out JobResponse
	if err := c.getJSON(ctx, "/api/jobs/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out.Job, nil
}

// Presets lists configured presets.
func (c *Client) Presets(ctx context.Context, enabledOnly bool) ([]PresetView, error) {
	params := url.Values{}
	if enabledOnly {
		params.Set("enabled", "1")
	}
	var out PresetListResponse
	if err := c.getJSON(ctx, "/api/presets", params, &out); err != nil {
		return nil, err
	}
	return out.Presets, nil
}

// ImportPresets uploads a preset export document.
func (c *Client) ImportPresets(ctx context.Context, r io.Reader) (*PresetImportResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/presets/import", r)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var out PresetImportResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExportEstimate previews an export.
func (c *Client) ExportEstimate(ctx context.Context, q ExportQuery) (*ExportEstimateResponse, error) {
	var out ExportEstimateResponse
	if err := c.getJSON(ctx, "/api/export/estimate", q.params(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Export streams the export archive into w and returns the byte count.
func (c *Client) Export(ctx context.Context, q ExportQuery, w io.Writer) (int64, error) {
	endpoint := c.baseURL + "/api/export"
	if params := q.params(); len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}
	c.authorize(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, decodeError(resp)
	}
	return io.Copy(w, resp.Body)
}

func (q ExportQuery) params() url.Values {
	params := url.Values{}
	setParam(params, "owner", q.Owner)
	setParam(params, "preset", q.Preset)
	setParam(params, "from", q.From)
	setParam(params, "to", q.To)
	if q.IncludeOriginals {
		params.Set("originals", "1")
	}
	return params
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	c.authorize(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("connect to daemon at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func decodeError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return fmt.Errorf("daemon: %s", payload.Error)
	}
	return fmt.Errorf("daemon returned %s", resp.Status)
}

func setParam(params url.Values, key, value string) {
	if value = strings.TrimSpace(value); value != "" {
		params.Set(key, value)
	}
}
