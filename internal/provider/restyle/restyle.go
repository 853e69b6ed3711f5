// Package restyle implements the remote transform provider. It ships the
// original photo to a hosted styling API and stores the returned image. Rate
// limits and server errors are retryable; rejected requests are not.
package restyle

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"photomaton/internal/config"
	"photomaton/internal/fileutil"
	"photomaton/internal/logging"
	"photomaton/internal/provider"
)

// ProviderName is the registry name of the remote provider.
const ProviderName = "restyle"

const (
	transformPath = "/v1/transform"
	healthPath    = "/v1/health"

	// Responses larger than this are treated as misbehavior, not data.
	maxResponseBytes = 64 << 20
)

// Provider calls a remote restyle API over HTTP.
type Provider struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

// New builds the remote provider from daemon configuration.
func New(cfg *config.Config, logger *slog.Logger) *Provider {
	timeout := time.Duration(cfg.Providers.Restyle.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Provider{
		baseURL: strings.TrimRight(cfg.Providers.Restyle.BaseURL, "/"),
		apiKey:  cfg.Providers.Restyle.APIKey,
		client:  &http.Client{Timeout: timeout},
		logger:  logging.NewComponentLogger(logger, ProviderName),
	}
}

func (p *Provider) Name() string {
	return ProviderName
}

func (p *Provider) ValidateConfig() error {
	if p.baseURL == "" {
		return fmt.Errorf("base_url is required")
	}
	parsed, err := url.Parse(p.baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("base_url %q is not an absolute URL", p.baseURL)
	}
	if p.apiKey == "" {
		return fmt.Errorf("api_key is required")
	}
	return nil
}

// Available probes the remote health endpoint.
func (p *Provider) Available(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+healthPath, nil)
	if err != nil {
		return err
	}
	p.authorize(req)
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned %s", resp.Status)
	}
	return nil
}

func (p *Provider) Capabilities() provider.Capabilities {
	// The remote API accepts free-form presets; it reports no fixed list.
	return provider.Capabilities{RemoteAPI: true, MaxInputSize: maxResponseBytes}
}

func (p *Provider) RequiredCredentials() []string {
	return []string{"api_key"}
}

// Transform uploads the photo and writes the styled response to the output
// path.
func (p *Provider) Transform(ctx context.Context, req provider.Request) (*provider.Result, error) {
	started := time.Now()

	data := req.Data
	if len(data) == 0 {
		fileData, err := os.ReadFile(req.InputPath)
		if err != nil {
			return nil, provider.NewFailure(ProviderName, "transform", "read input", true, err)
		}
		data = fileData
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+transformPath, bytes.NewReader(data))
	if err != nil {
		return nil, provider.NewFailure(ProviderName, "transform", "build request", false, err)
	}
	p.authorize(httpReq)
	httpReq.Header.Set("Content-Type", "image/jpeg")
	httpReq.Header.Set("X-Preset", req.Preset)
	httpReq.Header.Set("X-Photo-ID", req.PhotoID)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		// Transport failures (refused, reset, timed out) are transient.
		return nil, provider.NewFailure(ProviderName, "transform", "send request", true, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		message := fmt.Sprintf("api returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
		return nil, provider.NewFailure(ProviderName, "transform", message, retryableStatus(resp.StatusCode), nil)
	}

	styled, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, provider.NewFailure(ProviderName, "transform", "read response", true, err)
	}
	if len(styled) == 0 {
		return nil, provider.NewFailure(ProviderName, "transform", "empty response body", true, nil)
	}
	if len(styled) > maxResponseBytes {
		return nil, provider.NewFailure(ProviderName, "transform", "response exceeds size limit", false, nil)
	}

	if err := fileutil.WriteFileAtomic(req.OutputPath, styled, 0o644); err != nil {
		return nil, provider.NewFailure(ProviderName, "transform", "write output", true, err)
	}

	elapsed := time.Since(started)
	p.logger.Info("photo styled remotely",
		logging.String(logging.FieldPhotoID, req.PhotoID),
		logging.String(logging.FieldPreset, req.Preset),
		logging.Duration("elapsed", elapsed))

	return &provider.Result{
		OutputPath: req.OutputPath,
		Provider:   ProviderName,
		Elapsed:    elapsed,
		Metadata: map[string]string{
			"preset":     req.Preset,
			"request_id": resp.Header.Get("X-Request-ID"),
		},
	}, nil
}

func (p *Provider) authorize(req *http.Request) {
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
}

// retryableStatus classifies HTTP status codes: rate limits and server-side
// errors are worth retrying, everything else rejected the request itself.
func retryableStatus(code int) bool {
	if code == http.StatusTooManyRequests || code == http.StatusRequestTimeout {
		return true
	}
	return code >= 500
}
