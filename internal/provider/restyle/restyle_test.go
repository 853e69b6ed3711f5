package restyle_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"photomaton/internal/logging"
	"photomaton/internal/provider"
	"photomaton/internal/provider/restyle"
	"photomaton/internal/services"
	"photomaton/internal/testsupport"
)

func newProvider(t *testing.T, baseURL string) *restyle.Provider {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Providers.Restyle.Enabled = true
	cfg.Providers.Restyle.BaseURL = baseURL
	cfg.Providers.Restyle.APIKey = "test-key"
	cfg.Providers.Restyle.TimeoutSeconds = 5
	return restyle.New(cfg, logging.NewNop())
}

func TestTransformUploadsAndStoresResponse(t *testing.T) {
	styled := []byte("styled-image-bytes")
	var gotPreset, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/transform" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotPreset = r.Header.Get("X-Preset")
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		if len(body) == 0 {
			t.Error("expected request body")
		}
		w.Header().Set("X-Request-ID", "req-42")
		w.Write(styled)
	}))
	defer server.Close()

	p := newProvider(t, server.URL)
	output := filepath.Join(t.TempDir(), "styled-dream.jpg")
	result, err := p.Transform(context.Background(), provider.Request{
		PhotoID:    "p1",
		OutputPath: output,
		Preset:     "dream",
		Data:       testsupport.JPEGBytes(t, 64, 64),
	})
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	if gotPreset != "dream" {
		t.Fatalf("preset header not sent, got %q", gotPreset)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("unexpected authorization header %q", gotAuth)
	}
	if result.Metadata["request_id"] != "req-42" {
		t.Fatalf("expected request id metadata, got %#v", result.Metadata)
	}

	written, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(written) != string(styled) {
		t.Fatal("output does not match API response")
	}
}

func TestTransformStatusClassification(t *testing.T) {
	cases := []struct {
		name      string
		status    int
		retryable bool
	}{
		{"rate limited", http.StatusTooManyRequests, true},
		{"server error", http.StatusInternalServerError, true},
		{"bad gateway", http.StatusBadGateway, true},
		{"rejected", http.StatusBadRequest, false},
		{"unauthorized", http.StatusUnauthorized, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, tc.name, tc.status)
			}))
			defer server.Close()

			p := newProvider(t, server.URL)
			_, err := p.Transform(context.Background(), provider.Request{
				PhotoID:    "p1",
				OutputPath: filepath.Join(t.TempDir(), "out.jpg"),
				Preset:     "noir",
				Data:       []byte("data"),
			})
			if err == nil {
				t.Fatal("expected failure")
			}
			if services.IsRetryable(err) != tc.retryable {
				t.Fatalf("status %d: retryable=%v, want %v (err: %v)",
					tc.status, services.IsRetryable(err), tc.retryable, err)
			}
		})
	}
}

func TestTransformConnectionRefusedIsRetryable(t *testing.T) {
	// Point at a closed port.
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	baseURL := server.URL
	server.Close()

	p := newProvider(t, baseURL)
	_, err := p.Transform(context.Background(), provider.Request{
		PhotoID:    "p1",
		OutputPath: filepath.Join(t.TempDir(), "out.jpg"),
		Preset:     "noir",
		Data:       []byte("data"),
	})
	if err == nil {
		t.Fatal("expected transport failure")
	}
	if !services.IsRetryable(err) {
		t.Fatalf("transport failures should be retryable: %v", err)
	}
}

func TestTransformEmptyResponseIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	p := newProvider(t, server.URL)
	_, err := p.Transform(context.Background(), provider.Request{
		PhotoID:    "p1",
		OutputPath: filepath.Join(t.TempDir(), "out.jpg"),
		Preset:     "noir",
		Data:       []byte("data"),
	})
	if !services.IsRetryable(err) {
		t.Fatalf("empty response should be retryable: %v", err)
	}
}

func TestAvailable(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/health" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()

	if err := newProvider(t, healthy.URL).Available(context.Background()); err != nil {
		t.Fatalf("Available failed against healthy server: %v", err)
	}

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()

	if err := newProvider(t, down.URL).Available(context.Background()); err == nil {
		t.Fatal("expected health failure")
	}
}

func TestValidateConfig(t *testing.T) {
	p := newProvider(t, "https://api.example.com")
	if err := p.ValidateConfig(); err != nil {
		t.Fatalf("ValidateConfig failed: %v", err)
	}

	cfg := testsupport.NewConfig(t)
	cfg.Providers.Restyle.BaseURL = ""
	if err := restyle.New(cfg, logging.NewNop()).ValidateConfig(); err == nil {
		t.Fatal("expected error for missing base_url")
	}

	cfg = testsupport.NewConfig(t)
	cfg.Providers.Restyle.BaseURL = "https://api.example.com"
	cfg.Providers.Restyle.APIKey = ""
	if err := restyle.New(cfg, logging.NewNop()).ValidateConfig(); err == nil {
		t.Fatal("expected error for missing api_key")
	}

	creds := p.RequiredCredentials()
	if len(creds) != 1 || creds[0] != "api_key" {
		t.Fatalf("unexpected credentials: %v", creds)
	}
}
