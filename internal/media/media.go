// Package media integrates with the Cloudinary-compatible asset host: it
// signs direct-upload requests for browsers and destroys assets that catalog
// records no longer reference.
package media

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

const defaultRequestTimeout = 10 * time.Second

// Store signs uploads and releases assets. The noop implementation is used
// when no asset host is configured, so handlers never need to branch.
type Store interface {
	Enabled() bool
	SignUpload(folder string) (UploadSignature, error)
	Delete(ctx context.Context, publicID, resourceType string) error
}

// Config carries the asset host credentials.
type Config struct {
	CloudName      string
	APIKey         string
	APISecret      string
	UploadFolder   string
	RequestTimeout time.Duration
}

// UploadSignature is everything a browser needs to upload directly to the
// asset host without ever seeing the API secret.
type UploadSignature struct {
	Timestamp int64  `json:"timestamp"`
	Folder    string `json:"folder"`
	Signature string `json:"signature"`
	APIKey    string `json:"apiKey"`
	CloudName string `json:"cloudName"`
}

type noopStore struct{}

func (noopStore) Enabled() bool { return false }

func (noopStore) SignUpload(string) (UploadSignature, error) {
	return UploadSignature{}, fmt.Errorf("media store not configured")
}

func (noopStore) Delete(context.Context, string, string) error { return nil }

type cloudStore struct {
	cfg        Config
	httpClient *http.Client
	now        func() time.Time
}

// NewStore builds a Store from the configuration. Missing credentials yield
// the noop implementation.
func NewStore(cfg Config) Store {
	if strings.TrimSpace(cfg.CloudName) == "" || strings.TrimSpace(cfg.APIKey) == "" || strings.TrimSpace(cfg.APISecret) == "" {
		return noopStore{}
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &cloudStore{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *cloudStore) Enabled() bool { return true }

// SignUpload produces a short-lived signature over the upload parameters.
func (s *cloudStore) SignUpload(folder string) (UploadSignature, error) {
	target := strings.TrimSpace(folder)
	if target == "" {
		target = s.cfg.UploadFolder
	}
	timestamp := s.now().Unix()
	params := map[string]string{
		"timestamp": fmt.Sprintf("%d", timestamp),
	}
	if target != "" {
		params["folder"] = target
	}
	return UploadSignature{
		Timestamp: timestamp,
		Folder:    target,
		Signature: signParams(params, s.cfg.APISecret),
		APIKey:    s.cfg.APIKey,
		CloudName: s.cfg.CloudName,
	}, nil
}

// Delete destroys the asset identified by publicID. resourceType is "image"
// or "video"; an empty value defaults to image.
func (s *cloudStore) Delete(ctx context.Context, publicID, resourceType string) error {
	trimmed := strings.TrimSpace(publicID)
	if trimmed == "" {
		return nil
	}
	if resourceType == "" {
		resourceType = "image"
	}
	timestamp := fmt.Sprintf("%d", s.now().Unix())
	params := map[string]string{
		"public_id": trimmed,
		"timestamp": timestamp,
	}
	form := url.Values{}
	form.Set("public_id", trimmed)
	form.Set("timestamp", timestamp)
	form.Set("api_key", s.cfg.APIKey)
	form.Set("signature", signParams(params, s.cfg.APISecret))

	endpoint := fmt.Sprintf("https://api.cloudinary.com/v1_1/%s/%s/destroy", url.PathEscape(s.cfg.CloudName), url.PathEscape(resourceType))
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create destroy request: %w", err)
	}
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	response, err := s.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("destroy asset %s: %w", trimmed, err)
	}
	defer func() {
		_ = response.Body.Close()
	}()
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return fmt.Errorf("destroy asset %s: unexpected status %d", trimmed, response.StatusCode)
	}
	var payload struct {
		Result string `json:"result"`
	}
	if err := json.NewDecoder(response.Body).Decode(&payload); err != nil {
		return fmt.Errorf("decode destroy response: %w", err)
	}
	// "not found" is treated as success: the asset is already gone.
	if payload.Result != "ok" && payload.Result != "not found" {
		return fmt.Errorf("destroy asset %s: result %q", trimmed, payload.Result)
	}
	return nil
}

// signParams hashes the sorted key=value pairs with the secret appended, the
// scheme the asset host verifies server-side.
func signParams(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+params[key])
	}
	digest := sha256.Sum256([]byte(strings.Join(pairs, "&") + secret))
	return hex.EncodeToString(digest[:])
}
