package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultBlobEndpoint is the public blob-store upload host.
	DefaultBlobEndpoint = "https://blob.vercel-storage.com"

	blobTimeout  = 30 * time.Second
	blobAttempts = 2
)

// BlobClient uploads objects to an HTTP blob store with a bearer token. Every
// object is stored via PUT and the store answers with a JSON body carrying the
// object's public URL.
type BlobClient struct {
	endpoint string
	token    string
	client   *http.Client
}

// NewBlobClient returns a client for the given endpoint. An empty endpoint
// falls back to DefaultBlobEndpoint. The token must not be empty; callers are
// expected to skip construction when no credential is configured.
func NewBlobClient(endpoint, token string) (*BlobClient, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("blob storage token is required")
	}
	if endpoint == "" {
		endpoint = DefaultBlobEndpoint
	}
	return &BlobClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		token:    token,
		client:   &http.Client{Timeout: blobTimeout},
	}, nil
}

// Upload stores the body under a random key derived from filename and returns
// the public URL reported by the store. The PUT is idempotent, so transport
// errors and 5xx responses are retried once.
func (c *BlobClient) Upload(ctx context.Context, filename, contentType string, body io.Reader) (string, error) {
	key, err := RandomKey(filename)
	if err != nil {
		return "", err
	}

	// Buffer the payload so the request can be replayed on retry.
	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("read upload body: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < blobAttempts; attempt++ {
		url, err := c.put(ctx, key, contentType, data)
		if err == nil {
			return url, nil
		}
		lastErr = err
		if !retryable(err) {
			break
		}
	}
	return "", lastErr
}

type retryableError struct{ err error }

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func retryable(err error) bool {
	_, ok := err.(*retryableError)
	return ok
}

func (c *BlobClient) put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.endpoint+"/"+key, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &retryableError{fmt.Errorf("upload %s: %w", key, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("upload %s: unexpected status %d: %s", key, resp.StatusCode, strings.TrimSpace(string(msg)))
		if resp.StatusCode >= 500 {
			return "", &retryableError{err}
		}
		return "", err
	}

	var result struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if result.URL == "" {
		return "", fmt.Errorf("upload response missing url")
	}
	return result.URL, nil
}

var _ Service = (*BlobClient)(nil)
