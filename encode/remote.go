package encode

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultBaseURL is the default embedding service URL.
	DefaultBaseURL = "http://localhost:8091"

	// DefaultTimeout bounds a single embedding request.
	DefaultTimeout = 120 * time.Second
)

// Remote is an Encoder backed by an HTTP embedding service.
type Remote struct {
	baseURL    string
	dimension  int
	httpClient *http.Client
}

// RemoteConfig holds configuration for the remote encoder.
type RemoteConfig struct {
	// BaseURL is the embedding service URL. Defaults to DefaultBaseURL
	// if empty.
	BaseURL string

	// Dimension is the embedding dimensionality the service produces.
	Dimension int

	// Timeout bounds a single request. Defaults to DefaultTimeout.
	Timeout time.Duration
}

// NewRemote creates an encoder client for an HTTP embedding service.
func NewRemote(cfg RemoteConfig) (*Remote, error) {
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive", ErrEncoding)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Remote{
		baseURL:   baseURL,
		dimension: cfg.Dimension,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Dimension implements Encoder.
func (r *Remote) Dimension() int { return r.dimension }

type embedRequest struct {
	Input       string `json:"input,omitempty"`
	Blob        []byte `json:"blob,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// EncodeText implements Encoder.
func (r *Remote) EncodeText(ctx context.Context, text string) ([]float32, error) {
	return r.embed(ctx, embedRequest{Input: text})
}

// EncodeBytes implements Encoder.
func (r *Remote) EncodeBytes(ctx context.Context, data []byte, contentType string) ([]float32, error) {
	return r.embed(ctx, embedRequest{Blob: data, ContentType: contentType})
}

func (r *Remote) embed(ctx context.Context, body embedRequest) ([]float32, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling request: %v", ErrEncoding, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/embed", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", ErrEncoding, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: sending request: %v", ErrEncoding, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: service returned status %d: %s", ErrEncoding, resp.StatusCode, string(msg))
	}

	var embedResp embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrEncoding, err)
	}

	if len(embedResp.Embedding) != r.dimension {
		return nil, fmt.Errorf("%w: service returned dimension %d, want %d", ErrEncoding, len(embedResp.Embedding), r.dimension)
	}

	return embedResp.Embedding, nil
}

var _ Encoder = (*Remote)(nil)
