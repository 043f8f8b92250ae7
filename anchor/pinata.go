package anchor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

const (
	// DefaultPinataBaseURL is the Pinata pinning API.
	DefaultPinataBaseURL = "https://api.pinata.cloud"

	// DefaultPinataTimeout bounds a single pin request.
	DefaultPinataTimeout = 60 * time.Second
)

// Pinata is a Store that pins content to IPFS through the Pinata API.
type Pinata struct {
	baseURL    string
	apiKey     string
	secretKey  string
	httpClient *http.Client
}

// PinataConfig holds configuration for the Pinata store.
type PinataConfig struct {
	// BaseURL overrides the Pinata API URL, primarily for tests.
	BaseURL string

	// APIKey and SecretKey are the Pinata credentials.
	APIKey    string
	SecretKey string

	// Timeout bounds a single request. Defaults to DefaultPinataTimeout.
	Timeout time.Duration
}

// NewPinata creates a Pinata-backed store.
func NewPinata(cfg PinataConfig) (*Pinata, error) {
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("%w: missing pinata credentials", ErrUpload)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultPinataBaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultPinataTimeout
	}

	return &Pinata{
		baseURL:   baseURL,
		apiKey:    cfg.APIKey,
		secretKey: cfg.SecretKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type pinResponse struct {
	IpfsHash string `json:"IpfsHash"`
}

// PinJSON implements Store.
func (p *Pinata) PinJSON(ctx context.Context, name string, v any) (string, error) {
	payload := map[string]any{
		"pinataMetadata": map[string]any{"name": name},
		"pinataContent":  v,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: marshaling payload: %v", ErrUpload, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/pinning/pinJSONToIPFS", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: creating request: %v", ErrUpload, err)
	}
	req.Header.Set("Content-Type", "application/json")
	p.setAuth(req)

	return p.do(req)
}

// PinBytes implements Store.
func (p *Pinata) PinBytes(ctx context.Context, name string, data []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		return "", fmt.Errorf("%w: building form: %v", ErrUpload, err)
	}
	if _, err := fw.Write(data); err != nil {
		return "", fmt.Errorf("%w: building form: %v", ErrUpload, err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("%w: building form: %v", ErrUpload, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/pinning/pinFileToIPFS", &body)
	if err != nil {
		return "", fmt.Errorf("%w: creating request: %v", ErrUpload, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	p.setAuth(req)

	return p.do(req)
}

func (p *Pinata) setAuth(req *http.Request) {
	req.Header.Set("pinata_api_key", p.apiKey)
	req.Header.Set("pinata_secret_api_key", p.secretKey)
}

func (p *Pinata) do(req *http.Request) (string, error) {
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpload, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: pinata returned status %d: %s", ErrUpload, resp.StatusCode, string(msg))
	}

	var pr pinResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", ErrUpload, err)
	}

	if pr.IpfsHash == "" {
		return "", fmt.Errorf("%w: pinata returned an empty hash", ErrUpload)
	}

	return pr.IpfsHash, nil
}

// GatewayURL returns the public gateway URL for a CID.
func GatewayURL(cid string) string {
	return "https://gateway.pinata.cloud/ipfs/" + cid
}

var _ Store = (*Pinata)(nil)
