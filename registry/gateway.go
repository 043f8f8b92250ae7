package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultGatewayTimeout bounds a single gateway request. Confirmation
	// of a write can take a while on a congested chain.
	DefaultGatewayTimeout = 150 * time.Second

	// DefaultWriteInterval throttles Record calls so the gateway's signer
	// does not race its own nonce.
	DefaultWriteInterval = 2 * time.Second
)

// Gateway is a Registry backed by a chain gateway service. The gateway owns
// the signing key and exposes plain JSON endpoints; this client only ever
// sees confirmation references.
type Gateway struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// GatewayConfig holds configuration for the gateway client.
type GatewayConfig struct {
	// BaseURL is the gateway service URL.
	BaseURL string

	// Timeout bounds a single request. Defaults to DefaultGatewayTimeout.
	Timeout time.Duration

	// WriteInterval throttles Record calls. Defaults to
	// DefaultWriteInterval; negative disables throttling.
	WriteInterval time.Duration
}

// NewGateway creates a chain gateway client.
func NewGateway(cfg GatewayConfig) (*Gateway, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("registry: gateway base URL required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultGatewayTimeout
	}

	interval := cfg.WriteInterval
	if interval == 0 {
		interval = DefaultWriteInterval
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if interval > 0 {
		limiter = rate.NewLimiter(rate.Every(interval), 1)
	}

	return &Gateway{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: limiter,
	}, nil
}

type storeRequest struct {
	Identity string `json:"identity"`
	CID      string `json:"cid"`
}

type storeResponse struct {
	TxHash string `json:"tx_hash"`
	Error  string `json:"error,omitempty"`
}

type lookupResponse struct {
	CID    string `json:"cid"`
	TxHash string `json:"tx_hash,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Record implements Registry. It blocks until the gateway confirms the
// transaction or ctx expires.
func (g *Gateway) Record(ctx context.Context, identity, cid string) (Entry, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return Entry{}, err
	}

	body, err := json.Marshal(storeRequest{Identity: identity, CID: cid})
	if err != nil {
		return Entry{}, fmt.Errorf("registry: marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/store", bytes.NewReader(body))
	if err != nil {
		return Entry{}, fmt.Errorf("registry: creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return Entry{}, fmt.Errorf("registry: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		return Entry{}, fmt.Errorf("%w: %s", ErrAlreadyRecorded, identity)
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return Entry{}, fmt.Errorf("registry: gateway returned status %d: %s", resp.StatusCode, string(msg))
	}

	var sr storeResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return Entry{}, fmt.Errorf("registry: decoding response: %w", err)
	}
	if sr.Error != "" {
		return Entry{}, fmt.Errorf("registry: gateway: %s", sr.Error)
	}
	if sr.TxHash == "" {
		return Entry{}, fmt.Errorf("registry: gateway confirmed without a transaction hash")
	}

	return Entry{Identity: identity, CID: cid, Ref: sr.TxHash}, nil
}

// Lookup implements Registry.
func (g *Gateway) Lookup(ctx context.Context, identity string) (Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/hash/"+url.PathEscape(identity), nil)
	if err != nil {
		return Entry{}, fmt.Errorf("registry: creating request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return Entry{}, fmt.Errorf("registry: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, identity)
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return Entry{}, fmt.Errorf("registry: gateway returned status %d: %s", resp.StatusCode, string(msg))
	}

	var lr lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return Entry{}, fmt.Errorf("registry: decoding response: %w", err)
	}
	if lr.CID == "" {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, identity)
	}

	return Entry{Identity: identity, CID: lr.CID, Ref: lr.TxHash}, nil
}

var _ Registry = (*Gateway)(nil)
