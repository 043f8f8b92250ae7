package anchor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryPinIsContentAddressed(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	cid1, err := m.PinJSON(ctx, "doc.json", map[string]string{"title": "a"})
	require.NoError(t, err)
	require.NotEmpty(t, cid1)

	cid2, err := m.PinJSON(ctx, "doc.json", map[string]string{"title": "a"})
	require.NoError(t, err)
	assert.Equal(t, cid1, cid2)
	assert.Equal(t, 1, m.Len())

	cid3, err := m.PinJSON(ctx, "doc.json", map[string]string{"title": "b"})
	require.NoError(t, err)
	assert.NotEqual(t, cid1, cid3)

	data, ok := m.Get(cid1)
	require.True(t, ok)
	assert.JSONEq(t, `{"title":"a"}`, string(data))
}

func TestMemoryFailWith(t *testing.T) {
	m := NewMemory()
	m.FailWith = assert.AnError

	_, err := m.PinBytes(context.Background(), "x", []byte("data"))
	assert.ErrorIs(t, err, ErrUpload)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestPinataPinJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pinning/pinJSONToIPFS", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("pinata_api_key"))
		assert.Equal(t, "secret", r.Header.Get("pinata_secret_api_key"))

		var payload struct {
			PinataMetadata map[string]any `json:"pinataMetadata"`
			PinataContent  map[string]any `json:"pinataContent"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "patent.json", payload.PinataMetadata["name"])
		assert.Equal(t, "Widget", payload.PinataContent["title"])

		_ = json.NewEncoder(w).Encode(map[string]string{"IpfsHash": "QmTest123"})
	}))
	defer srv.Close()

	p, err := NewPinata(PinataConfig{BaseURL: srv.URL, APIKey: "key", SecretKey: "secret"})
	require.NoError(t, err)

	cid, err := p.PinJSON(context.Background(), "patent.json", map[string]string{"title": "Widget"})
	require.NoError(t, err)
	assert.Equal(t, "QmTest123", cid)
}

func TestPinataErrors(t *testing.T) {
	t.Run("MissingCredentials", func(t *testing.T) {
		_, err := NewPinata(PinataConfig{})
		assert.ErrorIs(t, err, ErrUpload)
	})

	t.Run("ServerError", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
		}))
		defer srv.Close()

		p, err := NewPinata(PinataConfig{BaseURL: srv.URL, APIKey: "k", SecretKey: "s"})
		require.NoError(t, err)

		_, err = p.PinJSON(context.Background(), "x", map[string]string{})
		assert.ErrorIs(t, err, ErrUpload)
	})

	t.Run("EmptyHash", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]string{"IpfsHash": ""})
		}))
		defer srv.Close()

		p, err := NewPinata(PinataConfig{BaseURL: srv.URL, APIKey: "k", SecretKey: "s"})
		require.NoError(t, err)

		_, err = p.PinJSON(context.Background(), "x", map[string]string{})
		assert.ErrorIs(t, err, ErrUpload)
	})
}

func TestGatewayURL(t *testing.T) {
	assert.Equal(t, "https://gateway.pinata.cloud/ipfs/QmX", GatewayURL("QmX"))
}
