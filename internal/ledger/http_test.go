package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"anchorid/pkg/platform/sentinel"
)

func TestHTTPClientSubmit(t *testing.T) {
	t.Run("returns the gateway tx hash", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "/did", r.URL.Path)

			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Equal(t, "did:anchor:abc", body["id"])
			require.Equal(t, "0xhash", body["document_hash"])

			json.NewEncoder(w).Encode(txResponse{TxHash: "0xdeadbeef"})
		}))
		defer srv.Close()

		c := NewHTTPClient(srv.URL, time.Second)
		txHash, err := c.CreateDID(context.Background(), "did:anchor:abc", "0xhash")
		require.NoError(t, err)
		require.Equal(t, "0xdeadbeef", txHash)
	})

	t.Run("propagates gateway rejection", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			json.NewEncoder(w).Encode(txResponse{Error: "did already anchored"})
		}))
		defer srv.Close()

		c := NewHTTPClient(srv.URL, time.Second)
		_, err := c.CreateDID(context.Background(), "did:anchor:abc", "0xhash")
		require.Error(t, err)
		require.Contains(t, err.Error(), "did already anchored")
	})

	t.Run("transport failure is unavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		srv.Close()

		c := NewHTTPClient(srv.URL, time.Second)
		_, err := c.RegisterVC(context.Background(), "did:anchor:i", "did:anchor:s", "0xcred")
		require.ErrorIs(t, err, sentinel.ErrUnavailable)
	})
}

func TestHTTPClientQueries(t *testing.T) {
	t.Run("decodes vc status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/vc/status", r.URL.Path)
			require.Equal(t, "did:anchor:issuer", r.URL.Query().Get("issuer_did"))
			require.Equal(t, "0xcred", r.URL.Query().Get("hash"))
			json.NewEncoder(w).Encode(vcStatusResponse{Status: int(StatusRevoked)})
		}))
		defer srv.Close()

		c := NewHTTPClient(srv.URL, time.Second)
		status, err := c.GetVCStatus(context.Background(), "did:anchor:issuer", "0xcred")
		require.NoError(t, err)
		require.Equal(t, StatusRevoked, status)
	})

	t.Run("decodes did entry", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/did/did:anchor:abc", r.URL.Path)
			json.NewEncoder(w).Encode(DIDEntry{Hash: "0xhash", Owner: "did:anchor:abc"})
		}))
		defer srv.Close()

		c := NewHTTPClient(srv.URL, time.Second)
		entry, err := c.GetDID(context.Background(), "did:anchor:abc")
		require.NoError(t, err)
		require.Equal(t, "0xhash", entry.Hash)
	})

	t.Run("missing did is not found", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		c := NewHTTPClient(srv.URL, time.Second)
		_, err := c.GetDID(context.Background(), "did:anchor:missing")
		require.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("timeout is bounded by the configured deadline", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			time.Sleep(200 * time.Millisecond)
			json.NewEncoder(w).Encode(txResponse{TxHash: "0xlate"})
		}))
		defer srv.Close()

		c := NewHTTPClient(srv.URL, 20*time.Millisecond)
		_, err := c.CreateDID(context.Background(), "did:anchor:abc", "0xhash")
		require.ErrorIs(t, err, sentinel.ErrUnavailable)
	})
}
