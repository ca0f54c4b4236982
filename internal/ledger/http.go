package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"anchorid/pkg/platform/sentinel"
)

// HTTPClient talks to a ledger gateway that fronts the contract. The gateway
// waits for block confirmation before answering, so calls carry the
// configured timeout and can be slow.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient builds a gateway client. timeout bounds each call including
// confirmation latency.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type txResponse struct {
	TxHash string `json:"tx_hash"`
	Error  string `json:"error"`
}

type vcStatusResponse struct {
	Status int `json:"status"`
}

func (c *HTTPClient) CreateDID(ctx context.Context, id, documentHash string) (string, error) {
	return c.submit(ctx, "/did", map[string]string{
		"id":            id,
		"document_hash": documentHash,
	})
}

func (c *HTTPClient) UpdateDID(ctx context.Context, id, statusTag string) (string, error) {
	return c.submit(ctx, "/did/update", map[string]string{
		"id":  id,
		"tag": statusTag,
	})
}

func (c *HTTPClient) RegisterVC(ctx context.Context, issuerDid, subjectDid, hash string) (string, error) {
	return c.submit(ctx, "/vc", map[string]string{
		"issuer_did":  issuerDid,
		"subject_did": subjectDid,
		"hash":        hash,
	})
}

func (c *HTTPClient) RevokeVC(ctx context.Context, issuerDid, hash string) (string, error) {
	return c.submit(ctx, "/vc/revoke", map[string]string{
		"issuer_did": issuerDid,
		"hash":       hash,
	})
}

func (c *HTTPClient) GetVCStatus(ctx context.Context, issuerDid, hash string) (VCStatus, error) {
	q := url.Values{"issuer_did": {issuerDid}, "hash": {hash}}
	body, err := c.get(ctx, "/vc/status?"+q.Encode())
	if err != nil {
		return StatusUnregistered, err
	}
	var resp vcStatusResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return StatusUnregistered, fmt.Errorf("decode vc status: %w", err)
	}
	return VCStatus(resp.Status), nil
}

func (c *HTTPClient) GetDID(ctx context.Context, id string) (DIDEntry, error) {
	body, err := c.get(ctx, "/did/"+url.PathEscape(id))
	if err != nil {
		return DIDEntry{}, err
	}
	var entry DIDEntry
	if err := json.Unmarshal(body, &entry); err != nil {
		return DIDEntry{}, fmt.Errorf("decode did entry: %w", err)
	}
	return entry, nil
}

func (c *HTTPClient) submit(ctx context.Context, path string, payload map[string]string) (string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode ledger request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("build ledger request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ledger call %s: %w: %w", path, sentinel.ErrUnavailable, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read ledger response: %w", err)
	}

	var resp txResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode ledger response (status %d): %w", res.StatusCode, err)
	}
	if res.StatusCode != http.StatusOK {
		msg := resp.Error
		if msg == "" {
			msg = res.Status
		}
		return "", fmt.Errorf("ledger call %s rejected: %s", path, msg)
	}
	return resp.TxHash, nil
}

func (c *HTTPClient) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build ledger request: %w", err)
	}
	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ledger query %s: %w: %w", path, sentinel.ErrUnavailable, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read ledger response: %w", err)
	}
	if res.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("ledger query %s: %w", path, sentinel.ErrNotFound)
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ledger query %s failed: %s", path, res.Status)
	}
	return body, nil
}
