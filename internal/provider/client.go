// Package provider talks to the invoice provider's REST API. The
// connection uses mutual TLS and an OAuth client-credentials token that
// is cached and refreshed five minutes before it expires.
package provider

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"gestor/internal/core"
	"gestor/internal/log"
)

const (
	tokenCacheKey = "access_token"
	// Refresh this long before the provider says the token expires.
	tokenRefreshMargin = 5 * time.Minute
)

// Config carries the provider connection settings.
type Config struct {
	BaseURL  string
	CertFile string
	KeyFile  string
	CAFile   string
	ClientID string
	Secret   string
}

// Invoice is a provider-side boleto.
type Invoice struct {
	ID          string `json:"id"`
	Document    string `json:"customerDocument"`
	Amount      string `json:"amount"`
	DueDate     string `json:"dueDate"`
	Status      string `json:"status"`
	Reference   string `json:"reference"`
	BarcodeLine string `json:"barcodeLine"`
}

// AmountCents parses the provider's decimal amount.
func (i Invoice) AmountCents() (int64, error) {
	return core.ParseDecimalToCents(i.Amount)
}

// Client is the invoice-provider API client.
type Client struct {
	baseURL    string
	clientID   string
	secret     string
	httpClient *http.Client
	tokens     *gocache.Cache
	logger     *log.Logger
}

// New builds a client. Cert and key files enable mutual TLS; without
// them the client speaks plain TLS (or HTTP against test servers).
func New(cfg Config, logger *log.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("provider base URL is required")
	}

	transport := &http.Transport{}
	if cfg.CertFile != "" && cfg.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client certificate: %w", err)
		}
		tlsCfg := &tls.Config{Certificates: []tls.Certificate{cert}}
		if cfg.CAFile != "" {
			ca, err := os.ReadFile(cfg.CAFile)
			if err != nil {
				return nil, fmt.Errorf("read CA bundle: %w", err)
			}
			pool := x509.NewCertPool()
			if !pool.AppendCertsFromPEM(ca) {
				return nil, fmt.Errorf("CA bundle %s contains no certificates", cfg.CAFile)
			}
			tlsCfg.RootCAs = pool
		}
		transport.TLSClientConfig = tlsCfg
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		clientID:   cfg.ClientID,
		secret:     cfg.Secret,
		httpClient: &http.Client{Transport: transport, Timeout: 30 * time.Second},
		tokens:     gocache.New(gocache.NoExpiration, 10*time.Minute),
		logger:     logger.WithComponent(log.ComponentProvider),
	}, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

func (c *Client) token(ctx context.Context) (string, error) {
	if cached, ok := c.tokens.Get(tokenCacheKey); ok {
		return cached.(string), nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.secret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request token: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned an empty token")
	}

	ttl := time.Duration(tr.ExpiresIn)*time.Second - tokenRefreshMargin
	if ttl <= 0 {
		ttl = time.Duration(tr.ExpiresIn) * time.Second / 2
	}
	c.tokens.Set(tokenCacheKey, tr.AccessToken, ttl)
	c.logger.Debug("token refreshed", "expires_in_s", tr.ExpiresIn)
	return tr.AccessToken, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	tok, err := c.token(ctx)
	if err != nil {
		return nil, err
	}
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider request %s: %w", path, err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		// Token revoked server-side; drop the cached one so the next
		// call re-authenticates.
		c.tokens.Delete(tokenCacheKey)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("provider returned %d for %s: %s", resp.StatusCode, path, bytes.TrimSpace(body))
	}
	return resp, nil
}

// SearchInvoices lists the invoices of a provider account, optionally
// narrowed to a reference period ("2006-01").
func (c *Client) SearchInvoices(ctx context.Context, providerAccountID, reference string) ([]Invoice, error) {
	query := url.Values{}
	query.Set("account", providerAccountID)
	if reference != "" {
		query.Set("reference", reference)
	}
	resp, err := c.get(ctx, "/v1/invoices", query)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Invoices []Invoice `json:"invoices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode invoice list: %w", err)
	}
	return payload.Invoices, nil
}

// GetInvoice fetches a single invoice.
func (c *Client) GetInvoice(ctx context.Context, invoiceID string) (Invoice, error) {
	resp, err := c.get(ctx, "/v1/invoices/"+url.PathEscape(invoiceID), nil)
	if err != nil {
		return Invoice{}, err
	}
	defer resp.Body.Close()

	var inv Invoice
	if err := json.NewDecoder(resp.Body).Decode(&inv); err != nil {
		return Invoice{}, fmt.Errorf("decode invoice: %w", err)
	}
	return inv, nil
}

// DownloadPDF fetches the printable boleto document.
func (c *Client) DownloadPDF(ctx context.Context, invoiceID string) ([]byte, error) {
	resp, err := c.get(ctx, "/v1/invoices/"+url.PathEscape(invoiceID)+"/pdf", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	pdf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read pdf body: %w", err)
	}
	if len(pdf) == 0 {
		return nil, fmt.Errorf("provider returned an empty pdf for invoice %s", invoiceID)
	}
	return pdf, nil
}

// MapStatus converts a provider status string to the local enum. Unknown
// strings map to BoletoUnknown rather than failing the sync.
func MapStatus(s string) core.BoletoStatus {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "OPEN":
		return core.BoletoOpen
	case "LATE", "OVERDUE":
		return core.BoletoOverdue
	case "PAID":
		return core.BoletoPaid
	case "CANCELLED":
		return core.BoletoCancelled
	default:
		return core.BoletoUnknown
	}
}
