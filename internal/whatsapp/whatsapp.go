// Package whatsapp sends messages through the firm's WhatsApp gateway.
// The gateway occasionally answers 502 while its session reconnects, so
// sends retry a few times before giving up.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"gestor/internal/log"
)

const (
	retryAttempts = 3
	retryDelay    = time.Second
)

// Client talks to the WhatsApp gateway.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *log.Logger
}

func New(baseURL, apiKey string, logger *log.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger.WithComponent(log.ComponentWhatsApp),
	}
}

// NormalizePhone reduces a Brazilian phone to the gateway's 13-digit
// form: country code 55, two-digit DDD, nine-digit number. Returns an
// error when no valid number can be derived.
func NormalizePhone(raw string) (string, error) {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()

	// Strip an international prefix so "55" is re-added uniformly.
	d = strings.TrimPrefix(d, "0")
	if strings.HasPrefix(d, "55") && len(d) >= 12 {
		d = d[2:]
	}

	switch len(d) {
	case 11: // DDD + 9-digit mobile
		return "55" + d, nil
	case 10: // DDD + 8-digit number: insert the mobile 9
		return "55" + d[:2] + "9" + d[2:], nil
	default:
		return "", fmt.Errorf("phone %q has %d significant digits, want 10 or 11", raw, len(d))
	}
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	backoff := retry.WithMaxRetries(retryAttempts-1, retry.NewConstant(retryDelay))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Api-Key", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("gateway request %s: %w", path, err))
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusBadGateway {
			// Session reconnect window.
			c.logger.Warn("gateway answered 502, retrying", log.FieldPath, path)
			return retry.RetryableError(fmt.Errorf("gateway returned 502 for %s", path))
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return fmt.Errorf("gateway returned %d for %s: %s", resp.StatusCode, path, bytes.TrimSpace(msg))
		}
		return nil
	})
}

// SendText delivers a plain text message.
func (c *Client) SendText(ctx context.Context, phone, text string) error {
	normalized, err := NormalizePhone(phone)
	if err != nil {
		return err
	}
	return c.post(ctx, "/message/text", map[string]string{
		"phone": normalized,
		"text":  text,
	})
}

// SendDocument delivers a document (the boleto PDF) with a caption.
func (c *Client) SendDocument(ctx context.Context, phone, filename string, document []byte, caption string) error {
	normalized, err := NormalizePhone(phone)
	if err != nil {
		return err
	}
	return c.post(ctx, "/message/document", map[string]string{
		"phone":    normalized,
		"filename": filename,
		"document": base64.StdEncoding.EncodeToString(document),
		"caption":  caption,
	})
}

// TestConnection checks the gateway session state.
func (c *Client) TestConnection(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status", nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway status: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway status returned %d", resp.StatusCode)
	}
	return nil
}
