// Package backend is the client for the CRM REST API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/matheus3301/crmlive/internal/crm"
	"go.uber.org/zap"
)

// APIError is returned for non-2xx responses.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("backend: %s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// Client calls the backend on behalf of one operator.
type Client struct {
	base     *url.URL
	operator string
	http     *http.Client
	logger   *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a client for baseURL. operatorID is sent as the bearer token.
func New(baseURL, operatorID string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("backend: base URL is required")
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("backend: parse base URL: %w", err)
	}
	c := &Client{
		base:     u,
		operator: operatorID,
		http:     &http.Client{Timeout: 30 * time.Second},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ListClients fetches the client directory.
func (c *Client) ListClients(ctx context.Context) ([]crm.Client, error) {
	var out []crm.Client
	if err := c.do(ctx, http.MethodGet, "/api/clients", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListMail fetches every mail message of a client.
func (c *Client) ListMail(ctx context.Context, clientID crm.ID) ([]crm.MailMessage, error) {
	var out []crm.MailMessage
	if err := c.do(ctx, http.MethodGet, "/api/mail/"+url.PathEscape(clientID.String()), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SendMail creates a mail message and returns the stored record.
func (c *Client) SendMail(ctx context.Context, m crm.MailMessage) (crm.MailMessage, error) {
	var out crm.MailMessage
	if err := c.do(ctx, http.MethodPost, "/api/mail", m, &out); err != nil {
		return crm.MailMessage{}, err
	}
	return out, nil
}

// GetClientMessages fetches a client's SMS history.
func (c *Client) GetClientMessages(ctx context.Context, clientID crm.ID) (crm.ClientMessages, error) {
	var out crm.ClientMessages
	if err := c.do(ctx, http.MethodGet, "/api/messages/"+url.PathEscape(clientID.String()), nil, &out); err != nil {
		return crm.ClientMessages{}, err
	}
	if out.ClientID == "" {
		out.ClientID = clientID
	}
	return out, nil
}

// SendRequest is the body of POST /api/messages.
type SendRequest struct {
	ClientID   crm.ID `json:"client_id"`
	Content    string `json:"content"`
	FromNumber string `json:"from_number"`
}

// SendMessage asks the backend to send an SMS. The returned record is the
// backend's; the live feed delivers it to open conversations.
func (c *Client) SendMessage(ctx context.Context, req SendRequest) (crm.Message, error) {
	var out crm.Message
	if err := c.do(ctx, http.MethodPost, "/api/messages", req, &out); err != nil {
		return crm.Message{}, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("backend: encode %s: %w", path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, body)
	if err != nil {
		return fmt.Errorf("backend: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.operator != "" {
		req.Header.Set("Authorization", "Bearer "+c.operator)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("backend: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("backend request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("backend: decode %s: %w", path, err)
	}
	return nil
}
