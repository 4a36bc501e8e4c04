// Package mailpilot is a Go client for the Mail Pilot HTTP API.
package mailpilot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds the configuration for the Mail Pilot client.
type Config struct {
	// BaseURL is the root URL of the Mail Pilot server.
	// Examples: "https://mail.example.com" or "https://mail.example.com/api/v1"
	// The "/api/v1" suffix is appended automatically if missing.
	BaseURL string

	// Token is the bearer token sent with every API call.
	Token string

	// RequestTimeout bounds ordinary calls. Default: 30 seconds
	RequestTimeout time.Duration

	// SendTimeout bounds a synchronous send, which lasts as long as the
	// batch. Default: 15 minutes
	SendTimeout time.Duration

	// HTTPClient is an optional custom HTTP client. Timeouts are applied
	// per request through the context.
	HTTPClient *http.Client
}

func (c *Config) defaults() {
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.SendTimeout == 0 {
		c.SendTimeout = 15 * time.Minute
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{}
	}
	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")
	if !strings.HasSuffix(c.BaseURL, "/api/v1") {
		c.BaseURL = c.BaseURL + "/api/v1"
	}
}

// Client is the Mail Pilot SDK client. It is safe for concurrent use.
type Client struct {
	cfg  Config
	root string
}

// NewClient creates a new Mail Pilot client with the given configuration.
func NewClient(cfg Config) *Client {
	cfg.defaults()
	return &Client{
		cfg:  cfg,
		root: strings.TrimSuffix(cfg.BaseURL, "/api/v1"),
	}
}

// Health reports server and dependency health. A degraded server answers
// 503 with a body, which is returned alongside the error.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.root+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("mailpilot: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mailpilot: request failed: %w", err)
	}
	defer resp.Body.Close()

	var h Health
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return nil, fmt.Errorf("mailpilot: failed to parse health: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return &h, fmt.Errorf("mailpilot: server is %s", h.Status)
	}
	return &h, nil
}

// --- Recipients ---

// ImportRecipients uploads a workbook and replaces the stored recipients.
// The file name extension selects the parser on the server.
func (c *Client) ImportRecipients(ctx context.Context, filename string, r io.Reader) (*ImportResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return nil, fmt.Errorf("mailpilot: failed to create form: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("mailpilot: failed to read file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("mailpilot: failed to encode form: %w", err)
	}

	var res ImportResult
	if err := c.do(ctx, c.cfg.RequestTimeout, http.MethodPost, "/recipients/import", mw.FormDataContentType(), &buf, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ListRecipients returns every stored recipient in import order
func (c *Client) ListRecipients(ctx context.Context) ([]Recipient, error) {
	var res recipientList
	if err := c.call(ctx, http.MethodGet, "/recipients", nil, &res); err != nil {
		return nil, err
	}
	return res.Recipients, nil
}

// GetRecipient returns one recipient by id
func (c *Client) GetRecipient(ctx context.Context, id string) (*Recipient, error) {
	var rec Recipient
	if err := c.call(ctx, http.MethodGet, "/recipients/"+url.PathEscape(id), nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Preview renders subject and body for a recipient. An empty recipientID
// returns the templates unchanged.
func (c *Client) Preview(ctx context.Context, recipientID, subject, body string) (*Preview, error) {
	var p Preview
	req := previewRequest{RecipientID: recipientID, Subject: subject, Body: body}
	if err := c.call(ctx, http.MethodPost, "/preview", req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// --- Sending ---

// ConfirmSend classifies the selected recipients without sending.
// No ids means every recipient.
func (c *Client) ConfirmSend(ctx context.Context, recipientIDs ...string) (*Counts, error) {
	var counts Counts
	if err := c.call(ctx, http.MethodPost, "/send/confirm", confirmRequest{RecipientIDs: recipientIDs}, &counts); err != nil {
		return nil, err
	}
	return &counts, nil
}

// Send runs a batch and blocks until the server reports its summary
func (c *Client) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("mailpilot: failed to marshal request: %w", err)
	}

	var res SendResult
	if err := c.do(ctx, c.cfg.SendTimeout, http.MethodPost, "/send", "application/json", bytes.NewReader(data), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Progress returns the latest snapshot of the current or last batch
func (c *Client) Progress(ctx context.Context) (*SendProgress, error) {
	var p SendProgress
	if err := c.call(ctx, http.MethodGet, "/send/progress", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// CancelSend asks the server to stop the running batch
func (c *Client) CancelSend(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, "/send/cancel", nil, nil)
}

// --- History ---

// History returns the most recent delivery log entries, newest first.
// A limit of zero uses the server default.
func (c *Client) History(ctx context.Context, limit int) ([]DeliveryLog, error) {
	path := "/history"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}

	var res historyList
	if err := c.call(ctx, http.MethodGet, path, nil, &res); err != nil {
		return nil, err
	}
	return res.Entries, nil
}

// HistoryStats returns per-status delivery counts
func (c *Client) HistoryStats(ctx context.Context) (*DeliveryStats, error) {
	var stats DeliveryStats
	if err := c.call(ctx, http.MethodGet, "/history/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// --- Settings ---

// GetSMTPSettings returns the saved transport settings without password
func (c *Client) GetSMTPSettings(ctx context.Context) (*SMTPSettings, error) {
	var s SMTPSettings
	if err := c.call(ctx, http.MethodGet, "/settings/smtp", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// SaveSMTPSettings replaces the transport settings
func (c *Client) SaveSMTPSettings(ctx context.Context, req SaveSettingsRequest) (*SMTPSettings, error) {
	var s SMTPSettings
	if err := c.call(ctx, http.MethodPut, "/settings/smtp", req, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// TestSMTPSettings sends a test message with the saved settings. password
// is only needed when none is saved.
func (c *Client) TestSMTPSettings(ctx context.Context, password string) (*TestResult, error) {
	var res TestResult
	if err := c.call(ctx, http.MethodPost, "/settings/smtp/test", testRequest{Password: password}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// --- Messages ---

// GenerateMessage drafts a confirmation message body
func (c *Client) GenerateMessage(ctx context.Context, req GenerateRequest) (string, error) {
	var res generateResponse
	if err := c.call(ctx, http.MethodPost, "/messages/generate", req, &res); err != nil {
		return "", err
	}
	return res.Message, nil
}

// call sends a JSON request under the default timeout
func (c *Client) call(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	contentType := ""
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("mailpilot: failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}
	return c.do(ctx, c.cfg.RequestTimeout, method, path, contentType, body, out)
}

func (c *Client) do(ctx context.Context, timeout time.Duration, method, path, contentType string, body io.Reader, out interface{}) error {
	if c.cfg.Token == "" {
		return ErrNoToken
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("mailpilot: failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("mailpilot: request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("mailpilot: failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return parseAPIError(resp.StatusCode, data)
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("mailpilot: failed to parse response: %w", err)
	}
	return nil
}
