// Package relay talks to a running voice-conversion inference server.
//
// The server exposes two endpoints: POST /upload_model loads a checkpoint
// from a path on the server's filesystem, and POST /convert_sound converts
// a WAV clip with the loaded model. Client wraps both and adds helpers for
// converting local audio files.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Endpoints served by the inference server.
const (
	UploadModelPath  = "/upload_model"
	ConvertSoundPath = "/convert_sound"
)

// Defaults used by the web UI.
const (
	DefaultHost = "127.0.0.1"
	DefaultPort = "5001"
)

// RequestIDHeader carries a per-request id for correlating client and
// server logs.
const RequestIDHeader = "X-Request-Id"

// StatusError is returned when the server answers with a non-2xx status.
// Body holds the response text, which is the server's error message.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("relay: server returned %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("relay: server returned %d: %s", e.Code, e.Body)
}

// ConvertParams is the JSON document sent with each conversion.
type ConvertParams struct {
	SpeakerID int `json:"speaker_id"`
}

// Client calls one inference server. It is safe for concurrent use.
type Client struct {
	host    string
	port    string
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds every request. The default is no timeout; use the
// request context for per-call deadlines.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.http
		hc.Timeout = d
		c.http = &hc
	}
}

// WithLogger sets the logger used for request logs.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient returns a Client for the server at host:port.
func NewClient(host, port string, opts ...Option) *Client {
	if host == "" {
		host = DefaultHost
	}
	if port == "" {
		port = DefaultPort
	}
	c := &Client{
		host:    host,
		port:    port,
		baseURL: "http://" + net.JoinHostPort(host, port),
		http:    &http.Client{},
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Addr returns host:port.
func (c *Client) Addr() string { return net.JoinHostPort(c.host, c.port) }

// BaseURL returns the server's base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// UploadModel asks the server to load the checkpoint at modelPath, a path
// on the server's filesystem. It returns the server's response text.
func (c *Client) UploadModel(ctx context.Context, modelPath string) (string, error) {
	body, err := json.Marshal(map[string]string{"rvc_model_file": modelPath})
	if err != nil {
		return "", fmt.Errorf("relay: marshal upload request: %w", err)
	}
	resp, err := c.post(ctx, UploadModelPath, "application/json", body)
	if err != nil {
		return "", err
	}
	return string(resp), nil
}

// ConvertSound sends a WAV clip for conversion and returns the converted
// WAV bytes.
func (c *Client) ConvertSound(ctx context.Context, wav []byte, params ConvertParams) ([]byte, error) {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("relay: marshal params: %w", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, part := range []struct {
		field string
		data  []byte
	}{
		{"input_wav", wav},
		{"params", paramsJSON},
	} {
		fw, err := mw.CreateFormFile(part.field, part.field)
		if err != nil {
			return nil, fmt.Errorf("relay: create form file %s: %w", part.field, err)
		}
		if _, err := fw.Write(part.data); err != nil {
			return nil, fmt.Errorf("relay: write form file %s: %w", part.field, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("relay: close multipart writer: %w", err)
	}

	return c.post(ctx, ConvertSoundPath, mw.FormDataContentType(), body.Bytes())
}

func (c *Client) post(ctx context.Context, path, contentType string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("relay: create %s request: %w", path, err)
	}
	id := uuid.NewString()
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(RequestIDHeader, id)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("relay: request failed", "path", path, "request_id", id, "error", err)
		return nil, fmt.Errorf("relay: POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("relay: read %s response: %w", path, err)
	}
	c.logger.Debug("relay: request",
		"path", path,
		"request_id", id,
		"status", resp.StatusCode,
		"bytes", len(data),
		"elapsed", time.Since(start),
	)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}

// WaitReady polls until the server accepts TCP connections or ctx is done.
func (c *Client) WaitReady(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	var d net.Dialer
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		conn, err := d.DialContext(ctx, "tcp", c.Addr())
		if err == nil {
			conn.Close()
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("relay: wait for %s: %w", c.Addr(), ctx.Err())
		case <-ticker.C:
		}
	}
}
