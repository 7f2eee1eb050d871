// Package client talks to the file storage and article submission
// endpoints of a pubdraft server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultBaseURL is the API root of a local server.
const DefaultBaseURL = "http://localhost:3000/api"

// APIError is a failure reported by the server.
type APIError struct {
	Status int
	Code   string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api: status %d", e.Status)
	}
	return fmt.Sprintf("api: %s (status %d)", e.Code, e.Status)
}

// envelope is the response wrapper every endpoint uses.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

type errorData struct {
	Error string `json:"error"`
}

// Client calls the server API.
type Client struct {
	base string
	http *http.Client
	log  zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New returns a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: 2 * time.Minute},
		log:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Upload sends an image to the file storage endpoint and returns its URL.
func (c *Client) Upload(ctx context.Context, name, contentType string, data []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	var out struct {
		URL string `json:"url"`
	}
	if err := c.do(ctx, http.MethodPost, "/uploadFile", mw.FormDataContentType(), &body, &out); err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	return out.URL, nil
}

// Submission is the server's answer to an accepted article.
type Submission struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Submit sends a title and serialized document for review.
func (c *Client) Submit(ctx context.Context, title, content string) (Submission, error) {
	payload, err := json.Marshal(map[string]string{"title": title, "content": content})
	if err != nil {
		return Submission{}, err
	}
	var out Submission
	if err := c.do(ctx, http.MethodPost, "/article/submit", "application/json", bytes.NewReader(payload), &out); err != nil {
		return Submission{}, fmt.Errorf("submit: %w", err)
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	c.log.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).Msg("api call")

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= 400 {
			return &APIError{Status: resp.StatusCode}
		}
		return fmt.Errorf("decode response: %w", err)
	}
	if !env.Success || resp.StatusCode >= 400 {
		var ed errorData
		_ = json.Unmarshal(env.Data, &ed)
		return &APIError{Status: resp.StatusCode, Code: ed.Error}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

// Code extracts the API error code from err, if any.
func Code(err error) string {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}
