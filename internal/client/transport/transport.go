// Package transport performs the authenticated request/response exchange with
// the vault API and classifies every failure into an apierr.Kind.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/safedrive/internal/client/apierr"
	"github.com/atinyakov/safedrive/internal/models"
)

// MaxResponseLength bounds the size of a decoded response body.
const MaxResponseLength = 10 << 20

// DefaultTimeout applies when no http.Client is supplied.
const DefaultTimeout = 10 * time.Second

// TokenSource yields the bearer token of the active session, or "" when signed out.
type TokenSource interface {
	Token() string
}

// Client sends requests relative to a fixed base URL.
//
// The token source and the unauthorized handler are wired once, before the
// first request, and never change afterwards.
type Client struct {
	baseURL        string
	http           *http.Client
	tokens         TokenSource
	onUnauthorized func(token string)
	log            *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger. Tokens and bodies are never logged.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// New returns a Client for baseURL (for example "http://localhost:8080/api").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetTokenSource wires the source of bearer tokens.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.tokens = ts
}

// OnUnauthorized registers fn to be called with the token that was rejected
// whenever a bearer-authenticated request receives HTTP 401.
func (c *Client) OnUnauthorized(fn func(token string)) {
	c.onUnauthorized = fn
}

// Request describes one API call.
type Request struct {
	Method string
	// Path is relative to the base URL and starts with "/".
	Path  string
	Query url.Values
	// Body is JSON-encoded when non-nil.
	Body any
	// Public requests never carry the bearer token.
	Public bool
}

// Response is a successful, fully read response.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// Do executes req and decodes a JSON response into out, when out is non-nil.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	resp, err := c.Raw(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return apierr.New(apierr.KindServer, "invalid response", err)
	}
	return nil
}

// Raw executes req and returns the undecoded body.
func (c *Client) Raw(ctx context.Context, req Request) (*Response, error) {
	var body io.Reader
	contentType := ""
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, apierr.New(apierr.KindValidation, "cannot encode request", err)
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}
	httpReq, token, err := c.newRequest(ctx, req, body, contentType)
	if err != nil {
		return nil, err
	}
	return c.send(httpReq, token)
}

// Upload posts a multipart form with a single file field named "file".
func (c *Client) Upload(ctx context.Context, path, filename string, content io.Reader, out any) error {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", filename)
		if err == nil {
			_, err = io.Copy(part, content)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	httpReq, token, err := c.newRequest(ctx, Request{Method: http.MethodPost, Path: path}, pr, mw.FormDataContentType())
	if err != nil {
		pr.Close()
		return err
	}
	resp, err := c.send(httpReq, token)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return apierr.New(apierr.KindServer, "invalid response", err)
	}
	return nil
}

// Download streams the body of a GET request to w without the response size limit.
func (c *Client) Download(ctx context.Context, path string, w io.Writer) (int64, error) {
	httpReq, token, err := c.newRequest(ctx, Request{Method: http.MethodGet, Path: path}, nil, "")
	if err != nil {
		return 0, err
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return 0, apierr.FromTransport(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, c.failure(httpReq, resp, token)
	}
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, apierr.FromTransport(err)
	}
	return n, nil
}

func (c *Client) newRequest(ctx context.Context, req Request, body io.Reader, contentType string) (*http.Request, string, error) {
	u := c.baseURL + req.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u, body)
	if err != nil {
		return nil, "", apierr.New(apierr.KindValidation, fmt.Sprintf("error constructing request to %s", req.Path), err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	token := ""
	if !req.Public && c.tokens != nil {
		token = c.tokens.Token()
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	return httpReq, token, nil
}

func (c *Client) send(httpReq *http.Request, token string) (*Response, error) {
	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.log.Debug("request failed",
			zap.String("method", httpReq.Method),
			zap.String("path", httpReq.URL.Path),
			zap.Error(err))
		return nil, apierr.FromTransport(err)
	}
	defer resp.Body.Close()

	c.log.Debug("response received",
		zap.String("method", httpReq.Method),
		zap.String("path", httpReq.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.failure(httpReq, resp, token)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseLength))
	if err != nil {
		return nil, apierr.FromTransport(err)
	}
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	return &Response{Status: resp.StatusCode, ContentType: mediaType, Body: body}, nil
}

// failure classifies a non-2xx response and reports rejected tokens.
func (c *Client) failure(httpReq *http.Request, resp *http.Response, token string) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	message := ""
	var er models.ErrorResponse
	if json.Unmarshal(data, &er) == nil && er.Message != "" {
		message = er.Message
	} else if text := strings.TrimSpace(string(data)); text != "" && !strings.HasPrefix(text, "{") {
		message = text
	}
	apiErr := apierr.FromStatus(resp.StatusCode, message)

	if resp.StatusCode == http.StatusUnauthorized && token != "" && c.onUnauthorized != nil {
		c.log.Info("bearer token rejected", zap.String("path", httpReq.URL.Path))
		c.onUnauthorized(token)
	}
	return apiErr
}
