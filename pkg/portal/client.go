// Package portal is the HTTP client for the variant-prediction portal API.
//
// The portal is an external collaborator: request and response shapes are
// fixed by the server. The client adds request ids, timeouts and typed
// errors, and never retries.
package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultTimeout bounds each request when Config.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// maskErrorPrefix marks a failed mask lookup in a text body.
const maskErrorPrefix = "ERROR"

// Config configures a Client.
type Config struct {
	// BaseURL is the API root, e.g. http://host/lunaris/predictor.
	BaseURL string

	// Timeout bounds each non-upload request. Uploads are bounded only by ctx.
	Timeout time.Duration

	// HTTPClient overrides the transport. Nil uses a default client.
	HTTPClient *http.Client

	// Logger receives request-level debug logs. Nil disables logging.
	Logger *zap.Logger
}

// Client calls the portal endpoints. It is safe for concurrent use.
type Client struct {
	base    *url.URL
	http    *http.Client
	timeout time.Duration
	logger  *zap.Logger
}

// New creates a client for cfg.BaseURL.
func New(cfg Config) (*Client, error) {
	raw := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if raw == "" {
		return nil, fmt.Errorf("portal: base URL is required")
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("portal: invalid base URL %q: %w", raw, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("portal: base URL must be http or https: %q", raw)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{base: base, http: hc, timeout: timeout, logger: logger}, nil
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// endpoint joins escaped path segments onto the base URL.
func (c *Client) endpoint(segments ...string) string {
	u := *c.base
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		parts = append(parts, url.PathEscape(s))
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.Join(parts, "/")
	u.RawPath = ""
	return u.String()
}

// ResultURL is the download location of a job's result file.
func (c *Client) ResultURL(jobID string) string {
	return c.endpoint("results", jobID+".tsv")
}

// GetSession fetches GET /session/{id}.
func (c *Client) GetSession(ctx context.Context, sessionID string) (*SessionResponse, error) {
	var out SessionResponse
	if err := c.getJSON(ctx, "session", c.endpoint("session", sessionID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetSchema fetches GET /schema.
func (c *Client) GetSchema(ctx context.Context) (*Schema, error) {
	var out Schema
	if err := c.getJSON(ctx, "schema", c.endpoint("schema"), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListMasks fetches GET /masks/list.
func (c *Client) ListMasks(ctx context.Context) ([]string, error) {
	var out []string
	if err := c.getJSON(ctx, "masks", c.endpoint("masks", "list"), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetMask fetches the filter body of a named mask.
//
// A text body beginning with "ERROR" is returned as a *MaskError.
func (c *Client) GetMask(ctx context.Context, name string) (string, error) {
	body, err := c.getText(ctx, "mask", c.endpoint("masks", name))
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(body, maskErrorPrefix) {
		return "", &MaskError{Name: name, Message: strings.TrimSpace(body)}
	}
	return body, nil
}

// GetStatus fetches GET /status/{id}.
func (c *Client) GetStatus(ctx context.Context, jobID string) (*Status, error) {
	var out Status
	if err := c.getJSON(ctx, "status", c.endpoint("status", jobID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DownloadResult opens GET /results/{id}.tsv. The caller closes the body.
// The returned length is -1 when the server does not announce one.
func (c *Client) DownloadResult(ctx context.Context, jobID string) (io.ReadCloser, int64, error) {
	u := c.ResultURL(jobID)
	resp, err := c.do(ctx, "results", http.MethodGet, u, nil, "")
	if err != nil {
		return nil, 0, err
	}
	return resp.Body, resp.ContentLength, nil
}

// Upload posts one job as multipart/form-data and returns the server-assigned
// job id (the trimmed response body).
//
// The input file is streamed; it is not buffered in memory.
func (c *Client) Upload(ctx context.Context, req UploadRequest) (string, error) {
	if req.Open == nil {
		return "", fmt.Errorf("portal upload: input file is required")
	}
	body, err := req.Open()
	if err != nil {
		return "", fmt.Errorf("portal upload: open %s: %w", req.FileName, err)
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		defer func() { _ = body.Close() }()
		pw.CloseWithError(writeUploadForm(mw, req, body))
	}()

	u := c.endpoint("upload")
	resp, err := c.do(ctx, "upload", http.MethodPost, u, pr, mw.FormDataContentType())
	if err != nil {
		_ = pr.CloseWithError(err)
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &RequestError{Op: "upload", URL: u, Err: err}
	}
	id := strings.TrimSpace(string(b))
	if id == "" {
		return "", &RequestError{Op: "upload", URL: u, Err: fmt.Errorf("empty job id in response")}
	}
	return id, nil
}

// writeUploadForm writes the fields in the order the portal's form uses:
// filter, inputFile, format, session, hg, email.
func writeUploadForm(mw *multipart.Writer, req UploadRequest, file io.Reader) error {
	if err := mw.WriteField("filter", req.Filter); err != nil {
		return err
	}
	fw, err := mw.CreateFormFile("inputFile", req.FileName)
	if err != nil {
		return err
	}
	if _, err := io.Copy(fw, file); err != nil {
		return err
	}
	if err := mw.WriteField("format", req.Format); err != nil {
		return err
	}
	if err := mw.WriteField("session", req.Session); err != nil {
		return err
	}
	if err := mw.WriteField("hg", req.Genome); err != nil {
		return err
	}
	if req.Email != "" {
		if err := mw.WriteField("email", req.Email); err != nil {
			return err
		}
	}
	return mw.Close()
}

func (c *Client) getJSON(ctx context.Context, op, u string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.do(ctx, op, http.MethodGet, u, nil, "")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &RequestError{Op: op, URL: u, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (c *Client) getText(ctx context.Context, op, u string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.do(ctx, op, http.MethodGet, u, nil, "")
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &RequestError{Op: op, URL: u, Err: err}
	}
	return string(b), nil
}

// do sends a request and converts transport failures and non-2xx responses
// into typed errors. On success the caller owns resp.Body.
func (c *Client) do(ctx context.Context, op, method, u string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, &RequestError{Op: op, URL: u, Err: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	requestID := uuid.New().String()
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("Portal request failed",
			zap.String("op", op),
			zap.String("url", u),
			zap.String("request_id", requestID),
			zap.Error(err))
		return nil, &RequestError{Op: op, URL: u, Err: err}
	}

	c.logger.Debug("Portal request",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("url", u),
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		_ = resp.Body.Close()
		return nil, &HTTPError{
			Op:         op,
			URL:        u,
			StatusCode: resp.StatusCode,
			StatusText: reasonPhrase(resp.Status, resp.StatusCode),
		}
	}
	return resp, nil
}
