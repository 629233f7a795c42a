package mhub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	// DefaultUserAgent is sent with every request. Some firmware answers
	// unknown agents with an HTML error page.
	DefaultUserAgent = "curl/8.0"

	maxBodySize    = 1 << 20
	previewSize    = 400
	acceptHeader   = "application/json"
	junkCharacters = "\ufeff\x00 \t\r\n"
)

// Client issues GET requests against one hub.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Client struct {
	host       string
	httpClient *http.Client
	userAgent  string
	logger     Logger
}

// ClientOptions configures a Client. Zero values select defaults.
type ClientOptions struct {
	// HTTPClient performs the requests. Timeouts come from the request
	// context, so the client itself should not set one.
	HTTPClient *http.Client
	UserAgent  string
	Logger     Logger
}

// NewClient returns a Client for host (an address or hostname, optionally
// with a port).
func NewClient(host string, opts ClientOptions) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Client{
		host:       strings.TrimSpace(host),
		httpClient: httpClient,
		userAgent:  userAgent,
		logger:     loggerOrNoop(opts.Logger),
	}
}

// Host returns the hub address requests are sent to.
func (c *Client) Host() string {
	return c.host
}

// Get sends GET http://{host}{path} and returns the status and body.
// Redirects are followed. Transport failures wrap ErrUnreachable; any
// status is returned without being judged.
func (c *Client) Get(ctx context.Context, path string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+c.host+path, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("building request for %s: %w", path, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", acceptHeader)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: GET %s: %w", ErrUnreachable, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("%w: reading %s: %w", ErrUnreachable, path, err)
	}
	return resp.StatusCode, body, nil
}

// Fetch GETs path and decodes the body as a JSON object regardless of the
// declared content type. A non-2xx status wraps ErrHTTPStatus. A body that
// cannot be decoded is logged and yields an empty Document with a nil error.
func (c *Client) Fetch(ctx context.Context, path string) (Document, error) {
	status, body, err := c.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, fmt.Errorf("%w: GET %s returned %d", ErrHTTPStatus, path, status)
	}

	doc, err := DecodeDocument(body)
	if err != nil {
		c.logger.Warn("undecodable response from hub",
			"host", c.host,
			"path", path,
			"error", err,
			"body_preview", preview(body),
		)
		return Document{}, nil
	}
	return doc, nil
}

// DecodeDocument parses body as a JSON object, retrying once with byte
// order marks, NULs and surrounding whitespace removed.
func DecodeDocument(body []byte) (Document, error) {
	var doc Document
	err := json.Unmarshal(body, &doc)
	if err == nil && doc != nil {
		return doc, nil
	}

	cleaned := bytes.Trim(body, junkCharacters)
	cleaned = bytes.ReplaceAll(cleaned, []byte{0}, nil)
	doc = nil
	if retryErr := json.Unmarshal(cleaned, &doc); retryErr != nil {
		if err == nil {
			err = retryErr
		}
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: body is not a JSON object", ErrMalformed)
	}
	return doc, nil
}

func preview(body []byte) string {
	if len(body) > previewSize {
		body = body[:previewSize]
	}
	return string(body)
}
