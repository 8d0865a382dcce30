package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
)

// TransportError is any upstream failure the caller may want to branch on:
// a non-2xx response carries its status code, a transport-level failure
// carries StatusCode 0 and wraps the underlying error.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Client is an outbound HTTP client whose transport solves the target site's
// browser challenges. A plain http.Client gets served challenge pages instead
// of content.
type Client struct {
	http *http.Client
}

// NewClient builds a challenge-bypassing client with a per-call timeout.
func NewClient(timeout time.Duration) *Client {
	jar, _ := cookiejar.New(nil)

	c := &http.Client{
		Timeout: timeout,
		Jar:     jar,
	}
	c.Transport = cloudflarebp.AddCloudFlareByPass(c.Transport)

	return &Client{http: c}
}

// Get fetches url and returns the response body, or a *TransportError on any
// transport failure or non-2xx status. No retries: the first answer is the
// caller's answer.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, url)
}

// Post issues a bodyless POST; the target's search endpoint answers POSTs to
// a query-string URL.
func (c *Client) Post(ctx context.Context, url string) ([]byte, error) {
	return c.do(ctx, http.MethodPost, url)
}

func (c *Client) do(ctx context.Context, method, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request %s: %w", url, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{URL: url, StatusCode: resp.StatusCode}
	}
	return body, nil
}
