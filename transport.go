package recordbase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// QueryParam is a single query-string pair. Parameters are carried as an
// ordered slice rather than url.Values so nested filter keys are emitted in
// the exact order they were composed.
type QueryParam struct {
	Key   string
	Value string
}

// thinClient executes single HTTP round-trips against the site base URL.
// It attaches the headers it is given, nothing more: no retries and no
// interpretation of status codes, which are propagated verbatim.
type thinClient struct {
	site *url.URL
	http *http.Client
}

func newThinClient(site *url.URL, client *http.Client) *thinClient {
	if client == nil {
		client = &http.Client{}
	}
	return &thinClient{site: site, http: client}
}

// do performs one request. path must be relative to the site base URL;
// a rooted path is rejected with ErrRootedPath.
func (c *thinClient) do(ctx context.Context, method, path string, headers map[string]string, body []byte, params []QueryParam) (*http.Response, error) {
	u, err := c.buildURL(path, params)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

// stream opens a long-lived server-sent-event request. The read timeout is
// disabled regardless of how the underlying client is configured, since
// event streams stay idle between changes.
func (c *thinClient) stream(ctx context.Context, method, path string, headers map[string]string, params []QueryParam) (*http.Response, error) {
	u, err := c.buildURL(path, params)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-store")

	streaming := &http.Client{
		Transport:     c.http.Transport,
		CheckRedirect: c.http.CheckRedirect,
		Jar:           c.http.Jar,
		Timeout:       0,
	}

	resp, err := streaming.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

func (c *thinClient) buildURL(path string, params []QueryParam) (string, error) {
	if strings.HasPrefix(path, "/") {
		return "", fmt.Errorf("%w: %q", ErrRootedPath, path)
	}

	u := c.site.JoinPath(path)
	u.RawQuery = encodeParams(params)
	return u.String(), nil
}

// encodeParams builds a query string preserving insertion order.
// url.Values.Encode would sort keys alphabetically and scramble the
// depth-first order of composed filter expressions.
func encodeParams(params []QueryParam) string {
	if len(params) == 0 {
		return ""
	}

	var b strings.Builder
	for i, p := range params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return b.String()
}
