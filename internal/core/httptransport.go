package core

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"
)

// maxResponseBodySize limits how much of a response body is read for checks
// and correlation extraction.
const maxResponseBodySize = 10 * 1024 * 1024 // 10MB

// HTTPTransport is the default Transport backed by net/http.
type HTTPTransport struct {
	Client *http.Client
}

// NewHTTPTransport creates a transport with a 30 second request timeout.
func NewHTTPTransport() *HTTPTransport {
	return &HTTPTransport{
		Client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (t *HTTPTransport) Send(ctx context.Context, method, url string, headers map[string]string, body []byte) (*Response, error) {
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := t.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	_, _ = io.Copy(io.Discard, resp.Body) // drain errors are ignorable

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       respBody,
	}, nil
}
