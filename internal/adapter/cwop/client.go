package cwop

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// maxBodyBytes caps how much of a server reply is kept for logging.
const maxBodyBytes = 4096

// Response is the part of a CWOP server reply the relay cares about.
type Response struct {
	StatusCode int
	Message    string // reason phrase, e.g. "OK"
	Body       string
}

// Client posts CWOP submissions to a single mirror per call.
// It implements relay.Sender.
type Client struct {
	httpClient  *http.Client
	port        int
	readTimeout time.Duration
}

// NewClient creates a CWOP client. connectTimeout bounds the TCP connect and
// readTimeout bounds the wait for the response.
func NewClient(port int, connectTimeout, readTimeout time.Duration) *Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: connectTimeout}).DialContext,
		ResponseHeaderTimeout: readTimeout,
		DisableKeepAlives:     true,
	}
	return &Client{
		httpClient:  &http.Client{Transport: transport},
		port:        port,
		readTimeout: readTimeout,
	}
}

// URL returns the submission endpoint for server. A server entry that
// already carries a port ("host:port") is used as is.
func (c *Client) URL(server string) string {
	host := server
	if _, _, err := net.SplitHostPort(server); err != nil {
		host = net.JoinHostPort(server, strconv.Itoa(c.port))
	}
	return "http://" + host + "/"
}

// Post sends payload to server. A non-200 status is not an error; errors are
// connection-level failures only.
func (c *Client) Post(ctx context.Context, server string, payload []byte) (Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(server), bytes.NewReader(payload))
	if err != nil {
		return Response{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Accept-Type", "text/plain")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("post to %s: %w", server, err)
	}
	defer resp.Body.Close()

	body, err := c.readBody(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("read response from %s: %w", server, err)
	}

	return Response{
		StatusCode: resp.StatusCode,
		Message:    reasonPhrase(resp),
		Body:       body,
	}, nil
}

func (c *Client) readBody(body io.Reader) (string, error) {
	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		data, err := io.ReadAll(io.LimitReader(body, maxBodyBytes))
		done <- result{data, err}
	}()

	timer := time.NewTimer(c.readTimeout)
	defer timer.Stop()

	select {
	case r := <-done:
		return string(r.data), r.err
	case <-timer.C:
		// Closing the body (deferred by the caller) unblocks the reader goroutine.
		return "", fmt.Errorf("body read timed out after %s", c.readTimeout)
	}
}

// reasonPhrase extracts "OK" from "200 OK".
func reasonPhrase(resp *http.Response) string {
	if msg, ok := strings.CutPrefix(resp.Status, strconv.Itoa(resp.StatusCode)); ok {
		return strings.TrimSpace(msg)
	}
	return http.StatusText(resp.StatusCode)
}
