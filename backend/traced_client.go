package backend

import (
	"io"
	"net/http"
	"net/http/httptrace"
	"time"
)

// TracedClient wraps an http.Client with per-request timing. The server
// sits on localhost, so connection reuse and time-to-first-byte are the
// numbers that matter; DNS and TLS phases are not tracked.
type TracedClient struct {
	hc *http.Client
}

func NewTracedClient() *TracedClient {
	t := &http.Transport{
		MaxIdleConns:        4,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}
	return &TracedClient{hc: &http.Client{Transport: t}}
}

type TracedResponse struct {
	Body       []byte
	StatusCode int
	Metrics    *RequestMetrics
}

// Do issues the request with an httptrace hooked up to a fresh
// RequestMetrics. Download stays zero when the response had no body
// bytes before an error.
func (c *TracedClient) Do(req *http.Request) (*TracedResponse, error) {
	var (
		m          = &RequestMetrics{}
		connStart  time.Time
		headersEnd time.Time
		bodyEnd    time.Time
		firstResp  time.Time
	)

	trace := &httptrace.ClientTrace{
		GetConn: func(string) { connStart = time.Now() },
		GotConn: func(info httptrace.GotConnInfo) {
			m.ConnWait = time.Since(connStart)
			m.ConnReused = info.Reused
		},
		WroteHeaders: func() { headersEnd = time.Now() },
		WroteRequest: func(httptrace.WroteRequestInfo) {
			bodyEnd = time.Now()
			m.ReqBody = bodyEnd.Sub(headersEnd)
		},
		GotFirstResponseByte: func() {
			firstResp = time.Now()
			m.TTFB = firstResp.Sub(bodyEnd)
		},
	}

	start := time.Now()
	req = req.WithContext(httptrace.WithClientTrace(req.Context(), trace))

	res, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if !firstResp.IsZero() {
		m.Download = time.Since(firstResp)
	}
	m.Total = time.Since(start)

	return &TracedResponse{Body: body, StatusCode: res.StatusCode, Metrics: m}, nil
}

func (c *TracedClient) CloseIdleConnections() {
	c.hc.CloseIdleConnections()
}
