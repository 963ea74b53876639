package solinteg

import (
	"context"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeTransport records every request and answers via a handler func.
type fakeTransport struct {
	mu      sync.Mutex
	calls   []*http.Request
	handler func(req *http.Request) (*http.Response, error)
}

func (f *fakeTransport) roundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	if f.handler == nil {
		return jsonResponse(http.StatusOK, `{"successful":true,"errorCode":0,"body":null}`), nil
	}
	return f.handler(req)
}

func (f *fakeTransport) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeTransport) callsToPath(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, req := range f.calls {
		if req.URL.Path == path {
			n++
		}
	}
	return n
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

// fakeClock drives the client's notion of time; its sleep advances the clock
// instead of blocking.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.Advance(d)
	return nil
}

func testCredentials() Credentials {
	return Credentials{
		BaseURL:  "https://solinteg.test",
		Account:  "account",
		Password: "secret",
	}
}

func newTestClient(t *testing.T, creds Credentials, transport *fakeTransport) (*Client, *fakeClock) {
	t.Helper()
	client := NewClient(Config{
		Credentials: creds,
		CachePath:   filepath.Join(t.TempDir(), "device_cache.json"),
	})
	clock := newFakeClock()
	client.clock = clock.Now
	client.sleepFunc = clock.Sleep
	client.doRequestFunc = transport.roundTrip
	return client, clock
}

func loginOKHandler(token string) func(req *http.Request) (*http.Response, error) {
	return func(req *http.Request) (*http.Response, error) {
		if req.URL.Path == loginEndpoint {
			return jsonResponse(http.StatusOK, `{"successful":true,"errorCode":0,"body":"`+token+`"}`), nil
		}
		return jsonResponse(http.StatusOK, `{"successful":true,"errorCode":0,"body":{}}`), nil
	}
}
