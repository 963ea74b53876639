package solinteg

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/pkg/errors"
)

func TestGetValidTokenReusesCachedToken(t *testing.T) {
	transport := &fakeTransport{}
	client, clock := newTestClient(t, testCredentials(), transport)
	client.token = "cached-token"
	client.tokenExpireAt = clock.Now().Add(10 * time.Minute)

	token, err := client.getValidToken(context.Background())
	if err != nil {
		t.Fatalf("getValidToken returned error: %v", err)
	}
	if token != "cached-token" {
		t.Fatalf("expected cached token, got %q", token)
	}
	if transport.callCount() != 0 {
		t.Fatalf("expected no network calls, got %d", transport.callCount())
	}
}

func TestGetValidTokenLogsInWhenExpired(t *testing.T) {
	transport := &fakeTransport{handler: loginOKHandler("fresh-token")}
	client, clock := newTestClient(t, testCredentials(), transport)
	client.token = "stale-token"
	oldExpiry := clock.Now().Add(-time.Minute)
	client.tokenExpireAt = oldExpiry

	token, err := client.getValidToken(context.Background())
	if err != nil {
		t.Fatalf("getValidToken returned error: %v", err)
	}
	if token != "fresh-token" {
		t.Fatalf("expected fresh token, got %q", token)
	}
	if got := transport.callsToPath(loginEndpoint); got != 1 {
		t.Fatalf("expected exactly one login call, got %d", got)
	}
	if !client.tokenExpireAt.After(oldExpiry) {
		t.Fatalf("expected new expiry after %v, got %v", oldExpiry, client.tokenExpireAt)
	}
}

func TestGetValidTokenMissingCredentials(t *testing.T) {
	transport := &fakeTransport{}
	client, _ := newTestClient(t, Credentials{}, transport)

	_, err := client.getValidToken(context.Background())
	if !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
	if transport.callCount() != 0 {
		t.Fatalf("expected no network calls, got %d", transport.callCount())
	}
}

func TestLoginRejectionCachesNothing(t *testing.T) {
	transport := &fakeTransport{handler: func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"successful":false,"errorCode":1001,"info":"bad password"}`), nil
	}}
	client, _ := newTestClient(t, testCredentials(), transport)

	_, err := client.getValidToken(context.Background())
	var loginErr *LoginError
	if !errors.As(err, &loginErr) {
		t.Fatalf("expected LoginError, got %v", err)
	}
	if client.token != "" {
		t.Fatalf("expected no token cached after failed login, got %q", client.token)
	}
}

func TestRequestWithoutCredentialsSkipsHTTP(t *testing.T) {
	transport := &fakeTransport{}
	client, _ := newTestClient(t, Credentials{}, transport)

	_, err := client.request(context.Background(), http.MethodGet, "/wrapper/device/queryDeviceRealtimeData", nil, nil, time.Second)
	if !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
	if transport.callCount() != 0 {
		t.Fatalf("expected zero HTTP calls, got %d", transport.callCount())
	}
}

func TestRequestClassifiesAPIRejection(t *testing.T) {
	transport := &fakeTransport{handler: func(req *http.Request) (*http.Response, error) {
		if req.URL.Path == loginEndpoint {
			return jsonResponse(http.StatusOK, `{"successful":true,"errorCode":0,"body":"tok"}`), nil
		}
		return jsonResponse(http.StatusOK, `{"successful":false,"errorCode":42,"info":"device offline"}`), nil
	}}
	client, _ := newTestClient(t, testCredentials(), transport)

	_, err := client.request(context.Background(), http.MethodGet, "/wrapper/history/query", nil, nil, time.Second)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != 42 || apiErr.Info != "device offline" {
		t.Fatalf("unexpected APIError contents: %+v", apiErr)
	}
}

func TestRequestClassifiesHTTPError(t *testing.T) {
	transport := &fakeTransport{handler: func(req *http.Request) (*http.Response, error) {
		if req.URL.Path == loginEndpoint {
			return jsonResponse(http.StatusOK, `{"successful":true,"errorCode":0,"body":"tok"}`), nil
		}
		return jsonResponse(http.StatusBadGateway, `{"info":"upstream down","errorCode":7}`), nil
	}}
	client, _ := newTestClient(t, testCredentials(), transport)

	_, err := client.request(context.Background(), http.MethodGet, "/wrapper/history/query", nil, nil, time.Second)
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if transportErr.Status != http.StatusBadGateway {
		t.Fatalf("expected status 502, got %d", transportErr.Status)
	}
}

func TestRequestClassifiesUndecodableBody(t *testing.T) {
	transport := &fakeTransport{handler: func(req *http.Request) (*http.Response, error) {
		if req.URL.Path == loginEndpoint {
			return jsonResponse(http.StatusOK, `{"successful":true,"errorCode":0,"body":"tok"}`), nil
		}
		return jsonResponse(http.StatusOK, `<html>not json</html>`), nil
	}}
	client, _ := newTestClient(t, testCredentials(), transport)

	_, err := client.request(context.Background(), http.MethodGet, "/wrapper/history/query", nil, nil, time.Second)
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}

func TestRequestAttachesTokenHeaderAndQuery(t *testing.T) {
	transport := &fakeTransport{handler: loginOKHandler("tok-abc")}
	client, _ := newTestClient(t, testCredentials(), transport)

	_, err := client.request(context.Background(), http.MethodGet, "/wrapper/device/queryDeviceConfigData",
		url.Values{"deviceSn": {"SN123"}}, nil, time.Second)
	if err != nil {
		t.Fatalf("request returned error: %v", err)
	}
	var dataReq *http.Request
	for _, req := range transport.calls {
		if req.URL.Path != loginEndpoint {
			dataReq = req
		}
	}
	if dataReq == nil {
		t.Fatal("expected a data request after login")
	}
	if got := dataReq.Header.Get("token"); got != "tok-abc" {
		t.Fatalf("expected token header, got %q", got)
	}
	if got := dataReq.URL.Query().Get("deviceSn"); got != "SN123" {
		t.Fatalf("expected deviceSn query param, got %q", got)
	}
}
