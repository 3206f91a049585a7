package client

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := Connector{Server: srv.URL, APIKey: "test-key", Timeout: 5 * time.Second}.Dial()
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	return c, srv
}
