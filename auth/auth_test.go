package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
)

func tokenServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"access_token":"token%d","token_type":"bearer","expires_in":3600}`, n)
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func TestGetTokenAndSetAuthHeader(t *testing.T) {
	server, calls := tokenServer(t)
	client := NewClientCred(Conf{ClientID: "id", ClientSecret: "secret", AuthURL: server.URL})

	token, err := client.GetToken(context.Background())
	if err != nil {
		t.Fatalf("GetToken returned error: %v", err)
	}
	if token != "token1" {
		t.Fatalf("unexpected token %s", token)
	}

	req, _ := http.NewRequest("GET", "http://example.com", nil)
	if err := client.SetAuthHeader(req); err != nil {
		t.Fatalf("SetAuthHeader returned error: %v", err)
	}
	if auth := req.Header.Get("Authorization"); auth != "Bearer token1" {
		t.Fatalf("unexpected Authorization header %q", auth)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected cached token, got %d token requests", calls.Load())
	}
}

func TestInvalidate(t *testing.T) {
	server, _ := tokenServer(t)
	client := NewClientCred(Conf{ClientID: "id", AuthURL: server.URL})
	if _, err := client.GetToken(context.Background()); err != nil {
		t.Fatal(err)
	}
	client.Invalidate()
	token, err := client.GetToken(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if token != "token2" {
		t.Fatalf("expected refreshed token, got %s", token)
	}
}

func TestConcurrentGetToken(t *testing.T) {
	server, calls := tokenServer(t)
	client := NewClientCred(Conf{ClientID: "id", AuthURL: server.URL})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := client.GetToken(context.Background()); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	if calls.Load() != 1 {
		t.Fatalf("expected a single token request, got %d", calls.Load())
	}
}

func TestEnabled(t *testing.T) {
	if (Conf{}).Enabled() {
		t.Fatal("empty conf should be disabled")
	}
	if !(Conf{ClientID: "id", AuthURL: "http://x"}).Enabled() {
		t.Fatal("expected enabled")
	}
}
