package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	gobreaker "github.com/sony/gobreaker/v2"
)

func TestPostDealComment(t *testing.T) {
	var (
		gotPath string
		gotKey  string
		gotBody map[string]string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("User-Key")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewPloomesClient(srv.URL+"/", "secret", srv.Client())
	if err := c.PostDealComment(context.Background(), "12345", "done"); err != nil {
		t.Fatalf("PostDealComment: %v", err)
	}
	if gotPath != "/Deals(12345)/Comments" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotKey != "secret" {
		t.Fatalf("unexpected User-Key %q", gotKey)
	}
	if gotBody["Content"] != "done" {
		t.Fatalf("unexpected body %v", gotBody)
	}
}

func TestPostDealCommentErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "deal not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewPloomesClient(srv.URL, "secret", srv.Client())
	if err := c.PostDealComment(context.Background(), "1", "x"); err == nil {
		t.Fatal("expected error for 404 response")
	}
}

func TestMockModeAndMissingDealSkipNetwork(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	mock := NewPloomesClient(srv.URL, "", srv.Client())
	if err := mock.PostDealComment(context.Background(), "1", "x"); err != nil {
		t.Fatalf("mock mode: %v", err)
	}
	live := NewPloomesClient(srv.URL, "secret", srv.Client())
	if err := live.PostDealComment(context.Background(), "", "x"); err != nil {
		t.Fatalf("missing deal: %v", err)
	}
	if n := atomic.LoadInt32(&hits); n != 0 {
		t.Fatalf("expected no requests, got %d", n)
	}
}

func TestCircuitOpensAfterConsecutiveFailures(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewPloomesClient(srv.URL, "secret", srv.Client())
	for i := 0; i < 5; i++ {
		if err := c.PostDealComment(context.Background(), "1", "x"); err == nil {
			t.Fatalf("attempt %d: expected error", i)
		}
	}

	err := c.PostDealComment(context.Background(), "1", "x")
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected open circuit, got %v", err)
	}
	if n := atomic.LoadInt32(&hits); n != 5 {
		t.Fatalf("expected 5 requests to reach the server, got %d", n)
	}
}
