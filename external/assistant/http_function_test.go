package assistant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newFunctionServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		var req functionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if req.Message != "what is spaced repetition?" {
			t.Errorf("unexpected message: %q", req.Message)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestHTTPFunction_ReturnsReply(t *testing.T) {
	server := newFunctionServer(t, http.StatusOK, `{"reply":"Reviewing at growing intervals."}`)
	f := NewHTTPFunction(server.URL, time.Second)

	reply, err := f.Complete(context.Background(), "what is spaced repetition?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "Reviewing at growing intervals." {
		t.Fatalf("unexpected reply: %q", reply)
	}
}

func TestHTTPFunction_ErrorField(t *testing.T) {
	server := newFunctionServer(t, http.StatusOK, `{"error":"rate limited"}`)
	f := NewHTTPFunction(server.URL, time.Second)

	_, err := f.Complete(context.Background(), "what is spaced repetition?")
	if err == nil || err.Error() != "rate limited" {
		t.Fatalf("expected rate limited error, got %v", err)
	}
}

func TestHTTPFunction_Non2xx(t *testing.T) {
	server := newFunctionServer(t, http.StatusInternalServerError, `{"error":"boom"}`)
	f := NewHTTPFunction(server.URL, time.Second)

	_, err := f.Complete(context.Background(), "what is spaced repetition?")
	if err == nil || !strings.Contains(err.Error(), "500") || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestHTTPFunction_MalformedBody(t *testing.T) {
	server := newFunctionServer(t, http.StatusOK, `not json`)
	f := NewHTTPFunction(server.URL, time.Second)

	if _, err := f.Complete(context.Background(), "what is spaced repetition?"); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestHTTPFunction_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	f := NewHTTPFunction(server.URL, 50*time.Millisecond)
	if _, err := f.Complete(context.Background(), "what is spaced repetition?"); err == nil {
		t.Fatal("expected timeout error")
	}
}
