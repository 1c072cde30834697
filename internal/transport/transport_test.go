package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/telhawk-systems/telhawk-beacon/internal/codec"
	"github.com/telhawk-systems/telhawk-beacon/internal/model"
)

func testPayload(t *testing.T) codec.Payload {
	t.Helper()
	payload, err := codec.Encode(&model.Event{
		ID:         1,
		Collection: model.CollectionPageView,
		Payload:    map[string]interface{}{"path": "/"},
		CreatedAt:  time.Now(),
	})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	return payload
}

func TestSend_OK(t *testing.T) {
	var gotBody string
	var gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	payload := testPayload(t)
	sender := NewHTTPSender(5*time.Second, false)

	result := sender.Send(context.Background(), payload, server.URL)

	if result.Class != ClassOK {
		t.Errorf("Class = %v, want ClassOK", result.Class)
	}
	if result.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", result.StatusCode)
	}
	if result.Latency <= 0 {
		t.Error("Latency not recorded")
	}
	if gotBody != payload.Body {
		t.Error("request body does not match payload")
	}
	if gotContentType != "text/plain; charset=utf-8" {
		t.Errorf("Content-Type = %q", gotContentType)
	}
}

func TestSend_TransientOn5xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	sender := NewHTTPSender(5*time.Second, false)
	result := sender.Send(context.Background(), testPayload(t), server.URL)

	if result.Class != ClassTransient {
		t.Errorf("Class = %v, want ClassTransient", result.Class)
	}
	if result.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StatusCode = %d, want 503", result.StatusCode)
	}
}

func TestSend_PermanentOn4xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	sender := NewHTTPSender(5*time.Second, false)
	result := sender.Send(context.Background(), testPayload(t), server.URL)

	if result.Class != ClassPermanent {
		t.Errorf("Class = %v, want ClassPermanent", result.Class)
	}
}

func TestSend_TransientOnConnectionFailure(t *testing.T) {
	// Nothing listens on this port.
	sender := NewHTTPSender(time.Second, false)
	result := sender.Send(context.Background(), testPayload(t), "http://127.0.0.1:1/collect")

	if result.Class != ClassTransient {
		t.Errorf("Class = %v, want ClassTransient", result.Class)
	}
	if result.Err == nil {
		t.Error("Err not set on connection failure")
	}
}

func TestSend_TransientOnTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	sender := NewHTTPSender(50*time.Millisecond, false)
	result := sender.Send(context.Background(), testPayload(t), server.URL)

	if result.Class != ClassTransient {
		t.Errorf("Class = %v, want ClassTransient on timeout", result.Class)
	}
}

func TestSend_CorrelationHeader(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-Beacon-Correlation")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := NewHTTPSender(5*time.Second, true)
	sender.Send(context.Background(), testPayload(t), server.URL)

	if got == "" {
		t.Error("correlation header missing")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		status int
		want   Class
	}{
		{200, ClassOK},
		{202, ClassOK},
		{299, ClassOK},
		{400, ClassPermanent},
		{404, ClassPermanent},
		{429, ClassPermanent},
		{500, ClassTransient},
		{503, ClassTransient},
		{302, ClassTransient},
	}

	for _, tt := range tests {
		if got := classify(tt.status); got != tt.want {
			t.Errorf("classify(%d) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ping" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := NewHTTPSender(5*time.Second, false)
	if err := sender.Ping(context.Background(), server.URL+"/ping"); err != nil {
		t.Errorf("Ping() error = %v", err)
	}

	if err := sender.Ping(context.Background(), "http://127.0.0.1:1/ping"); err == nil {
		t.Error("Ping() succeeded against a dead endpoint")
	}
}
