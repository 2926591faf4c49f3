package gateways

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/semscan/semscan/internal/domain/entities"
	"github.com/semscan/semscan/internal/domain/interfaces"
)

func testPayload() *entities.DeliveryPayload {
	return &entities.DeliveryPayload{
		Commit:     "a1b2c3d4e5f67890a1b2c3d4e5f67890a1b2c3d4",
		Repository: "https://github.com/example/repo.git",
		Findings:   []entities.Finding{{RuleID: "rules.a", Severity: entities.SeverityError}},
		Summary:    entities.DeliverySummary{Errors: 1},
		Timestamp:  "2026-08-24T00:00:00Z",
		ScanID:     "test-scan-id",
	}
}

func TestPublish_Success(t *testing.T) {
	var gotKey, gotContentType string
	var gotBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-Key")
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	pub := NewHTTPPublisher(5*time.Second, &interfaces.NoOpLogger{})

	ok, err := pub.Publish(context.Background(), server.URL, "secret-key", testPayload())
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if !ok {
		t.Error("Publish() = false, want true for 201")
	}

	if gotKey != "secret-key" {
		t.Errorf("X-API-Key = %q, want secret-key", gotKey)
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", gotContentType)
	}

	var body entities.DeliveryPayload
	if err := json.Unmarshal(gotBody, &body); err != nil {
		t.Fatalf("body is not valid JSON: %v", err)
	}
	if body.Commit != "a1b2c3d4e5f67890a1b2c3d4e5f67890a1b2c3d4" {
		t.Errorf("body commit = %q", body.Commit)
	}
	if body.ScanID != "test-scan-id" {
		t.Errorf("body scan_id = %q", body.ScanID)
	}
}

// TestPublish_Rejected checks that a non-2xx answer is reported as a
// failed delivery without an error; the pipeline treats it as a
// warning.
func TestPublish_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	pub := NewHTTPPublisher(5*time.Second, &interfaces.NoOpLogger{})

	ok, err := pub.Publish(context.Background(), server.URL, "key", testPayload())
	if err != nil {
		t.Fatalf("Publish() error = %v, want nil for HTTP rejection", err)
	}
	if ok {
		t.Error("Publish() = true for HTTP 500")
	}
}

func TestPublish_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close() // endpoint unreachable

	pub := NewHTTPPublisher(time.Second, &interfaces.NoOpLogger{})

	ok, err := pub.Publish(context.Background(), server.URL, "key", testPayload())
	if err == nil {
		t.Fatal("expected transport error, got nil")
	}
	if ok {
		t.Error("Publish() = true on transport failure")
	}
}

func TestPublish_SingleAttempt(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	pub := NewHTTPPublisher(5*time.Second, &interfaces.NoOpLogger{})
	_, _ = pub.Publish(context.Background(), server.URL, "key", testPayload())

	if attempts != 1 {
		t.Errorf("endpoint hit %d times, want exactly 1", attempts)
	}
}
