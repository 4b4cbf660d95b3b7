package deliver_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hookline/hookline/deliver"
	"github.com/hookline/hookline/event"
	"github.com/hookline/hookline/id"
	"github.com/hookline/hookline/internal/entity"
	"github.com/hookline/hookline/signature"
	"github.com/hookline/hookline/subscription"
)

func testEvent() *event.Event {
	return &event.Event{
		Entity:       entity.New(),
		ID:           id.NewEventID(),
		PublicID:     "7be2e6b0-3f65-4e9f-9f7e-2e1a43e06e11",
		Type:         "job.created",
		SourceModule: "jobs",
		Payload:      json.RawMessage(`{"job_id":42,"title":"engineer"}`),
	}
}

func testSub(url string) *subscription.Subscription {
	return &subscription.Subscription{
		Entity:      entity.New(),
		ID:          id.NewSubscriptionID(),
		Name:        "listener",
		WebhookURL:  url,
		EventTypes:  []string{"job.created"},
		Secret:      "88b1a2d1c2e3f4a5b6c7d8e9f0a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6e7f8a9",
		IsActive:    true,
		RetryBudget: 3,
		Timeout:     5 * time.Second,
	}
}

func TestSendHeadersAndSignature(t *testing.T) {
	evt := testEvent()

	var (
		gotHeaders http.Header
		gotBody    []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sub := testSub(srv.URL)
	deliveryID := id.NewDeliveryLogID().String()

	res := deliver.NewSender().Send(context.Background(), sub, evt, deliveryID, 2)
	if !res.Delivered() {
		t.Fatalf("Send failed: status=%d err=%q", res.StatusCode, res.Err)
	}

	if ua := gotHeaders.Get("User-Agent"); ua != "Hookline/1.0" {
		t.Errorf("User-Agent = %q", ua)
	}
	if got := gotHeaders.Get("X-Hookline-Event-Type"); got != "job.created" {
		t.Errorf("X-Hookline-Event-Type = %q", got)
	}
	if got := gotHeaders.Get("X-Hookline-Event-ID"); got != evt.PublicID {
		t.Errorf("X-Hookline-Event-ID = %q, want %q", got, evt.PublicID)
	}
	if got := gotHeaders.Get("X-Hookline-Delivery-ID"); got != deliveryID {
		t.Errorf("X-Hookline-Delivery-ID = %q, want %q", got, deliveryID)
	}
	if got := gotHeaders.Get("X-Hookline-Attempt"); got != "2" {
		t.Errorf("X-Hookline-Attempt = %q, want 2", got)
	}

	if string(gotBody) != string(evt.Payload) {
		t.Errorf("body = %s, want raw payload", gotBody)
	}

	sig := gotHeaders.Get("X-Hookline-Signature")
	if !signature.Verify(gotBody, sub.Secret, sig) {
		t.Errorf("signature %q does not verify against delivered body", sig)
	}
}

func TestSend4xxCountsAsDelivered(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("no such hook"))
	}))
	defer srv.Close()

	res := deliver.NewSender().Send(context.Background(), testSub(srv.URL), testEvent(), "dlog_x", 1)
	if !res.Delivered() {
		t.Fatalf("404 should count as delivered, got err=%q", res.Err)
	}
	if res.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", res.StatusCode)
	}
	if res.Body != "no such hook" {
		t.Errorf("body = %q", res.Body)
	}
}

func TestSend5xxIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	res := deliver.NewSender().Send(context.Background(), testSub(srv.URL), testEvent(), "dlog_x", 1)
	if res.Delivered() {
		t.Fatal("503 must not count as delivered")
	}
	if res.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", res.StatusCode)
	}
}

func TestSendTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer srv.Close()

	sub := testSub(srv.URL)
	sub.Timeout = 100 * time.Millisecond

	res := deliver.NewSender().Send(context.Background(), sub, testEvent(), "dlog_x", 1)
	if res.Delivered() {
		t.Fatal("timed-out request must not count as delivered")
	}
	if res.Err == "" {
		t.Fatal("expected a transport error")
	}
	if !strings.Contains(res.Err, "timed out") {
		t.Errorf("err = %q, want timeout message", res.Err)
	}
}

func TestSendConnectionRefused(t *testing.T) {
	// Grab a port nothing listens on.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	res := deliver.NewSender().Send(context.Background(), testSub(url), testEvent(), "dlog_x", 1)
	if res.Delivered() {
		t.Fatal("refused connection must not count as delivered")
	}
	if res.Err == "" {
		t.Fatal("expected a transport error")
	}
}

func TestSendTruncatesLongResponseBody(t *testing.T) {
	big := strings.Repeat("x", 9000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(big))
	}))
	defer srv.Close()

	res := deliver.NewSender().Send(context.Background(), testSub(srv.URL), testEvent(), "dlog_x", 1)
	if len(res.Body) != 5000 {
		t.Fatalf("body length = %d, want 5000", len(res.Body))
	}
}
