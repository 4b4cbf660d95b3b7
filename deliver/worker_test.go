package deliver_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	hookline "github.com/hookline/hookline"
	"github.com/hookline/hookline/deliver"
	"github.com/hookline/hookline/deliverylog"
	"github.com/hookline/hookline/event"
	"github.com/hookline/hookline/queue"
	qmemory "github.com/hookline/hookline/queue/memory"
	"github.com/hookline/hookline/store/memory"
	"github.com/hookline/hookline/subscription"
)

func setupWorker(t *testing.T, handler http.Handler) (*memory.Store, *qmemory.Queue, *deliver.Worker, *event.Event, *subscription.Subscription) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store := memory.New()
	q := qmemory.New()
	ctx := context.Background()

	evt := testEvent()
	if err := store.CreateEvent(ctx, evt); err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}

	sub := testSub(srv.URL)
	if err := store.CreateSubscription(ctx, sub); err != nil {
		t.Fatalf("CreateSubscription: %v", err)
	}

	w := deliver.NewWorker(store, q, deliver.Config{}, nil)
	return store, q, w, evt, sub
}

func payloadFor(evt *event.Event, sub *subscription.Subscription, attempt int) queue.DeliverPayload {
	return queue.DeliverPayload{
		EventID:        evt.ID.String(),
		SubscriptionID: sub.ID.String(),
		Attempt:        attempt,
	}
}

func TestDeliverSuccess(t *testing.T) {
	store, q, w, evt, sub := setupWorker(t, http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		rw.Write([]byte(`{"received":true}`))
	}))
	ctx := context.Background()

	if err := w.Deliver(ctx, payloadFor(evt, sub, 1)); err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	l, err := store.LatestAttempt(ctx, evt.ID, sub.ID)
	if err != nil {
		t.Fatalf("LatestAttempt: %v", err)
	}
	if l.Status != deliverylog.StatusSuccess {
		t.Fatalf("status = %s, want success", l.Status)
	}
	if l.ResponseStatus != http.StatusOK {
		t.Errorf("response status = %d, want 200", l.ResponseStatus)
	}
	if l.ResponseBody != `{"received":true}` {
		t.Errorf("response body = %q", l.ResponseBody)
	}
	if l.DeliveredAt == nil {
		t.Error("DeliveredAt not set")
	}
	if l.NextRetryAt != nil {
		t.Error("NextRetryAt set on a successful attempt")
	}
	if !l.HMACVerified {
		t.Error("HMACVerified not set")
	}
	if q.Len() != 0 {
		t.Errorf("queue has %d jobs after success, want 0", q.Len())
	}
}

func TestDeliver4xxIsTerminalSuccess(t *testing.T) {
	store, q, w, evt, sub := setupWorker(t, http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusBadRequest)
	}))
	ctx := context.Background()

	if err := w.Deliver(ctx, payloadFor(evt, sub, 1)); err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	l, _ := store.LatestAttempt(ctx, evt.ID, sub.ID)
	if l.Status != deliverylog.StatusSuccess {
		t.Fatalf("status = %s, want success for 4xx", l.Status)
	}
	if q.Len() != 0 {
		t.Errorf("queue has %d jobs, want 0: 4xx must not be retried", q.Len())
	}
}

func TestDeliverRetrySequence(t *testing.T) {
	var calls atomic.Int32
	store, q, w, evt, sub := setupWorker(t, http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		rw.WriteHeader(http.StatusInternalServerError)
	}))
	ctx := context.Background()

	// Three consecutive 500s against a budget of 3: retrying, retrying,
	// failed, with a follow-up job after the first two attempts only.
	wantStatus := []deliverylog.Status{
		deliverylog.StatusRetrying,
		deliverylog.StatusRetrying,
		deliverylog.StatusFailed,
	}
	wantQueued := []int{1, 2, 2}

	for attempt := 1; attempt <= 3; attempt++ {
		if err := w.Deliver(ctx, payloadFor(evt, sub, attempt)); err != nil {
			t.Fatalf("Deliver attempt %d: %v", attempt, err)
		}

		l, err := store.LatestAttempt(ctx, evt.ID, sub.ID)
		if err != nil {
			t.Fatalf("LatestAttempt after attempt %d: %v", attempt, err)
		}
		if l.Attempt != attempt {
			t.Fatalf("latest attempt = %d, want %d", l.Attempt, attempt)
		}
		if l.Status != wantStatus[attempt-1] {
			t.Fatalf("attempt %d status = %s, want %s", attempt, l.Status, wantStatus[attempt-1])
		}
		if q.Len() != wantQueued[attempt-1] {
			t.Fatalf("attempt %d queued = %d, want %d", attempt, q.Len(), wantQueued[attempt-1])
		}

		switch l.Status {
		case deliverylog.StatusRetrying:
			if l.NextRetryAt == nil {
				t.Fatalf("attempt %d marked retrying without NextRetryAt", attempt)
			}
			wantDelay := deliver.RetryDelay(attempt)
			gap := time.Until(*l.NextRetryAt)
			if gap < wantDelay-time.Second || gap > wantDelay+time.Second {
				t.Fatalf("attempt %d retry gap = %s, want ~%s", attempt, gap, wantDelay)
			}
		case deliverylog.StatusFailed:
			if l.NextRetryAt != nil {
				t.Fatalf("exhausted attempt still has NextRetryAt")
			}
		}
	}

	if got := calls.Load(); got != 3 {
		t.Fatalf("endpoint called %d times, want 3", got)
	}
}

func TestDeliverInactiveSubscriptionIsFatal(t *testing.T) {
	store, q, w, evt, sub := setupWorker(t, http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		t.Error("inactive subscription must not be called")
	}))
	ctx := context.Background()

	if err := store.SetActive(ctx, sub.ID, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}

	err := w.Deliver(ctx, payloadFor(evt, sub, 1))
	if !errors.Is(err, hookline.ErrInactiveSubscription) {
		t.Fatalf("err = %v, want ErrInactiveSubscription", err)
	}

	var retryErr *queue.RetryError
	if errors.As(err, &retryErr) {
		t.Fatal("inactive subscription must not produce a queue retry")
	}

	if _, err := store.LatestAttempt(ctx, evt.ID, sub.ID); !errors.Is(err, hookline.ErrDeliveryLogNotFound) {
		t.Fatalf("no log row expected, got err = %v", err)
	}
	if q.Len() != 0 {
		t.Errorf("queue has %d jobs, want 0", q.Len())
	}
}

func TestDeliverMissingEventIsFatal(t *testing.T) {
	_, _, w, _, sub := setupWorker(t, http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {}))

	payload := queue.DeliverPayload{
		EventID:        "evt_00000000000000000000000000",
		SubscriptionID: sub.ID.String(),
		Attempt:        1,
	}

	err := w.Deliver(context.Background(), payload)
	if !errors.Is(err, hookline.ErrEventNotFound) {
		t.Fatalf("err = %v, want ErrEventNotFound", err)
	}

	var retryErr *queue.RetryError
	if errors.As(err, &retryErr) {
		t.Fatal("missing event must be fatal, not retried")
	}
}

func TestDeliverSigningFailureLeavesHMACUnset(t *testing.T) {
	store, _, w, _, sub := setupWorker(t, http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		t.Error("unsignable payload must not be sent")
	}))
	ctx := context.Background()

	evt := testEvent()
	evt.Payload = json.RawMessage(`{"broken`)
	evt.IdempotencyKey = "unsignable"
	if err := store.CreateEvent(ctx, evt); err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}

	if err := w.Deliver(ctx, payloadFor(evt, sub, 1)); err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	l, err := store.LatestAttempt(ctx, evt.ID, sub.ID)
	if err != nil {
		t.Fatalf("LatestAttempt: %v", err)
	}
	if l.HMACVerified {
		t.Fatal("HMACVerified set even though no signature was produced")
	}
	if l.Error == "" {
		t.Fatal("signing failure must record an error message")
	}
}

func TestDeliverTransportFailureRecordsError(t *testing.T) {
	store, _, w, evt, sub := setupWorker(t, http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {}))
	ctx := context.Background()

	// Point the subscription at a dead address.
	dead := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {}))
	sub.WebhookURL = dead.URL
	dead.Close()
	if err := store.UpdateSubscription(ctx, sub); err != nil {
		t.Fatalf("UpdateSubscription: %v", err)
	}

	if err := w.Deliver(ctx, payloadFor(evt, sub, 1)); err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	l, _ := store.LatestAttempt(ctx, evt.ID, sub.ID)
	if l.Status != deliverylog.StatusRetrying {
		t.Fatalf("status = %s, want retrying", l.Status)
	}
	if l.Error == "" {
		t.Fatal("transport failure must record an error message")
	}
	if l.ResponseStatus != 0 {
		t.Errorf("response status = %d, want 0 for transport failure", l.ResponseStatus)
	}
}
