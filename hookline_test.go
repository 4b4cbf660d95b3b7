package hookline_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	hookline "github.com/hookline/hookline"
	"github.com/hookline/hookline/catalog"
	"github.com/hookline/hookline/deliverylog"
	"github.com/hookline/hookline/ingest"
	qmemory "github.com/hookline/hookline/queue/memory"
	"github.com/hookline/hookline/signature"
	"github.com/hookline/hookline/store/memory"
	"github.com/hookline/hookline/subscription"
)

func ctx() context.Context { return context.Background() }

func eventTypeDef(name string) catalog.EventTypeDefinition {
	return catalog.EventTypeDefinition{Name: name}
}

func setup(t *testing.T) (*hookline.Hookline, *memory.Store) {
	t.Helper()
	s := memory.New()
	hl, err := hookline.New(
		hookline.WithStore(s),
		hookline.WithQueue(qmemory.New()),
		hookline.WithPollInterval(25*time.Millisecond),
	)
	if err != nil {
		t.Fatal(err)
	}
	return hl, s
}

func registerCatalog(t *testing.T, hl *hookline.Hookline, eventType, sourceModule string) {
	t.Helper()
	if _, err := hl.Catalog().RegisterEventType(ctx(), eventTypeDef(eventType)); err != nil {
		t.Fatal(err)
	}
	if _, err := hl.Catalog().RegisterSourceModule(ctx(), sourceModule, ""); err != nil {
		t.Fatal(err)
	}
}

func createSubscription(t *testing.T, hl *hookline.Hookline, url string, eventTypes []string, maxRetries int) *subscription.Subscription {
	t.Helper()
	sub, err := hl.Subscriptions().Create(ctx(), subscription.Input{
		Name:       "e2e subscriber",
		WebhookURL: url,
		EventTypes: eventTypes,
		MaxRetries: maxRetries,
	})
	if err != nil {
		t.Fatal(err)
	}
	return sub
}

// waitForLogs polls until the event has want attempt rows with the final one
// in a terminal state, or the deadline passes.
func waitForLogs(t *testing.T, hl *hookline.Hookline, res *ingest.Result, want int, deadline time.Duration) []*deliverylog.Log {
	t.Helper()
	stop := time.Now().Add(deadline)
	for time.Now().Before(stop) {
		logs, err := hl.DeliveryLogs(ctx(), res.InternalID, deliverylog.ListOpts{})
		if err != nil {
			t.Fatal(err)
		}
		if len(logs) >= want {
			terminal := 0
			for _, l := range logs {
				if l.Status == deliverylog.StatusSuccess || l.Status == deliverylog.StatusFailed ||
					l.Status == deliverylog.StatusRetrying {
					terminal++
				}
			}
			if terminal >= want {
				return logs
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d delivery logs", want)
	return nil
}

func TestEndToEndDelivery(t *testing.T) {
	hl, _ := setup(t)

	var received atomic.Int32
	var gotSig atomic.Value
	var gotBody atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received.Add(1)
		gotSig.Store(r.Header.Get("X-Hookline-Signature"))
		body, _ := io.ReadAll(r.Body)
		gotBody.Store(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	registerCatalog(t, hl, "job.created", "jobs")
	sub := createSubscription(t, hl, srv.URL, []string{"job.created"}, 3)

	hl.Start(ctx())
	defer hl.Stop(ctx())

	res, err := hl.Ingest(ctx(), ingest.Input{
		EventType:      "job.created",
		SourceModule:   "jobs",
		Payload:        json.RawMessage(`{"job_id":42}`),
		IdempotencyKey: "e2e-1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Duplicate {
		t.Fatal("first ingest flagged as duplicate")
	}

	logs := waitForLogs(t, hl, res, 1, 5*time.Second)
	if logs[0].Status != deliverylog.StatusSuccess {
		t.Fatalf("status = %s, want success", logs[0].Status)
	}
	if logs[0].SubscriptionID.String() != sub.ID.String() {
		t.Fatalf("delivered to %s, want %s", logs[0].SubscriptionID, sub.ID)
	}
	if got := received.Load(); got != 1 {
		t.Fatalf("endpoint received %d requests, want 1", got)
	}

	// The signature on the wire verifies against the delivered body and
	// the subscription secret returned at creation.
	sig, _ := gotSig.Load().(string)
	body, _ := gotBody.Load().([]byte)
	if !signature.Verify(body, sub.Secret, sig) {
		t.Fatal("delivered signature does not verify")
	}
}

func TestEndToEndRetryThenSuccess(t *testing.T) {
	hl, _ := setup(t)

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	registerCatalog(t, hl, "job.created", "jobs")
	createSubscription(t, hl, srv.URL, []string{"job.created"}, 3)

	hl.Start(ctx())
	defer hl.Stop(ctx())

	res, err := hl.Ingest(ctx(), ingest.Input{
		EventType:      "job.created",
		SourceModule:   "jobs",
		Payload:        json.RawMessage(`{"job_id":7}`),
		IdempotencyKey: "e2e-retry",
	})
	if err != nil {
		t.Fatal(err)
	}

	// Attempt 1 fails with 500 and schedules a retry about a second out;
	// attempt 2 succeeds.
	logs := waitForLogs(t, hl, res, 2, 10*time.Second)

	byAttempt := map[int]*deliverylog.Log{}
	for _, l := range logs {
		byAttempt[l.Attempt] = l
	}
	if byAttempt[1] == nil || byAttempt[1].Status != deliverylog.StatusRetrying {
		t.Fatalf("attempt 1 = %+v, want retrying", byAttempt[1])
	}
	if byAttempt[2] == nil || byAttempt[2].Status != deliverylog.StatusSuccess {
		t.Fatalf("attempt 2 = %+v, want success", byAttempt[2])
	}
}

func TestIngestIdempotency(t *testing.T) {
	hl, _ := setup(t)

	registerCatalog(t, hl, "job.created", "jobs")

	in := ingest.Input{
		EventType:      "job.created",
		SourceModule:   "jobs",
		Payload:        json.RawMessage(`{"job_id":1}`),
		IdempotencyKey: "same-key",
	}

	first, err := hl.Ingest(ctx(), in)
	if err != nil {
		t.Fatal(err)
	}
	second, err := hl.Ingest(ctx(), in)
	if err != nil {
		t.Fatal(err)
	}
	if !second.Duplicate {
		t.Fatal("second ingest not flagged duplicate")
	}
	if second.EventID != first.EventID {
		t.Fatalf("second ID %s, want %s", second.EventID, first.EventID)
	}
}

func TestIngestUnknownEventType(t *testing.T) {
	hl, _ := setup(t)

	registerCatalog(t, hl, "job.created", "jobs")

	_, err := hl.Ingest(ctx(), ingest.Input{
		EventType:      "does.not.exist",
		SourceModule:   "jobs",
		Payload:        json.RawMessage(`{}`),
		IdempotencyKey: "k",
	})
	if !errors.Is(err, hookline.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestNewRequiresStoreAndQueue(t *testing.T) {
	if _, err := hookline.New(hookline.WithQueue(qmemory.New())); !errors.Is(err, hookline.ErrNoStore) {
		t.Fatalf("err = %v, want ErrNoStore", err)
	}
	if _, err := hookline.New(hookline.WithStore(memory.New())); !errors.Is(err, hookline.ErrNoQueue) {
		t.Fatalf("err = %v, want ErrNoQueue", err)
	}
}
