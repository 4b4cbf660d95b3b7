package deliver_test

import (
	"context"
	"errors"
	"testing"

	hookline "github.com/hookline/hookline"
	"github.com/hookline/hookline/deliver"
	"github.com/hookline/hookline/deliverylog"
	"github.com/hookline/hookline/id"
	"github.com/hookline/hookline/internal/entity"
	qmemory "github.com/hookline/hookline/queue/memory"
	"github.com/hookline/hookline/store/memory"
)

func seedLog(t *testing.T, store *memory.Store, evtID, subID id.ID, attempt int, status deliverylog.Status) *deliverylog.Log {
	t.Helper()
	l := &deliverylog.Log{
		Entity:         entity.New(),
		ID:             id.NewDeliveryLogID(),
		EventID:        evtID,
		SubscriptionID: subID,
		Attempt:        attempt,
		Status:         status,
	}
	if err := store.CreateLog(context.Background(), l); err != nil {
		t.Fatalf("CreateLog: %v", err)
	}
	return l
}

func TestManualRetry(t *testing.T) {
	store := memory.New()
	q := qmemory.New()
	ctx := context.Background()

	evt := testEvent()
	if err := store.CreateEvent(ctx, evt); err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	sub := testSub("https://example.com/hook")
	if err := store.CreateSubscription(ctx, sub); err != nil {
		t.Fatalf("CreateSubscription: %v", err)
	}

	l := seedLog(t, store, evt.ID, sub.ID, 1, deliverylog.StatusFailed)

	r := deliver.NewRetrier(store, q, nil)
	next, err := r.Retry(ctx, l.ID.String())
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if next != 2 {
		t.Fatalf("next attempt = %d, want 2", next)
	}
	if q.Len() != 1 {
		t.Fatalf("queue has %d jobs, want 1", q.Len())
	}
}

func TestManualRetryGatesOnLatestAttempt(t *testing.T) {
	store := memory.New()
	q := qmemory.New()
	ctx := context.Background()

	evt := testEvent()
	store.CreateEvent(ctx, evt)
	sub := testSub("https://example.com/hook")
	store.CreateSubscription(ctx, sub)

	// Operator clicks attempt 1, but attempt 3 already exhausted the budget.
	first := seedLog(t, store, evt.ID, sub.ID, 1, deliverylog.StatusRetrying)
	seedLog(t, store, evt.ID, sub.ID, 2, deliverylog.StatusRetrying)
	seedLog(t, store, evt.ID, sub.ID, 3, deliverylog.StatusFailed)

	r := deliver.NewRetrier(store, q, nil)
	_, err := r.Retry(ctx, first.ID.String())
	if !errors.Is(err, hookline.ErrRetriesExhausted) {
		t.Fatalf("err = %v, want ErrRetriesExhausted", err)
	}
	if q.Len() != 0 {
		t.Fatalf("queue has %d jobs, want 0", q.Len())
	}
}

func TestManualRetryInactiveSubscription(t *testing.T) {
	store := memory.New()
	q := qmemory.New()
	ctx := context.Background()

	evt := testEvent()
	store.CreateEvent(ctx, evt)
	sub := testSub("https://example.com/hook")
	sub.IsActive = false
	store.CreateSubscription(ctx, sub)

	l := seedLog(t, store, evt.ID, sub.ID, 1, deliverylog.StatusFailed)

	r := deliver.NewRetrier(store, q, nil)
	_, err := r.Retry(ctx, l.ID.String())
	if !errors.Is(err, hookline.ErrInactiveSubscription) {
		t.Fatalf("err = %v, want ErrInactiveSubscription", err)
	}
}

func TestManualRetryUnknownLog(t *testing.T) {
	r := deliver.NewRetrier(memory.New(), qmemory.New(), nil)

	_, err := r.Retry(context.Background(), id.NewDeliveryLogID().String())
	if !errors.Is(err, hookline.ErrDeliveryLogNotFound) {
		t.Fatalf("err = %v, want ErrDeliveryLogNotFound", err)
	}
}
