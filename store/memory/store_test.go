package memory

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	hookline "github.com/hookline/hookline"
	"github.com/hookline/hookline/deliverylog"
	"github.com/hookline/hookline/event"
	"github.com/hookline/hookline/id"
	"github.com/hookline/hookline/internal/entity"
	"github.com/hookline/hookline/subscription"
)

func newEvent(t *testing.T, eventType, key string) *event.Event {
	t.Helper()
	return &event.Event{
		Entity:         entity.New(),
		ID:             id.NewEventID(),
		PublicID:       "pub-" + key,
		Type:           eventType,
		SourceModule:   "billing",
		Payload:        json.RawMessage(`{"ok":true}`),
		IdempotencyKey: key,
	}
}

func newSubscription(eventTypes []string, active bool) *subscription.Subscription {
	return &subscription.Subscription{
		Entity:      entity.New(),
		ID:          id.NewSubscriptionID(),
		Name:        "test",
		WebhookURL:  "https://example.com/hook",
		EventTypes:  eventTypes,
		Secret:      "secret",
		IsActive:    active,
		RetryBudget: 3,
		Timeout:     5 * time.Second,
	}
}

func TestCreateEventDuplicateKey(t *testing.T) {
	s := New()
	ctx := context.Background()

	first := newEvent(t, "job.created", "key-1")
	if err := s.CreateEvent(ctx, first); err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}

	second := newEvent(t, "job.created", "key-1")
	err := s.CreateEvent(ctx, second)
	if !errors.Is(err, hookline.ErrDuplicateIdempotencyKey) {
		t.Fatalf("err = %v, want ErrDuplicateIdempotencyKey", err)
	}

	found, err := s.FindEventByIdempotencyKey(ctx, "key-1")
	if err != nil {
		t.Fatalf("FindEventByIdempotencyKey: %v", err)
	}
	if found.ID.String() != first.ID.String() {
		t.Fatalf("found %s, want first event %s", found.ID, first.ID)
	}
}

func TestFindEventByIdempotencyKeyMissing(t *testing.T) {
	s := New()

	_, err := s.FindEventByIdempotencyKey(context.Background(), "never-seen")
	if !errors.Is(err, hookline.ErrEventNotFound) {
		t.Fatalf("err = %v, want ErrEventNotFound", err)
	}
}

func TestResolveActive(t *testing.T) {
	s := New()
	ctx := context.Background()

	matching := newSubscription([]string{"job.created", "job.deleted"}, true)
	inactive := newSubscription([]string{"job.created"}, false)
	other := newSubscription([]string{"invoice.paid"}, true)

	for _, sub := range []*subscription.Subscription{matching, inactive, other} {
		if err := s.CreateSubscription(ctx, sub); err != nil {
			t.Fatalf("CreateSubscription: %v", err)
		}
	}

	subs, err := s.ResolveActive(ctx, "job.created")
	if err != nil {
		t.Fatalf("ResolveActive: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("resolved %d subscriptions, want 1", len(subs))
	}
	if subs[0].ID.String() != matching.ID.String() {
		t.Fatalf("resolved %s, want %s", subs[0].ID, matching.ID)
	}
}

func TestSetActive(t *testing.T) {
	s := New()
	ctx := context.Background()

	sub := newSubscription([]string{"job.created"}, true)
	if err := s.CreateSubscription(ctx, sub); err != nil {
		t.Fatalf("CreateSubscription: %v", err)
	}

	if err := s.SetActive(ctx, sub.ID, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}

	subs, err := s.ResolveActive(ctx, "job.created")
	if err != nil {
		t.Fatalf("ResolveActive: %v", err)
	}
	if len(subs) != 0 {
		t.Fatalf("resolved %d subscriptions after deactivation, want 0", len(subs))
	}
}

func TestLatestAttempt(t *testing.T) {
	s := New()
	ctx := context.Background()

	evtID := id.NewEventID()
	subID := id.NewSubscriptionID()

	for attempt := 1; attempt <= 3; attempt++ {
		l := &deliverylog.Log{
			Entity:         entity.New(),
			ID:             id.NewDeliveryLogID(),
			EventID:        evtID,
			SubscriptionID: subID,
			Attempt:        attempt,
			Status:         deliverylog.StatusRetrying,
		}
		if err := s.CreateLog(ctx, l); err != nil {
			t.Fatalf("CreateLog: %v", err)
		}
	}

	// A row for a different pair must not interfere.
	stray := &deliverylog.Log{
		Entity:         entity.New(),
		ID:             id.NewDeliveryLogID(),
		EventID:        id.NewEventID(),
		SubscriptionID: subID,
		Attempt:        9,
		Status:         deliverylog.StatusFailed,
	}
	if err := s.CreateLog(ctx, stray); err != nil {
		t.Fatalf("CreateLog: %v", err)
	}

	latest, err := s.LatestAttempt(ctx, evtID, subID)
	if err != nil {
		t.Fatalf("LatestAttempt: %v", err)
	}
	if latest.Attempt != 3 {
		t.Fatalf("latest attempt = %d, want 3", latest.Attempt)
	}

	_, err = s.LatestAttempt(ctx, id.NewEventID(), subID)
	if !errors.Is(err, hookline.ErrDeliveryLogNotFound) {
		t.Fatalf("err = %v, want ErrDeliveryLogNotFound", err)
	}
}

func TestUpdateLogIsolation(t *testing.T) {
	s := New()
	ctx := context.Background()

	l := &deliverylog.Log{
		Entity:         entity.New(),
		ID:             id.NewDeliveryLogID(),
		EventID:        id.NewEventID(),
		SubscriptionID: id.NewSubscriptionID(),
		Attempt:        1,
		Status:         deliverylog.StatusPending,
	}
	if err := s.CreateLog(ctx, l); err != nil {
		t.Fatalf("CreateLog: %v", err)
	}

	// Mutating the caller's copy must not leak into the store.
	l.Status = deliverylog.StatusSuccess

	stored, err := s.GetLog(ctx, l.ID)
	if err != nil {
		t.Fatalf("GetLog: %v", err)
	}
	if stored.Status != deliverylog.StatusPending {
		t.Fatalf("stored status = %s, want pending", stored.Status)
	}

	if err := s.UpdateLog(ctx, l); err != nil {
		t.Fatalf("UpdateLog: %v", err)
	}
	stored, _ = s.GetLog(ctx, l.ID)
	if stored.Status != deliverylog.StatusSuccess {
		t.Fatalf("stored status = %s, want success", stored.Status)
	}
}

func TestCountByStatus(t *testing.T) {
	s := New()
	ctx := context.Background()

	statuses := []deliverylog.Status{
		deliverylog.StatusSuccess,
		deliverylog.StatusSuccess,
		deliverylog.StatusFailed,
	}
	for _, st := range statuses {
		l := &deliverylog.Log{
			Entity:         entity.New(),
			ID:             id.NewDeliveryLogID(),
			EventID:        id.NewEventID(),
			SubscriptionID: id.NewSubscriptionID(),
			Attempt:        1,
			Status:         st,
		}
		if err := s.CreateLog(ctx, l); err != nil {
			t.Fatalf("CreateLog: %v", err)
		}
	}

	count, err := s.CountByStatus(ctx, deliverylog.StatusSuccess)
	if err != nil {
		t.Fatalf("CountByStatus: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
}

func TestListEventsPagination(t *testing.T) {
	s := New()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		evt := newEvent(t, "job.created", "key-"+string(rune('a'+i)))
		evt.CreatedAt = time.Now().Add(time.Duration(i) * time.Millisecond)
		if err := s.CreateEvent(ctx, evt); err != nil {
			t.Fatalf("CreateEvent: %v", err)
		}
	}

	page, err := s.ListEvents(ctx, event.ListOpts{Offset: 1, Limit: 2})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("page size = %d, want 2", len(page))
	}

	empty, err := s.ListEvents(ctx, event.ListOpts{Offset: 10})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("page size = %d, want 0", len(empty))
	}
}

func TestClosedStorePing(t *testing.T) {
	s := New()
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping on open store: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Ping(context.Background()); !errors.Is(err, hookline.ErrStoreClosed) {
		t.Fatalf("err = %v, want ErrStoreClosed", err)
	}
}
