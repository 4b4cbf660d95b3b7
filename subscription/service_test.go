package subscription_test

import (
	"context"
	"testing"
	"time"

	"github.com/hookline/hookline/store/memory"
	"github.com/hookline/hookline/subscription"
)

func newService(t *testing.T) *subscription.Service {
	t.Helper()
	return subscription.NewService(memory.New(), subscription.Defaults{
		MaxRetries: 3,
		Timeout:    10 * time.Second,
	}, nil)
}

func TestCreateGeneratesSecret(t *testing.T) {
	svc := newService(t)

	sub, err := svc.Create(context.Background(), subscription.Input{
		Name:       "billing",
		WebhookURL: "https://example.com/hooks",
		EventTypes: []string{"job.created"},
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(sub.Secret) != 64 {
		t.Errorf("expected 64-char secret, got %d chars", len(sub.Secret))
	}
	if !sub.IsActive {
		t.Error("new subscription should be active")
	}
	if sub.RetryBudget != 3 {
		t.Errorf("expected default retry budget 3, got %d", sub.RetryBudget)
	}
	if sub.Timeout != 10*time.Second {
		t.Errorf("expected default timeout 10s, got %v", sub.Timeout)
	}
}

func TestCreateValidation(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   subscription.Input
	}{
		{
			name: "missing name",
			in:   subscription.Input{WebhookURL: "https://example.com", EventTypes: []string{"a.b"}},
		},
		{
			name: "invalid url",
			in:   subscription.Input{Name: "x", WebhookURL: "not a url", EventTypes: []string{"a.b"}},
		},
		{
			name: "non-http scheme",
			in:   subscription.Input{Name: "x", WebhookURL: "ftp://example.com", EventTypes: []string{"a.b"}},
		},
		{
			name: "empty event types",
			in:   subscription.Input{Name: "x", WebhookURL: "https://example.com"},
		},
		{
			name: "retries above cap",
			in: subscription.Input{
				Name: "x", WebhookURL: "https://example.com",
				EventTypes: []string{"a.b"}, MaxRetries: 11,
			},
		},
		{
			name: "timeout above cap",
			in: subscription.Input{
				Name: "x", WebhookURL: "https://example.com",
				EventTypes: []string{"a.b"}, Timeout: time.Minute,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Create(ctx, tt.in); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestUpdateKeepsSecret(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	sub, err := svc.Create(ctx, subscription.Input{
		Name:       "orders",
		WebhookURL: "https://example.com/hooks",
		EventTypes: []string{"order.placed"},
	})
	if err != nil {
		t.Fatal(err)
	}
	secret := sub.Secret

	updated, err := svc.Update(ctx, sub.ID, subscription.Input{
		Name:       "orders-v2",
		MaxRetries: 5,
	})
	if err != nil {
		t.Fatal(err)
	}

	if updated.Secret != secret {
		t.Error("update must not change the secret")
	}
	if updated.Name != "orders-v2" {
		t.Errorf("expected updated name, got %q", updated.Name)
	}
	if updated.RetryBudget != 5 {
		t.Errorf("expected retry budget 5, got %d", updated.RetryBudget)
	}
}

func TestWants(t *testing.T) {
	sub := &subscription.Subscription{EventTypes: []string{"job.created", "job.failed"}}

	if !sub.Wants("job.created") {
		t.Error("expected match for job.created")
	}
	if sub.Wants("job.completed") {
		t.Error("did not expect match for job.completed")
	}
}
