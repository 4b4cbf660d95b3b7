package deliver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/hookline/hookline/deliverylog"
	"github.com/hookline/hookline/event"
	"github.com/hookline/hookline/signature"
	"github.com/hookline/hookline/subscription"
)

const (
	userAgent    = "Hookline/1.0"
	maxRedirects = 2
)

// Result captures the outcome of a single HTTP delivery attempt. Exactly one
// of StatusCode (with Body) or Err is meaningful: transport failures never
// reach a response.
type Result struct {
	StatusCode int
	Body       string
	Err        string
	Latency    time.Duration

	// Signed reports that a payload signature was produced, even when the
	// request itself never went out.
	Signed bool
}

// Delivered reports whether the attempt counts as a successful delivery.
// Any response the endpoint produced short of a server error qualifies,
// including 4xx: the endpoint received and rejected the event, and retrying
// the same payload will not change its mind.
func (r Result) Delivered() bool {
	return r.Err == "" && r.StatusCode < 500
}

// Sender performs signed HTTP POSTs to subscription endpoints.
type Sender struct {
	client *http.Client
}

// NewSender builds a Sender. Per-attempt timeouts come from the subscription,
// so the underlying client carries no timeout of its own.
func NewSender() *Sender {
	return &Sender{
		client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) > maxRedirects {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

// Send signs the event payload with the subscription secret and POSTs it to
// the subscription's webhook URL. It never returns an error: every failure
// mode is folded into the Result so the worker can record it on the delivery
// log.
func (s *Sender) Send(ctx context.Context, sub *subscription.Subscription, evt *event.Event, deliveryID string, attempt int) Result {
	start := time.Now()

	sig, err := signature.Sign(evt.Payload, sub.Secret)
	if err != nil {
		return Result{Err: fmt.Sprintf("sign payload: %v", err), Latency: time.Since(start)}
	}

	timeout := sub.Timeout
	if timeout <= 0 {
		timeout = subscription.MaxTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.WebhookURL, bytes.NewReader(evt.Payload))
	if err != nil {
		return Result{Err: fmt.Sprintf("build request: %v", err), Signed: true, Latency: time.Since(start)}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Hookline-Signature", sig)
	req.Header.Set("X-Hookline-Event-Type", evt.Type)
	req.Header.Set("X-Hookline-Event-ID", evt.PublicID)
	req.Header.Set("X-Hookline-Delivery-ID", deliveryID)
	req.Header.Set("X-Hookline-Attempt", strconv.Itoa(attempt))

	resp, err := s.client.Do(req)
	if err != nil {
		msg := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			msg = fmt.Sprintf("request timed out after %s", timeout)
		}
		return Result{Err: msg, Signed: true, Latency: time.Since(start)}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, deliverylog.MaxResponseBody+1))

	return Result{
		StatusCode: resp.StatusCode,
		Body:       deliverylog.Truncate(string(body), deliverylog.MaxResponseBody),
		Signed:     true,
		Latency:    time.Since(start),
	}
}
