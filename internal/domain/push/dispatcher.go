package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/rs/zerolog"
)

// ErrGone marks an endpoint the push service no longer serves. The caller
// should drop the subscription.
var ErrGone = errors.New("push endpoint gone")

// Sender delivers one message to one subscription.
type Sender interface {
	Send(ctx context.Context, sub *Subscription, msg Message) error
}

// WebPushSender sends Web Push messages signed with the server's VAPID keys.
type WebPushSender struct {
	publicKey  string
	privateKey string
	subscriber string
	ttl        int
}

func NewWebPushSender(publicKey, privateKey, subscriber string) *WebPushSender {
	return &WebPushSender{
		publicKey:  publicKey,
		privateKey: privateKey,
		subscriber: subscriber,
		ttl:        12 * 60 * 60,
	}
}

func (s *WebPushSender) Send(ctx context.Context, sub *Subscription, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			Auth:   sub.Auth,
			P256dh: sub.P256dh,
		},
	}, &webpush.Options{
		Subscriber:      s.subscriber,
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
		TTL:             s.ttl,
	})
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return ErrGone
	case resp.StatusCode >= 400:
		return fmt.Errorf("push service returned %d", resp.StatusCode)
	}
	return nil
}

// NopSender drops every message. Used when VAPID keys are not configured so
// the rest of the app keeps working without push delivery.
type NopSender struct {
	logger zerolog.Logger
}

func NewNopSender(logger zerolog.Logger) *NopSender {
	return &NopSender{logger: logger}
}

func (s *NopSender) Send(_ context.Context, sub *Subscription, msg Message) error {
	s.logger.Debug().Str("endpoint", sub.Endpoint).Str("title", msg.Title).Msg("push disabled, dropping message")
	return nil
}

// Dispatcher fans a message out to every subscription of a user. Endpoints
// the push service reports gone are pruned; other per-endpoint failures are
// logged and skipped so one dead browser never blocks the rest.
type Dispatcher struct {
	subs   SubscriptionRepository
	sender Sender
	logger zerolog.Logger
}

func NewDispatcher(subs SubscriptionRepository, sender Sender, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{subs: subs, sender: sender, logger: logger}
}

// NotifyUser delivers the message to all of the user's registered endpoints
// and returns the number of successful deliveries.
func (d *Dispatcher) NotifyUser(ctx context.Context, userID string, msg Message) (int, error) {
	subs, err := d.subs.ListByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("list subscriptions: %w", err)
	}

	delivered := 0
	for _, sub := range subs {
		err := d.sender.Send(ctx, sub, msg)
		switch {
		case err == nil:
			delivered++
		case errors.Is(err, ErrGone):
			d.logger.Info().Str("endpoint", sub.Endpoint).Msg("pruning gone push endpoint")
			if err := d.subs.Prune(ctx, sub.Endpoint); err != nil {
				d.logger.Error().Err(err).Str("endpoint", sub.Endpoint).Msg("prune failed")
			}
		default:
			d.logger.Warn().Err(err).Str("endpoint", sub.Endpoint).Msg("push delivery failed")
		}
	}
	return delivered, nil
}
