// Package push delivers best-effort browser notifications over the
// Web Push protocol. Delivery failures are logged and swallowed; a
// dead push endpoint must never fail a chat operation.
package push

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/studyhallhq/studyhall/types"
)

type Store interface {
	PushSubscriptions(ctx context.Context, userID string) ([]types.PushSubscription, error)
	DeletePushSubscription(ctx context.Context, userID, endpoint string) error
}

type Webpush struct {
	Logger          *slog.Logger
	Store           Store
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	// Subscriber is the contact address sent to push services, either
	// a mailto: or an https: URL.
	Subscriber string
}

func (w *Webpush) enabled() bool {
	return w.VAPIDPublicKey != "" && w.VAPIDPrivateKey != ""
}

// Dispatch sends a notification to every registered subscription of
// the user. Subscriptions the push service reports gone are dropped.
func (w *Webpush) Dispatch(ctx context.Context, userID, title, body string) error {
	if !w.enabled() {
		return nil
	}

	subs, err := w.Store.PushSubscriptions(ctx, userID)
	if err != nil {
		return fmt.Errorf("push subscriptions of %q: %w", userID, err)
	}

	payload, err := json.Marshal(map[string]string{
		"title": title,
		"body":  body,
	})
	if err != nil {
		return fmt.Errorf("json marshal push payload: %w", err)
	}

	for _, sub := range subs {
		w.send(ctx, sub, payload)
	}

	return nil
}

func (w *Webpush) send(ctx context.Context, sub types.PushSubscription, payload []byte) {
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}, &webpush.Options{
		Subscriber:      w.Subscriber,
		VAPIDPublicKey:  w.VAPIDPublicKey,
		VAPIDPrivateKey: w.VAPIDPrivateKey,
		TTL:             60,
	})
	if err != nil {
		w.Logger.Error("webpush send", "endpoint", sub.Endpoint, "err", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		if err := w.Store.DeletePushSubscription(ctx, sub.UserID, sub.Endpoint); err != nil {
			w.Logger.Error("delete stale push subscription", "endpoint", sub.Endpoint, "err", err)
		}
		return
	}

	if resp.StatusCode >= 400 {
		w.Logger.Error("webpush rejected", "endpoint", sub.Endpoint, "status", resp.StatusCode)
	}
}
