package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/studyhallhq/studyhall/id"
	"github.com/studyhallhq/studyhall/types"
)

// CreatePushSubscription registers a browser push subscription.
// Re-registering the same endpoint refreshes its keys.
func (p *Postgres) CreatePushSubscription(ctx context.Context, in types.CreatePushSubscription) error {
	const q = `
		INSERT INTO push_subscriptions (id, user_id, endpoint, p256dh, auth)
		VALUES (@id, @user_id, @endpoint, @p256dh, @auth)
		ON CONFLICT (user_id, endpoint) DO UPDATE
		SET p256dh = excluded.p256dh, auth = excluded.auth
	`
	_, err := p.db.Exec(ctx, q, pgx.NamedArgs{
		"id":       id.Generate(),
		"user_id":  in.LoggedInUserID(),
		"endpoint": in.Endpoint,
		"p256dh":   in.P256dh,
		"auth":     in.Auth,
	})
	if err != nil {
		return fmt.Errorf("sql upsert push subscription: %w", err)
	}
	return nil
}

func (p *Postgres) PushSubscriptions(ctx context.Context, userID string) ([]types.PushSubscription, error) {
	const q = `
		SELECT user_id, endpoint, p256dh, auth, created_at
		FROM push_subscriptions
		WHERE user_id = @user_id
	`
	rows, err := p.db.Query(ctx, q, pgx.NamedArgs{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("sql select push subscriptions: %w", err)
	}

	subs, err := pgx.CollectRows(rows, pgx.RowToStructByNameLax[types.PushSubscription])
	if err != nil {
		return nil, fmt.Errorf("sql collect push subscriptions: %w", err)
	}

	return subs, nil
}

// DeletePushSubscription drops a subscription, typically after the
// push service reports it gone.
func (p *Postgres) DeletePushSubscription(ctx context.Context, userID, endpoint string) error {
	const q = `
		DELETE FROM push_subscriptions
		WHERE user_id = @user_id AND endpoint = @endpoint
	`
	_, err := p.db.Exec(ctx, q, pgx.NamedArgs{
		"user_id":  userID,
		"endpoint": endpoint,
	})
	if err != nil {
		return fmt.Errorf("sql delete push subscription: %w", err)
	}
	return nil
}
