package store

import (
	"database/sql"
	"fmt"

	"github.com/ShiShiBits1/GrowthQuest/internal/model"
)

type PushStore struct {
	db querier
}

func NewPushStore(db *sql.DB) *PushStore {
	return &PushStore{db: db}
}

const pushCols = `id, actor_role, actor_id, endpoint, p256dh_key, auth_key, created_at`

func scanSubscription(scanner interface{ Scan(...any) error }) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	err := scanner.Scan(&sub.ID, &sub.Role, &sub.ActorID, &sub.Endpoint, &sub.P256dhKey, &sub.AuthKey, &sub.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// CreateSubscription registers a browser endpoint for the actor. Re-registering
// an endpoint moves it to the new actor and refreshes its keys.
func (s *PushStore) CreateSubscription(role model.ActorRole, actorID int64, endpoint, p256dh, auth string) (*model.PushSubscription, error) {
	row := s.db.QueryRow(
		`INSERT INTO push_subscriptions (actor_role, actor_id, endpoint, p256dh_key, auth_key)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(endpoint) DO UPDATE SET
		   actor_role = excluded.actor_role,
		   actor_id = excluded.actor_id,
		   p256dh_key = excluded.p256dh_key,
		   auth_key = excluded.auth_key
		 RETURNING `+pushCols,
		role, actorID, endpoint, p256dh, auth,
	)
	sub, err := scanSubscription(row)
	if err != nil {
		return nil, fmt.Errorf("create push subscription: %w", err)
	}
	return sub, nil
}

func (s *PushStore) ListByActor(role model.ActorRole, actorID int64) ([]model.PushSubscription, error) {
	rows, err := s.db.Query(
		`SELECT `+pushCols+` FROM push_subscriptions WHERE actor_role = ? AND actor_id = ? ORDER BY created_at DESC`,
		role, actorID,
	)
	if err != nil {
		return nil, fmt.Errorf("list push subscriptions by actor: %w", err)
	}
	defer rows.Close()

	var subs []model.PushSubscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan push subscription: %w", err)
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

func (s *PushStore) DeleteSubscription(id int64, role model.ActorRole, actorID int64) error {
	_, err := s.db.Exec(
		`DELETE FROM push_subscriptions WHERE id = ? AND actor_role = ? AND actor_id = ?`,
		id, role, actorID,
	)
	if err != nil {
		return fmt.Errorf("delete push subscription: %w", err)
	}
	return nil
}

func (s *PushStore) DeleteByEndpoint(endpoint string) error {
	_, err := s.db.Exec(`DELETE FROM push_subscriptions WHERE endpoint = ?`, endpoint)
	if err != nil {
		return fmt.Errorf("delete push subscription by endpoint: %w", err)
	}
	return nil
}
