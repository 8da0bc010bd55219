package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/amishk599/upwatch/internal/model"
)

var _ model.SubscriptionStore = (*PostgresStore)(nil)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS users (
	id         BIGINT      PRIMARY KEY,
	username   TEXT        NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS topics (
	name       TEXT        PRIMARY KEY,
	last_seen  TEXT        NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS subscriptions (
	user_id    BIGINT      NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	topic_name TEXT        NOT NULL REFERENCES topics(name) ON DELETE CASCADE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (user_id, topic_name)
);
CREATE INDEX IF NOT EXISTS subscriptions_topic_idx ON subscriptions(topic_name);`

const deleteOrphanPostgres = `
	DELETE FROM topics
	WHERE name = $1
	  AND NOT EXISTS (SELECT 1 FROM subscriptions WHERE topic_name = topics.name)`

const upsertUserPostgres = `
	INSERT INTO users (id, username) VALUES ($1, $2)
	ON CONFLICT (id) DO UPDATE SET username = CASE
		WHEN EXCLUDED.username <> '' THEN EXCLUDED.username
		ELSE users.username
	END`

// PostgresStore keeps users, topics and subscriptions in PostgreSQL. Use it
// when more than one instance shares the same subscriptions.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to databaseURL, verifies the connection and
// ensures the schema exists.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) AllTopics(ctx context.Context) ([]model.Topic, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT t.name, t.last_seen, t.updated_at, COUNT(s.user_id)
		FROM topics t
		LEFT JOIN subscriptions s ON s.topic_name = t.name
		GROUP BY t.name
		ORDER BY t.name`)
	if err != nil {
		return nil, fmt.Errorf("listing topics: %w", err)
	}
	defer rows.Close()

	var topics []model.Topic
	for rows.Next() {
		var t model.Topic
		var count int64
		if err := rows.Scan(&t.Name, &t.LastSeen, &t.UpdatedAt, &count); err != nil {
			return nil, fmt.Errorf("scanning topic: %w", err)
		}
		t.Subscribers = int(count)
		topics = append(topics, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing topics: %w", err)
	}
	return topics, nil
}

func (s *PostgresStore) LastSeen(ctx context.Context, topic string) (string, error) {
	var lastSeen string
	err := s.pool.QueryRow(ctx, "SELECT last_seen FROM topics WHERE name = $1", topic).Scan(&lastSeen)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading last seen for %s: %w", topic, err)
	}
	return lastSeen, nil
}

func (s *PostgresStore) SetLastSeen(ctx context.Context, topic, value string) error {
	_, err := s.pool.Exec(ctx,
		"UPDATE topics SET last_seen = $1, updated_at = NOW() WHERE name = $2", value, topic)
	if err != nil {
		return fmt.Errorf("setting last seen for %s: %w", topic, err)
	}
	return nil
}

func (s *PostgresStore) Subscribers(ctx context.Context, topic string) ([]int64, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT user_id FROM subscriptions WHERE topic_name = $1 ORDER BY user_id", topic)
	if err != nil {
		return nil, fmt.Errorf("listing subscribers of %s: %w", topic, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("listing subscribers of %s: %w", topic, err)
	}
	return ids, nil
}

func (s *PostgresStore) TopicExists(ctx context.Context, topic string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM topics WHERE name = $1)", topic).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking topic %s: %w", topic, err)
	}
	return exists, nil
}

func (s *PostgresStore) CreateTopic(ctx context.Context, topic string) error {
	_, err := s.pool.Exec(ctx,
		"INSERT INTO topics (name) VALUES ($1) ON CONFLICT (name) DO NOTHING", topic)
	if err != nil {
		return fmt.Errorf("creating topic %s: %w", topic, err)
	}
	return nil
}

func (s *PostgresStore) DeleteTopicIfOrphaned(ctx context.Context, topic string) (bool, error) {
	tag, err := s.pool.Exec(ctx, deleteOrphanPostgres, topic)
	if err != nil {
		return false, fmt.Errorf("deleting orphaned topic %s: %w", topic, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) AddSubscription(ctx context.Context, user model.User, topic string) (bool, error) {
	var added bool
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, upsertUserPostgres, user.ID, user.Username); err != nil {
			return fmt.Errorf("saving user %d: %w", user.ID, err)
		}
		if _, err := tx.Exec(ctx,
			"INSERT INTO topics (name) VALUES ($1) ON CONFLICT (name) DO NOTHING", topic,
		); err != nil {
			return fmt.Errorf("creating topic %s: %w", topic, err)
		}
		tag, err := tx.Exec(ctx,
			"INSERT INTO subscriptions (user_id, topic_name) VALUES ($1, $2) ON CONFLICT DO NOTHING",
			user.ID, topic,
		)
		if err != nil {
			return fmt.Errorf("subscribing %d to %s: %w", user.ID, topic, err)
		}
		added = tag.RowsAffected() > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return added, nil
}

func (s *PostgresStore) RemoveSubscription(ctx context.Context, userID int64, topic string) (bool, error) {
	var removed bool
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			"DELETE FROM subscriptions WHERE user_id = $1 AND topic_name = $2", userID, topic)
		if err != nil {
			return fmt.Errorf("unsubscribing %d from %s: %w", userID, topic, err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		removed = true
		if _, err := tx.Exec(ctx, deleteOrphanPostgres, topic); err != nil {
			return fmt.Errorf("deleting orphaned topic %s: %w", topic, err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

func (s *PostgresStore) RegisterUser(ctx context.Context, user model.User) error {
	if _, err := s.pool.Exec(ctx, upsertUserPostgres, user.ID, user.Username); err != nil {
		return fmt.Errorf("registering user %d: %w", user.ID, err)
	}
	return nil
}

func (s *PostgresStore) UserTopics(ctx context.Context, userID int64) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT topic_name FROM subscriptions WHERE user_id = $1 ORDER BY topic_name", userID)
	if err != nil {
		return nil, fmt.Errorf("listing topics of %d: %w", userID, err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("listing topics of %d: %w", userID, err)
	}
	return names, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
