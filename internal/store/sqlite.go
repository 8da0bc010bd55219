package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/amishk599/upwatch/internal/model"
)

var _ model.SubscriptionStore = (*SQLiteStore)(nil)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	id         INTEGER PRIMARY KEY,
	username   TEXT    NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS topics (
	name       TEXT    PRIMARY KEY,
	last_seen  TEXT    NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS subscriptions (
	user_id    INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	topic_name TEXT    NOT NULL REFERENCES topics(name) ON DELETE CASCADE,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (user_id, topic_name)
);
CREATE INDEX IF NOT EXISTS subscriptions_topic_idx ON subscriptions(topic_name);`

// SQLiteStore keeps users, topics and subscriptions in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures the
// schema exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", sqliteDSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// A single connection serialises writers and keeps the pragmas in effect.
	db.SetMaxOpenConns(1)

	// Verify the connection is alive.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// AllTopics returns every topic with its subscriber count, ordered by name.
func (s *SQLiteStore) AllTopics(ctx context.Context) ([]model.Topic, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.name, t.last_seen, t.updated_at, COUNT(s.user_id)
		FROM topics t
		LEFT JOIN subscriptions s ON s.topic_name = t.name
		GROUP BY t.name, t.last_seen, t.updated_at
		ORDER BY t.name`)
	if err != nil {
		return nil, fmt.Errorf("listing topics: %w", err)
	}
	defer rows.Close()

	var topics []model.Topic
	for rows.Next() {
		var t model.Topic
		var updated int64
		if err := rows.Scan(&t.Name, &t.LastSeen, &updated, &t.Subscribers); err != nil {
			return nil, fmt.Errorf("scanning topic: %w", err)
		}
		t.UpdatedAt = time.Unix(updated, 0)
		topics = append(topics, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing topics: %w", err)
	}
	return topics, nil
}

// LastSeen returns the last observed top listing URL, or "" when the topic
// has never been checked or does not exist.
func (s *SQLiteStore) LastSeen(ctx context.Context, topic string) (string, error) {
	var lastSeen string
	err := s.db.QueryRowContext(ctx, "SELECT last_seen FROM topics WHERE name = ?", topic).Scan(&lastSeen)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading last seen for %s: %w", topic, err)
	}
	return lastSeen, nil
}

// SetLastSeen records value as the topic's last seen listing. It is a no-op
// when the topic has been deleted meanwhile.
func (s *SQLiteStore) SetLastSeen(ctx context.Context, topic, value string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE topics SET last_seen = ?, updated_at = ? WHERE name = ?",
		value, time.Now().Unix(), topic,
	)
	if err != nil {
		return fmt.Errorf("setting last seen for %s: %w", topic, err)
	}
	return nil
}

func (s *SQLiteStore) Subscribers(ctx context.Context, topic string) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT user_id FROM subscriptions WHERE topic_name = ? ORDER BY user_id", topic)
	if err != nil {
		return nil, fmt.Errorf("listing subscribers of %s: %w", topic, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning subscriber: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteStore) TopicExists(ctx context.Context, topic string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM topics WHERE name = ?", topic).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking topic %s: %w", topic, err)
	}
	return true, nil
}

// CreateTopic inserts the topic if it does not exist yet.
func (s *SQLiteStore) CreateTopic(ctx context.Context, topic string) error {
	now := time.Now().Unix()
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO topics (name, created_at, updated_at) VALUES (?, ?, ?)",
		topic, now, now,
	)
	if err != nil {
		return fmt.Errorf("creating topic %s: %w", topic, err)
	}
	return nil
}

// DeleteTopicIfOrphaned deletes the topic when nobody subscribes to it.
func (s *SQLiteStore) DeleteTopicIfOrphaned(ctx context.Context, topic string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM topics
		WHERE name = ?
		  AND NOT EXISTS (SELECT 1 FROM subscriptions WHERE topic_name = topics.name)`,
		topic,
	)
	if err != nil {
		return false, fmt.Errorf("deleting orphaned topic %s: %w", topic, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deleting orphaned topic %s: %w", topic, err)
	}
	return n > 0, nil
}

// AddSubscription subscribes the user to topic, creating both when absent.
func (s *SQLiteStore) AddSubscription(ctx context.Context, user model.User, topic string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().Unix()
	if _, err := tx.ExecContext(ctx, upsertUserSQLite, user.ID, user.Username, now); err != nil {
		return false, fmt.Errorf("saving user %d: %w", user.ID, err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO topics (name, created_at, updated_at) VALUES (?, ?, ?)",
		topic, now, now,
	); err != nil {
		return false, fmt.Errorf("creating topic %s: %w", topic, err)
	}
	res, err := tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO subscriptions (user_id, topic_name, created_at) VALUES (?, ?, ?)",
		user.ID, topic, now,
	)
	if err != nil {
		return false, fmt.Errorf("subscribing %d to %s: %w", user.ID, topic, err)
	}
	added, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("subscribing %d to %s: %w", user.ID, topic, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing subscription: %w", err)
	}
	return added > 0, nil
}

// RemoveSubscription unsubscribes the user and deletes the topic if it has
// no subscribers left.
func (s *SQLiteStore) RemoveSubscription(ctx context.Context, userID int64, topic string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		"DELETE FROM subscriptions WHERE user_id = ? AND topic_name = ?", userID, topic)
	if err != nil {
		return false, fmt.Errorf("unsubscribing %d from %s: %w", userID, topic, err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("unsubscribing %d from %s: %w", userID, topic, err)
	}
	if removed == 0 {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM topics
		WHERE name = ?
		  AND NOT EXISTS (SELECT 1 FROM subscriptions WHERE topic_name = topics.name)`,
		topic,
	); err != nil {
		return false, fmt.Errorf("deleting orphaned topic %s: %w", topic, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing unsubscription: %w", err)
	}
	return true, nil
}

const upsertUserSQLite = `
	INSERT INTO users (id, username, created_at) VALUES (?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET username = CASE
		WHEN excluded.username <> '' THEN excluded.username
		ELSE users.username
	END`

// RegisterUser records the chat identity, keeping a known username when the
// new one is empty.
func (s *SQLiteStore) RegisterUser(ctx context.Context, user model.User) error {
	if _, err := s.db.ExecContext(ctx, upsertUserSQLite, user.ID, user.Username, time.Now().Unix()); err != nil {
		return fmt.Errorf("registering user %d: %w", user.ID, err)
	}
	return nil
}

func (s *SQLiteStore) UserTopics(ctx context.Context, userID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT topic_name FROM subscriptions WHERE user_id = ? ORDER BY topic_name", userID)
	if err != nil {
		return nil, fmt.Errorf("listing topics of %d: %w", userID, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning topic: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
