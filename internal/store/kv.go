package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/klauern/hookwarden/internal/core"
)

// ErrNotFound is returned when a key has no value
var ErrNotFound = errors.New("key not found")

// timestamps are fixed width so they compare as strings
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Entry is one stored value
type Entry struct {
	Scope     core.Scope `json:"scope"`
	Owner     string     `json:"owner"`
	Key       string     `json:"key"`
	Value     any        `json:"value"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func validate(scope core.Scope, owner, key string) error {
	if _, ok := core.ParseScope(string(scope)); !ok {
		return fmt.Errorf("invalid scope %q (use session or project)", scope)
	}
	if strings.TrimSpace(owner) == "" {
		return fmt.Errorf("%s scope requires an owner", scope)
	}
	if strings.TrimSpace(key) == "" {
		return errors.New("key must not be empty")
	}
	return nil
}

// Get returns the decoded value for a key, or ErrNotFound
func (s *Store) Get(ctx context.Context, scope core.Scope, owner, key string) (any, error) {
	if err := validate(scope, owner, key); err != nil {
		return nil, err
	}
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE scope = ? AND owner = ? AND key = ?`,
		string(scope), owner, key,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, scope, key)
	}
	if err != nil {
		return nil, fmt.Errorf("query value: %w", err)
	}
	return decode(raw)
}

// Set stores value as JSON, replacing any previous value
func (s *Store) Set(ctx context.Context, scope core.Scope, owner, key string, value any) error {
	if err := validate(scope, owner, key); err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode value: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO kv (scope, owner, key, value, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (scope, owner, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, string(scope), owner, key, string(data), time.Now().UTC().Format(timeFormat))
	if err != nil {
		return fmt.Errorf("store value: %w", err)
	}
	return nil
}

// Delete removes a key, returning ErrNotFound when it did not exist
func (s *Store) Delete(ctx context.Context, scope core.Scope, owner, key string) error {
	if err := validate(scope, owner, key); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM kv WHERE scope = ? AND owner = ? AND key = ?`,
		string(scope), owner, key,
	)
	if err != nil {
		return fmt.Errorf("delete value: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete value: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, scope, key)
	}
	return nil
}

// List returns every entry of an owner ordered by key. Returns an empty
// slice (not nil) when there are none.
func (s *Store) List(ctx context.Context, scope core.Scope, owner string) ([]Entry, error) {
	if err := validate(scope, owner, "-"); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, value, updated_at FROM kv
		WHERE scope = ? AND owner = ?
		ORDER BY key COLLATE BINARY ASC
	`, string(scope), owner)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var key, raw, updated string
		if err := rows.Scan(&key, &raw, &updated); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		value, err := decode(raw)
		if err != nil {
			return nil, err
		}
		ts, _ := time.Parse(timeFormat, updated)
		entries = append(entries, Entry{Scope: scope, Owner: owner, Key: key, Value: value, UpdatedAt: ts})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

// Prune deletes entries of a scope not updated since before, returning how
// many were removed
func (s *Store) Prune(ctx context.Context, scope core.Scope, before time.Time) (int64, error) {
	if _, ok := core.ParseScope(string(scope)); !ok {
		return 0, fmt.Errorf("invalid scope %q (use session or project)", scope)
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM kv WHERE scope = ? AND updated_at < ?`,
		string(scope), before.UTC().Format(timeFormat),
	)
	if err != nil {
		return 0, fmt.Errorf("prune entries: %w", err)
	}
	return res.RowsAffected()
}

// Lookup implements core.KeyValueReader. A missing key is not an error.
func (s *Store) Lookup(scope core.Scope, owner, key string) (any, bool, error) {
	if owner == "" {
		return nil, false, nil
	}
	v, err := s.Get(context.Background(), scope, owner, key)
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func decode(raw string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	return v, nil
}

// ParseValue interprets command-line input: valid JSON is stored as the
// value it encodes, anything else as a plain string
func ParseValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v
	}
	return s
}
