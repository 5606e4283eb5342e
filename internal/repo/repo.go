package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"taskboard/internal/domain"
	"taskboard/internal/kv"
)

// Repo is the SQLite persistence layer: the kv table backing the task store and
// board registry, and the events table backing the analytics log.
type Repo struct {
	DB  *sql.DB
	Now func() time.Time
}

var ErrNotFound = kv.ErrNotFound

var _ kv.Store = Repo{}

func (r Repo) now() string {
	if r.Now != nil {
		return r.Now().UTC().Format(time.RFC3339)
	}
	return time.Now().UTC().Format(time.RFC3339)
}

func (r Repo) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := r.DB.QueryRowContext(ctx, `SELECT value FROM kv WHERE key=?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (r Repo) Set(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := r.DB.ExecContext(ctx, `INSERT INTO kv(key,value,updated_at) VALUES (?,?,?)
ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`, key, value, r.now())
	return err
}

// Delete removes key; deleting a missing key is not an error.
func (r Repo) Delete(ctx context.Context, key string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM kv WHERE key=?`, key)
	return err
}

// Keys lists stored keys with the given prefix in key order.
func (r Repo) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT key FROM kv WHERE substr(key,1,?)=? ORDER BY key`, len(prefix), prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (r Repo) AppendEvent(ctx context.Context, name, paramsJSON string) (int64, error) {
	if paramsJSON == "" {
		paramsJSON = "{}"
	}
	res, err := r.DB.ExecContext(ctx, `INSERT INTO events(ts,name,params_json) VALUES (?,?,?)`, r.now(), name, paramsJSON)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// TailEvents returns up to limit events, newest first.
func (r Repo) TailEvents(ctx context.Context, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT id,ts,name,params_json FROM events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.TS, &e.Name, &e.Params); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// CountEvents returns the number of events with the given name.
func (r Repo) CountEvents(ctx context.Context, name string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE name=?`, name).Scan(&n)
	return n, err
}
