/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

// Package store persists the player queue between server runs.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"hdxremote/internal/protocol"
)

// Snapshot is the persisted part of the player state.
type Snapshot struct {
	Queue      []protocol.Item
	RepeatMode string
	Volume     int
}

type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS queue_items (
	position    INTEGER PRIMARY KEY,
	id          INTEGER NOT NULL,
	uri         TEXT    NOT NULL,
	title       TEXT    NOT NULL DEFAULT '',
	duration_ms INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS settings (
	name  TEXT PRIMARY KEY,
	value TEXT NOT NULL
);`

// Open creates or opens the database at path.
func Open(path string, busyTimeout time.Duration) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open state db")
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", int(busyTimeout/time.Millisecond)),
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, errors.Wrap(err, p)
		}
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(schema)
	return errors.Wrap(err, "migrate state db")
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save replaces the stored snapshot in one transaction.
func (s *Store) Save(ctx context.Context, snap Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM queue_items"); err != nil {
		return errors.Wrap(err, "clear queue")
	}
	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO queue_items (position, id, uri, title, duration_ms) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return errors.Wrap(err, "prepare insert")
	}
	defer stmt.Close()
	for i, it := range snap.Queue {
		if _, err := stmt.ExecContext(ctx, i, it.ID, it.URI, it.Title, it.DurationMs); err != nil {
			return errors.Wrapf(err, "insert item %d", i)
		}
	}

	settings := map[string]string{
		"repeat_mode": snap.RepeatMode,
		"volume":      fmt.Sprint(snap.Volume),
	}
	for name, value := range settings {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO settings (name, value) VALUES (?, ?) ON CONFLICT(name) DO UPDATE SET value = excluded.value",
			name, value); err != nil {
			return errors.Wrapf(err, "save %s", name)
		}
	}
	return errors.Wrap(tx.Commit(), "commit")
}

// Load returns the stored snapshot. An empty database yields a zero
// snapshot with volume 100.
func (s *Store) Load(ctx context.Context) (Snapshot, error) {
	snap := Snapshot{Volume: 100}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, uri, title, duration_ms FROM queue_items ORDER BY position")
	if err != nil {
		return snap, errors.Wrap(err, "query queue")
	}
	defer rows.Close()
	for rows.Next() {
		var it protocol.Item
		if err := rows.Scan(&it.ID, &it.URI, &it.Title, &it.DurationMs); err != nil {
			return snap, errors.Wrap(err, "scan item")
		}
		snap.Queue = append(snap.Queue, it)
	}
	if err := rows.Err(); err != nil {
		return snap, errors.Wrap(err, "queue rows")
	}

	var repeat string
	err = s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE name = 'repeat_mode'").Scan(&repeat)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return snap, errors.Wrap(err, "load repeat mode")
	default:
		snap.RepeatMode = repeat
	}

	var volume int
	err = s.db.QueryRowContext(ctx, "SELECT CAST(value AS INTEGER) FROM settings WHERE name = 'volume'").Scan(&volume)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return snap, errors.Wrap(err, "load volume")
	default:
		snap.Volume = volume
	}
	return snap, nil
}
