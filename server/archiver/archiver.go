// Package archiver keeps a history of every finished run in sqlite.
package archiver

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/marcopiovanello/yt-dlp-remote/server/internal"
	"github.com/marcopiovanello/yt-dlp-remote/server/internal/session"

	_ "modernc.org/sqlite"
)

const DefaultLimit = 50

var ErrNoRunId = errors.New("snapshot has no run id")

type Entity struct {
	Id         string           `json:"id"`
	URL        string           `json:"url"`
	Path       string           `json:"path"`
	Quality    internal.Quality `json:"quality"`
	Status     internal.Status  `json:"status"`
	ExitCode   int              `json:"exit_code"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
}

type Archiver struct {
	db *sql.DB
}

func Open(path string) (*Archiver, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	a, err := New(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return a, nil
}

func New(db *sql.DB) (*Archiver, error) {
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	if err := automigrate(context.Background(), db); err != nil {
		return nil, err
	}

	return &Archiver{db: db}, nil
}

func automigrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS downloads (
			id          TEXT PRIMARY KEY,
			url         TEXT NOT NULL,
			path        TEXT NOT NULL,
			quality     TEXT NOT NULL,
			status      TEXT NOT NULL,
			exit_code   INTEGER NOT NULL,
			started_at  DATETIME NOT NULL,
			finished_at DATETIME NOT NULL
		)`,
	)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_downloads_finished ON downloads(finished_at)`,
	)
	return err
}

// Register subscribes the archiver to finished runs. Writes happen on a
// separate goroutine, one at a time.
func (a *Archiver) Register(bus EventBus.Bus) error {
	return bus.SubscribeAsync(session.TopicFinished, a.onFinished, true)
}

func (a *Archiver) onFinished(snap internal.ProcessSnapshot) {
	if err := a.Archive(context.Background(), snap); err != nil {
		slog.Error("failed to archive download", slog.String("url", snap.Request.URL), slog.Any("err", err))
		return
	}

	slog.Info(
		"archived download",
		slog.String("url", snap.Request.URL),
		slog.String("status", snap.Progress.Status.String()),
	)
}

func (a *Archiver) Archive(ctx context.Context, snap internal.ProcessSnapshot) error {
	if snap.Id == "" {
		return ErrNoRunId
	}

	finishedAt := snap.FinishedAt
	if finishedAt.IsZero() {
		finishedAt = time.Now()
	}

	_, err := a.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO downloads
			(id, url, path, quality, status, exit_code, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.Id,
		snap.Request.URL,
		snap.Request.Path,
		string(snap.Request.Quality),
		string(snap.Progress.Status),
		snap.ExitCode,
		snap.StartedAt.UTC(),
		finishedAt.UTC(),
	)
	return err
}

// List returns at most limit entries, newest first.
func (a *Archiver) List(ctx context.Context, limit int) ([]Entity, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	rows, err := a.db.QueryContext(ctx,
		`SELECT id, url, path, quality, status, exit_code, started_at, finished_at
		FROM downloads
		ORDER BY finished_at DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entities := make([]Entity, 0)
	for rows.Next() {
		var e Entity
		err := rows.Scan(
			&e.Id,
			&e.URL,
			&e.Path,
			&e.Quality,
			&e.Status,
			&e.ExitCode,
			&e.StartedAt,
			&e.FinishedAt,
		)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}

	return entities, rows.Err()
}

func (a *Archiver) Close() error { return a.db.Close() }
