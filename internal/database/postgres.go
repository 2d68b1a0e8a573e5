package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

const episodesSchema = `CREATE TABLE IF NOT EXISTS episodes (
	id BIGINT PRIMARY KEY,
	title TEXT NOT NULL,
	number BIGINT NOT NULL,
	video_path TEXT NOT NULL DEFAULT '',
	hls_path TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const upsertManifestPath = `INSERT INTO episodes (id, title, number, hls_path, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5)
ON CONFLICT (id) DO UPDATE
SET hls_path = EXCLUDED.hls_path,
	updated_at = EXCLUDED.updated_at`

type Postgres struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create postgres pool")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "unable to reach postgres")
	}

	return &Postgres{pool: pool, now: time.Now}, nil
}

// Migrate creates the episodes table when missing.
func (p *Postgres) Migrate(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, episodesSchema)
	return errors.Wrap(err, "unable to create episodes table")
}

func (p *Postgres) UpsertManifestPath(ctx context.Context, assetID int64, path string) error {
	draft := Draft(assetID, path, p.now().UTC())

	_, err := p.pool.Exec(ctx, upsertManifestPath, draft.ID, draft.Title, draft.Number, draft.HLSPath, draft.CreatedAt)
	return errors.Wrapf(err, "unable to upsert episode %d", assetID)
}

func (p *Postgres) ManifestPath(ctx context.Context, assetID int64) (string, error) {
	var path *string

	err := p.pool.QueryRow(ctx, `SELECT hls_path FROM episodes WHERE id = $1`, assetID).Scan(&path)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", errors.Wrapf(err, "unable to read episode %d", assetID)
	}

	if path == nil || *path == "" {
		return "", ErrNotFound
	}

	return *path, nil
}

func (p *Postgres) Episode(ctx context.Context, assetID int64) (Episode, error) {
	var (
		episode Episode
		hlsPath *string
	)

	err := p.pool.QueryRow(ctx,
		`SELECT id, title, number, video_path, hls_path, created_at, updated_at FROM episodes WHERE id = $1`,
		assetID,
	).Scan(&episode.ID, &episode.Title, &episode.Number, &episode.VideoPath, &hlsPath, &episode.CreatedAt, &episode.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return Episode{}, ErrNotFound
	}
	if err != nil {
		return Episode{}, errors.Wrapf(err, "unable to read episode %d", assetID)
	}

	if hlsPath != nil {
		episode.HLSPath = *hlsPath
	}

	return episode, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
