package database

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("not found")

// Database is a small key/value store used for job bookkeeping.
type Database interface {
	Get(key string) (data string, err error)
	Set(key string, data string, expiration time.Duration) (err error)
	Delete(key string) (err error)
}

// Store is the metadata store keeping the manifest location of every asset.
type Store interface {
	// UpsertManifestPath records path for the asset, creating a draft episode
	// record when none exists and updating it in place otherwise.
	UpsertManifestPath(ctx context.Context, assetID int64, path string) error
	// ManifestPath returns ErrNotFound when the asset has no record or no
	// manifest yet.
	ManifestPath(ctx context.Context, assetID int64) (string, error)
	Close() error
}

// Episode is the metadata record of an asset.
type Episode struct {
	ID        int64
	Title     string
	Number    int64
	VideoPath string
	HLSPath   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Draft returns the placeholder record created on the first successful run
// of an asset nobody registered yet.
func Draft(assetID int64, hlsPath string, now time.Time) Episode {
	return Episode{
		ID:        assetID,
		Title:     fmt.Sprintf("Episode %d", assetID),
		Number:    assetID,
		HLSPath:   hlsPath,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
