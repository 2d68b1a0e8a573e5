package storage

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"gocloud.dev/blob/fileblob"
)

func NewLocal(_ context.Context, path string) (Bucket, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, errors.Wrapf(err, "unable to create local bucket '%s'", path)
	}

	b, err := fileblob.OpenBucket(path, nil)

	if err != nil {
		return nil, err
	}

	return &bucket{bucket: b}, nil
}
