package storage

import (
	"context"

	gcs "cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"gocloud.dev/blob/gcsblob"
	"gocloud.dev/gcp"
	"golang.org/x/oauth2/google"
)

func NewGCS(ctx context.Context, bucketName string) (Bucket, error) {
	creds, err := google.FindDefaultCredentials(ctx, gcs.ScopeReadWrite)

	if err != nil {
		return nil, errors.Wrap(err, "gcp credentials")
	}

	client, err := gcp.NewHTTPClient(gcp.DefaultTransport(), gcp.CredentialsTokenSource(creds))

	if err != nil {
		return nil, errors.Wrap(err, "gcp http client")
	}

	b, err := gcsblob.OpenBucket(ctx, client, bucketName, nil)

	if err != nil {
		return nil, err
	}

	return &bucket{bucket: b}, nil
}
