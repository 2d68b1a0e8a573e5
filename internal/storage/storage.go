package storage

import (
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"gocloud.dev/blob"
)

// Bucket is the object storage the finished asset tree is mirrored to.
type Bucket interface {
	Write(ctx context.Context, key string, input io.Reader, contentType string) (err error)
	// Delete removes every object under prefix.
	Delete(ctx context.Context, prefix string) (err error)
	Close() error
}

// Options carries the provider specific settings used by Open.
type Options struct {
	AWS S3Options
}

// Open dispatches on the URL scheme: file:///path, s3://bucket or gs://bucket.
func Open(ctx context.Context, rawURL string, opts Options) (Bucket, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid bucket url '%s'", rawURL)
	}

	switch u.Scheme {
	case "file":
		return NewLocal(ctx, u.Path)
	case "s3":
		return NewS3(ctx, u.Host, opts.AWS)
	case "gs":
		return NewGCS(ctx, u.Host)
	default:
		return nil, errors.Errorf("unsupported bucket scheme '%s'", u.Scheme)
	}
}

type bucket struct {
	bucket *blob.Bucket
}

func (b *bucket) Write(ctx context.Context, key string, input io.Reader, contentType string) error {
	writer, err := b.bucket.NewWriter(ctx, key, &blob.WriterOptions{ContentType: contentType})

	if err != nil {
		return err
	}

	if _, err = io.Copy(writer, input); err != nil {
		_ = writer.Close()
		return err
	}

	return writer.Close()
}

func (b *bucket) Delete(ctx context.Context, prefix string) error {
	iter := b.bucket.List(&blob.ListOptions{
		Prefix: strings.TrimLeft(prefix, "/"),
	})

	for {
		obj, err := iter.Next(ctx)

		if err == io.EOF {
			break
		}

		if err != nil {
			return err
		}

		if obj.IsDir {
			continue
		}

		if err = b.bucket.Delete(ctx, obj.Key); err != nil {
			return err
		}
	}

	return nil
}

func (b *bucket) Close() error {
	return b.bucket.Close()
}
