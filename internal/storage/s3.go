package storage

import (
	"context"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"gocloud.dev/blob/s3blob"
)

type S3Options struct {
	Region   string
	Endpoint string
	ID       string
	Secret   string
}

func (o S3Options) config() *aws.Config {
	config := &aws.Config{}

	if o.Region != "" {
		config.Region = aws.String(o.Region)
	}

	// custom endpoints (minio, ceph) only serve path style requests
	if o.Endpoint != "" {
		config.Endpoint = aws.String(o.Endpoint)
		config.S3ForcePathStyle = aws.Bool(true)
	}

	if o.ID != "" {
		config.Credentials = credentials.NewStaticCredentials(o.ID, o.Secret, "")
	}

	return config
}

func NewS3(ctx context.Context, bucketName string, opts S3Options) (Bucket, error) {
	sess, err := session.NewSession(opts.config())

	if err != nil {
		return nil, err
	}

	b, err := s3blob.OpenBucket(ctx, sess, bucketName, nil)

	if err != nil {
		return nil, err
	}

	return &bucket{bucket: b}, nil
}
