package database

import (
	"context"
	"strconv"
	"time"

	"github.com/go-redis/redis/v7"
	"github.com/pkg/errors"
)

type redisDb struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedis connects to redis and serves both the job bookkeeping and the
// episode metadata.
func NewRedis(options *redis.Options) (*redisDb, error) {
	client := redis.NewClient(options)

	if _, err := client.Ping().Result(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &redisDb{client: client, now: time.Now}, nil
}

func (r *redisDb) Get(key string) (data string, err error) {
	data, err = r.client.Get(key).Result()
	if err == redis.Nil {
		return "", ErrNotFound
	}
	return data, err
}

func (r *redisDb) Set(key string, data string, expiration time.Duration) (err error) {
	return r.client.Set(key, data, expiration).Err()
}

func (r *redisDb) Delete(key string) (err error) {
	return r.client.Del(key).Err()
}

func (r *redisDb) UpsertManifestPath(ctx context.Context, assetID int64, path string) error {
	key := episodeKey(assetID)
	draft := Draft(assetID, path, r.now().UTC())
	now := draft.UpdatedAt.Format(time.RFC3339Nano)

	_, err := r.client.WithContext(ctx).TxPipelined(func(pipe redis.Pipeliner) error {
		pipe.HSetNX(key, "title", draft.Title)
		pipe.HSetNX(key, "number", strconv.FormatInt(draft.Number, 10))
		pipe.HSetNX(key, "videoPath", draft.VideoPath)
		pipe.HSetNX(key, "createdAt", now)
		pipe.HSet(key, "hlsPath", path)
		pipe.HSet(key, "updatedAt", now)
		return nil
	})

	return errors.Wrapf(err, "unable to upsert episode %d", assetID)
}

func (r *redisDb) ManifestPath(ctx context.Context, assetID int64) (string, error) {
	path, err := r.client.WithContext(ctx).HGet(episodeKey(assetID), "hlsPath").Result()

	if err == redis.Nil || (err == nil && path == "") {
		return "", ErrNotFound
	}

	if err != nil {
		return "", errors.Wrapf(err, "unable to read episode %d", assetID)
	}

	return path, nil
}

// Episode loads the full record, mostly for operators and tests.
func (r *redisDb) Episode(ctx context.Context, assetID int64) (Episode, error) {
	fields, err := r.client.WithContext(ctx).HGetAll(episodeKey(assetID)).Result()

	if err != nil {
		return Episode{}, errors.Wrapf(err, "unable to read episode %d", assetID)
	}

	if len(fields) == 0 {
		return Episode{}, ErrNotFound
	}

	episode := Episode{
		ID:        assetID,
		Title:     fields["title"],
		VideoPath: fields["videoPath"],
		HLSPath:   fields["hlsPath"],
	}
	episode.Number, _ = strconv.ParseInt(fields["number"], 10, 64)
	episode.CreatedAt, _ = time.Parse(time.RFC3339Nano, fields["createdAt"])
	episode.UpdatedAt, _ = time.Parse(time.RFC3339Nano, fields["updatedAt"])

	return episode, nil
}

func (r *redisDb) Close() error {
	return r.client.Close()
}

func episodeKey(assetID int64) string {
	return "episode:" + strconv.FormatInt(assetID, 10)
}
