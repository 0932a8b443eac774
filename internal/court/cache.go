package court

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const cacheKeyPrefix = "scheduler:courts:"

// cachedDirectory is a read-through redis cache in front of a Directory.
// Cache failures fall back to the underlying directory.
type cachedDirectory struct {
	next Directory
	rdb  *redis.Client
	ttl  time.Duration
	log  *logrus.Logger
}

func NewCachedDirectory(next Directory, rdb *redis.Client, ttl time.Duration, log *logrus.Logger) Directory {
	return &cachedDirectory{next: next, rdb: rdb, ttl: ttl, log: log}
}

func courtKey(id string) string {
	return cacheKeyPrefix + "id:" + id
}

func venueSportKey(venueID, sportType string) string {
	return cacheKeyPrefix + "venue:" + venueID + ":sport:" + sportType
}

func (d *cachedDirectory) GetByID(ctx context.Context, id string) (*Court, error) {
	var c Court
	if d.load(ctx, courtKey(id), &c) {
		return &c, nil
	}

	res, err := d.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	d.store(ctx, courtKey(id), res)
	return res, nil
}

func (d *cachedDirectory) ListActive(ctx context.Context, venueID, sportType string) ([]*Court, error) {
	key := venueSportKey(venueID, sportType)
	var courts []*Court
	if d.load(ctx, key, &courts) {
		return courts, nil
	}

	courts, err := d.next.ListActive(ctx, venueID, sportType)
	if err != nil {
		return nil, err
	}
	d.store(ctx, key, courts)
	return courts, nil
}

func (d *cachedDirectory) load(ctx context.Context, key string, dst any) bool {
	raw, err := d.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			d.log.WithError(err).WithField("key", key).Warn("court cache read failed")
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		d.log.WithError(err).WithField("key", key).Warn("court cache entry corrupt")
		return false
	}
	return true
}

func (d *cachedDirectory) store(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := d.rdb.Set(ctx, key, raw, d.ttl).Err(); err != nil {
		d.log.WithError(err).WithField("key", key).Warn("court cache write failed")
	}
}
