package redisx

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const cmdTimeout = 2 * time.Second

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  cmdTimeout,
		ReadTimeout:  cmdTimeout,
		WriteTimeout: cmdTimeout,
	})
}

func Exists(ctx context.Context, rdb redis.Cmdable, key string) (bool, error) {
	n, err := rdb.Exists(ctx, key).Result()
	return n > 0, err
}

// DeleteByPrefix menghapus semua key dengan prefix tertentu lewat SCAN
// (bukan KEYS, biar tidak blocking di instance besar).
func DeleteByPrefix(ctx context.Context, rdb redis.Cmdable, prefix string) error {
	iter := rdb.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
