package localstore

import (
	"context"
	"strings"

	"github.com/go-redis/redis/v8"
)

// redis键统一挂在一个命名空间下，避免与其他使用方冲突
const redisNamespace = "localstore:"

// RedisStore 多实例部署时共享的本地缓存实现
type RedisStore struct {
	rdb    *redis.Client
	cipher *blobCipher
}

func NewRedisStore(rdb *redis.Client, cipher *blobCipher) *RedisStore {
	return &RedisStore{rdb: rdb, cipher: cipher}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.rdb.Get(ctx, redisNamespace+key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if s.cipher != nil {
		value, err = s.cipher.open(value)
		if err != nil {
			return "", false, err
		}
	}
	return value, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if s.cipher != nil {
		sealed, err := s.cipher.seal(value)
		if err != nil {
			return err
		}
		value = sealed
	}
	return s.rdb.Set(ctx, redisNamespace+key, value, 0).Err()
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, redisNamespace+key).Err()
}

func (s *RedisStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := s.rdb.Scan(ctx, 0, redisNamespace+prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), redisNamespace))
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}
