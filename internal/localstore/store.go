// Package localstore 提供设备侧语义的字符串KV缓存：
// 进度快照、测验与聊天缓冲都以JSON blob形式存放在这里，
// 远端数据库才是最终记录，本地损坏按"无数据"处理。
package localstore

import (
	"context"
	"fmt"

	"course_sync_backend/internal/config"

	"github.com/go-redis/redis/v8"
)

// Store 字符串KV存储接口
type Store interface {
	// Get 返回值与是否存在；损坏或缺失由上层按空值处理
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	// Keys 返回所有以prefix开头的键
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// New 按配置构建本地存储
func New(cfg *config.LocalStoreConfig, rdb *redis.Client) (Store, error) {
	var cipher *blobCipher
	if cfg.EncryptionKey != "" {
		cipher = newBlobCipher(cfg.EncryptionKey)
	}

	switch cfg.Type {
	case "file", "":
		fs, err := NewFileStore(cfg.Path, cipher)
		if err != nil {
			return nil, err
		}
		return fs, nil
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("localstore: redis provider requires a redis client")
		}
		return NewRedisStore(rdb, cipher), nil
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("localstore: unknown provider type %q", cfg.Type)
	}
}
