package localstore

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
)

// FileStore 每个键一个文件，写入走临时文件+rename保证单键原子性
// 文件名是键的URL安全base64编码，键内容不受文件系统字符限制
type FileStore struct {
	dir    string
	cipher *blobCipher
}

func NewFileStore(dir string, cipher *blobCipher) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir, cipher: cipher}, nil
}

func (s *FileStore) path(key string) string {
	name := base64.URLEncoding.EncodeToString([]byte(key)) + ".blob"
	return filepath.Join(s.dir, name)
}

func (s *FileStore) Get(ctx context.Context, key string) (string, bool, error) {
	raw, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, err
	}
	value := string(raw)
	if s.cipher != nil {
		value, err = s.cipher.open(value)
		if err != nil {
			return "", false, err
		}
	}
	return value, true, nil
}

func (s *FileStore) Set(ctx context.Context, key, value string) error {
	if s.cipher != nil {
		sealed, err := s.cipher.seal(value)
		if err != nil {
			return err
		}
		value = sealed
	}

	dst := s.path(key)
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

func (s *FileStore) Delete(ctx context.Context, key string) error {
	err := os.Remove(s.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *FileStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".blob") {
			continue
		}
		decoded, err := base64.URLEncoding.DecodeString(strings.TrimSuffix(name, ".blob"))
		if err != nil {
			// 目录里混入的无关文件，跳过
			continue
		}
		key := string(decoded)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}
