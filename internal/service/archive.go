package service

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"course_sync_backend/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ArchiveProvider 已冲刷聊天记录的归档存储接口
type ArchiveProvider interface {
	Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (string, error)
}

func archiveBlob(ctx context.Context, p ArchiveProvider, name, raw string) error {
	_, err := p.Upload(ctx, name, strings.NewReader(raw), int64(len(raw)), "application/json")
	return err
}

// NewArchiveProvider 按配置构建归档存储，未启用时返回nil
func NewArchiveProvider(cfg *config.ArchiveConfig) (ArchiveProvider, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if cfg.Type == "local" {
		return &LocalArchiveProvider{Config: cfg}, nil
	}
	return NewMinioArchiveProvider(cfg)
}

// LocalArchiveProvider 本地磁盘归档实现
type LocalArchiveProvider struct {
	Config *config.ArchiveConfig
}

func (p *LocalArchiveProvider) Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (string, error) {
	dst := filepath.Join(p.Config.LocalPath, objectName)
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", err
	}

	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, reader); err != nil {
		return "", err
	}
	return dst, nil
}

// MinioArchiveProvider MinIO归档实现
type MinioArchiveProvider struct {
	Config *config.ArchiveConfig
	Client *minio.Client
}

func NewMinioArchiveProvider(cfg *config.ArchiveConfig) (*MinioArchiveProvider, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: false,
	})
	if err != nil {
		return nil, err
	}
	return &MinioArchiveProvider{Config: cfg, Client: client}, nil
}

func (p *MinioArchiveProvider) Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (string, error) {
	_, err := p.Client.PutObject(ctx, p.Config.MinioBucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	return p.Config.MinioBucket + "/" + objectName, nil
}
