package minio

import (
	"KoraChat/internal/api/config"
	"context"
	"fmt"
	log "log/slog"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var (
	// Client 全局 MinIO 客户端实例，未启用时为 nil
	Client *minio.Client
	// AttachmentBucket 聊天附件所在的桶
	AttachmentBucket string
)

// Init 初始化 MinIO 客户端，附件由市场主站上传，这里只校验对象与拼接地址
func Init() error {
	cfg := config.Cfg.MinIO
	AttachmentBucket = cfg.AttachmentBucket
	if !cfg.Enable {
		log.Info("MinIO disabled, attachment urls are not resolved")
		return nil
	}

	var endpoint string
	var useSSL bool
	if cfg.InternalEndpoint != "" {
		endpoint = cfg.InternalEndpoint
		useSSL = cfg.InternalUseSSL
	} else {
		endpoint = cfg.ExternalEndpoint
		useSSL = cfg.ExternalUseSSL
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize minio client: %w", err)
	}

	exists, err := client.BucketExists(context.Background(), AttachmentBucket)
	if err != nil {
		return fmt.Errorf("failed to connect to minio server: %w", err)
	}
	if !exists {
		return fmt.Errorf("attachment bucket %q does not exist", AttachmentBucket)
	}

	Client = client
	return nil
}
