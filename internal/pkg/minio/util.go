package minio

import (
	"KoraChat/internal/api/config"
	"context"
	"fmt"
	"net/url"

	"github.com/minio/minio-go/v7"
)

// AttachmentExists 客户端未初始化时不做校验
func AttachmentExists(ctx context.Context, objectName string) (bool, error) {
	if Client == nil {
		return true, nil
	}
	_, err := Client.StatObject(ctx, AttachmentBucket, objectName, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// GetPublicURL 获取附件的公共访问URL，未启用或未配置外部地址时返回空串
func GetPublicURL(objectName string) string {
	if objectName == "" || config.Cfg == nil {
		return ""
	}
	cfg := config.Cfg.MinIO
	if !cfg.Enable || cfg.ExternalEndpoint == "" {
		return ""
	}

	protocol := "http"
	if cfg.ExternalUseSSL {
		protocol = "https"
	}

	u := url.URL{
		Scheme: protocol,
		Host:   cfg.ExternalEndpoint,
		Path:   fmt.Sprintf("/%s/%s", cfg.AttachmentBucket, objectName),
	}
	return u.String()
}
