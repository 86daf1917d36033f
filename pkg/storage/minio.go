// Package storage 提供了与对象存储服务（MinIO）交互的功能，用于归档聊天导出文件。
package storage

import (
	"bytes"
	"context"
	"time"

	"matesl-go/internal/config"
	"matesl-go/pkg/log"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Archive 把导出文件写入存储桶并生成限时下载链接。
type Archive struct {
	client *minio.Client
	bucket string
	expiry time.Duration
}

// NewArchive 初始化 MinIO 客户端并确保存储桶存在。
func NewArchive(ctx context.Context, cfg config.MinIOConfig) (*Archive, error) {
	// 1. 初始化 MinIO 客户端
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}
	log.Info("MinIO 客户端初始化成功")

	// 2. 检查存储桶是否存在，如果不存在则创建
	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, err
	}
	if !exists {
		log.Infof("存储桶 '%s' 不存在，正在创建...", cfg.BucketName)
		if err := client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, err
		}
		log.Infof("存储桶 '%s' 创建成功", cfg.BucketName)
	}

	expiry := cfg.LinkExpiry
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	return &Archive{client: client, bucket: cfg.BucketName, expiry: expiry}, nil
}

// Put 上传对象并返回预签名下载链接。
func (a *Archive) Put(ctx context.Context, objectName, contentType string, data []byte) (string, error) {
	_, err := a.client.PutObject(ctx, a.bucket, objectName, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		log.Errorf("上传对象 '%s' 失败: %v", objectName, err)
		return "", err
	}
	return a.PresignedURL(ctx, objectName)
}

// PresignedURL 生成对象的限时下载链接。
func (a *Archive) PresignedURL(ctx context.Context, objectName string) (string, error) {
	u, err := a.client.PresignedGetObject(ctx, a.bucket, objectName, a.expiry, nil)
	if err != nil {
		log.Errorf("生成预签名 URL 失败: %v", err)
		return "", err
	}
	return u.String(), nil
}
