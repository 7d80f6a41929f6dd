// Package storage 保存导出的 PDF 与分享页面。对象按工作区分前缀存放，
// 删除工作区时整体清理。
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"folioBuilder/internal/config"
)

// Client 持有两个 MinIO 客户端：objects 走内网读写，presigner 使用浏览器可达的公共地址签名。
type Client struct {
	objects   *minio.Client
	presigner *minio.Client
	bucket    string
}

// NewClient 根据配置初始化客户端，并确保 Bucket 存在。
func NewClient(cfg config.MinIOConfig) (*Client, error) {
	lookup, err := parseBucketLookup(cfg.BucketLookup)
	if err != nil {
		return nil, err
	}

	objects, err := newMinio(cfg.Endpoint, cfg.UseSSL, cfg, lookup)
	if err != nil {
		return nil, fmt.Errorf("init internal minio client: %w", err)
	}

	publicHost, publicTLS, err := splitPublicEndpoint(cfg.PublicEndpoint)
	if err != nil {
		return nil, err
	}
	presigner, err := newMinio(publicHost, publicTLS, cfg, lookup)
	if err != nil {
		return nil, fmt.Errorf("init public minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ensureBucket(ctx, objects, cfg); err != nil {
		return nil, err
	}

	return &Client{objects: objects, presigner: presigner, bucket: cfg.Bucket}, nil
}

func newMinio(endpoint string, secure bool, cfg config.MinIOConfig, lookup minio.BucketLookupType) (*minio.Client, error) {
	return minio.New(endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure:       secure,
		Region:       cfg.Region,
		BucketLookup: lookup,
	})
}

func parseBucketLookup(v string) (minio.BucketLookupType, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "auto":
		return minio.BucketLookupAuto, nil
	case "dns":
		return minio.BucketLookupDNS, nil
	case "path":
		return minio.BucketLookupPath, nil
	}
	return minio.BucketLookupAuto, fmt.Errorf("invalid minio bucket lookup %q", v)
}

// splitPublicEndpoint 把 http(s)://host:port 拆成 minio.New 需要的 host 与 TLS 开关。
func splitPublicEndpoint(endpoint string) (string, bool, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("parse minio public endpoint: %w", err)
	}
	if u.Host == "" {
		return "", false, errors.New("invalid minio public endpoint, host missing")
	}
	return u.Host, u.Scheme == "https", nil
}

func ensureBucket(ctx context.Context, client *minio.Client, cfg config.MinIOConfig) error {
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return fmt.Errorf("check bucket %q: %w", cfg.Bucket, err)
	}
	if exists {
		return nil
	}
	if !cfg.AutoCreateBucket {
		return fmt.Errorf("bucket %q does not exist (auto create disabled)", cfg.Bucket)
	}
	if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
		return fmt.Errorf("make bucket %q: %w", cfg.Bucket, err)
	}
	return nil
}

// UploadFile 上传一个导出产物。
func (c *Client) UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (*minio.UploadInfo, error) {
	info, err := c.objects.PutObject(ctx, c.bucket, objectName, reader, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return nil, fmt.Errorf("put object %q: %w", objectName, err)
	}
	return &info, nil
}

// GeneratePresignedURL 生成限时下载链接。downloadName 非空时浏览器按附件保存。
func (c *Client) GeneratePresignedURL(ctx context.Context, objectKey string, ttl time.Duration, downloadName string) (string, error) {
	u, err := c.presigner.PresignedGetObject(ctx, c.bucket, objectKey, ttl, dispositionParams(downloadName))
	if err != nil {
		return "", fmt.Errorf("generate presigned url for %q: %w", objectKey, err)
	}
	return u.String(), nil
}

func dispositionParams(downloadName string) url.Values {
	downloadName = strings.TrimSpace(downloadName)
	if downloadName == "" {
		return nil
	}
	return url.Values{"response-content-disposition": {fmt.Sprintf("attachment; filename=%q", downloadName)}}
}

// DeletePrefix 批量删除前缀下的全部对象。不存在的对象视为成功，其余错误合并返回。
func (c *Client) DeletePrefix(ctx context.Context, prefix string) error {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil
	}

	listCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	keys := make(chan minio.ObjectInfo)
	var listErr error
	go func() {
		defer close(keys)
		for obj := range c.objects.ListObjects(listCtx, c.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
			if obj.Err != nil {
				listErr = fmt.Errorf("list objects under %q: %w", prefix, obj.Err)
				return
			}
			select {
			case keys <- obj:
			case <-listCtx.Done():
				return
			}
		}
	}()

	var errs []error
	for res := range c.objects.RemoveObjects(ctx, c.bucket, keys, minio.RemoveObjectsOptions{}) {
		if res.Err == nil || IsNoSuchKey(res.Err) {
			continue
		}
		errs = append(errs, fmt.Errorf("remove object %q: %w", res.ObjectName, res.Err))
	}
	// RemoveObjects 在 keys 关闭后才结束，此时 listErr 已写入完毕。
	if listErr != nil {
		errs = append(errs, listErr)
	}
	if len(errs) > 0 {
		slog.Default().Error("delete workspace objects failed",
			slog.String("prefix", prefix),
			slog.Int("failed_count", len(errs)),
		)
	}
	return errors.Join(errs...)
}

// WorkspacePrefix 返回工作区全部导出对象的公共前缀。
func WorkspacePrefix(workspaceID string) string {
	return fmt.Sprintf("workspaces/%s/", workspaceID)
}

// ExportObjectKey 生成一次导出的对象键，例如 workspaces/<id>/pdf/<uuid>.pdf。
func ExportObjectKey(workspaceID, kind, name, ext string) string {
	return fmt.Sprintf("%s%s/%s.%s", WorkspacePrefix(workspaceID), kind, name, strings.TrimPrefix(ext, "."))
}
