package storage

import (
	"errors"

	"github.com/minio/minio-go/v7"
)

// missingObjectCodes 是 S3/MinIO 表示对象不存在的错误码。
var missingObjectCodes = map[string]bool{
	"NoSuchKey": true,
	"NotFound":  true,
}

// IsNoSuchKey 只根据 minio 返回的错误码判断对象是否不存在，其它错误一律视为失败。
func IsNoSuchKey(err error) bool {
	var resp minio.ErrorResponse
	if !errors.As(err, &resp) {
		return false
	}
	return missingObjectCodes[resp.Code]
}
