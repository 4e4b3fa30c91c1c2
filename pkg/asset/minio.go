package asset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"sort"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/shouni/go-conti-kit/pkg/domain"
)

// MinioOptions は MinioStore の接続設定です。
type MinioOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// Prefix はバッチ単位のオブジェクト名前空間です。ClearBatch はこの配下のみを削除します。
	Prefix string
}

// MinioStore は MinIO (S3 互換ストレージ) に画像を保存する Store です。
type MinioStore struct {
	client *minio.Client
	bucket string
	prefix string
}

var _ Store = (*MinioStore)(nil)

// NewMinioStore は MinIO クライアントを初期化し、バケットが無ければ作成します。
func NewMinioStore(ctx context.Context, opts MinioOptions) (*MinioStore, error) {
	if opts.Endpoint == "" || opts.Bucket == "" {
		return nil, errors.New("MinIO のエンドポイントとバケットの指定は必須です")
	}
	if opts.Prefix == "" {
		return nil, errors.New("MinIO のオブジェクトプレフィックスは必須です")
	}
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("MinIO クライアントの作成に失敗しました: %w", err)
	}

	s := &MinioStore{client: client, bucket: opts.Bucket, prefix: opts.Prefix}
	if err := s.ensureBucketExists(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MinioStore) ensureBucketExists(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("バケットの存在確認に失敗しました: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("バケットの作成に失敗しました: %w", err)
	}
	slog.InfoContext(ctx, "バケットを作成しました", "bucket", s.bucket)
	return nil
}

func (s *MinioStore) objectName(sceneNumber int) string {
	return path.Join(s.prefix, SceneFileName(sceneNumber))
}

// Write implements Store. 参照はバケット内のオブジェクト名です。
func (s *MinioStore) Write(ctx context.Context, sceneNumber int, data []byte) (string, error) {
	name := s.objectName(sceneNumber)
	_, err := s.client.PutObject(ctx, s.bucket, name, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "image/png",
	})
	if err != nil {
		return "", &domain.ArtifactError{Op: "write", SceneNumber: sceneNumber, Ref: name, Err: err}
	}
	return name, nil
}

// Read implements Store.
func (s *MinioStore) Read(ctx context.Context, ref string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, ref, minio.GetObjectOptions{})
	if err != nil {
		n, _ := ParseSceneNumber(ref)
		return nil, &domain.ArtifactError{Op: "read", SceneNumber: n, Ref: ref, Err: err}
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		n, _ := ParseSceneNumber(ref)
		return nil, &domain.ArtifactError{Op: "read", SceneNumber: n, Ref: ref, Err: err}
	}
	return data, nil
}

// Delete implements Store.
func (s *MinioStore) Delete(ctx context.Context, ref string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, ref, minio.RemoveObjectOptions{}); err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" {
			return nil
		}
		n, _ := ParseSceneNumber(ref)
		return &domain.ArtifactError{Op: "delete", SceneNumber: n, Ref: ref, Err: err}
	}
	return nil
}

// ClearBatch はプレフィックス配下の全オブジェクトを削除します。
func (s *MinioStore) ClearBatch(ctx context.Context) error {
	refs, err := s.List(ctx)
	if err != nil {
		return err
	}
	var errs []error
	for _, ref := range refs {
		if err := s.Delete(ctx, ref); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return &domain.ArtifactError{Op: "clear", Err: errors.Join(errs...)}
	}
	return nil
}

// List implements Store.
// 途中でエラーを返す場合も一覧取得の goroutine が終了するよう、専用の context を渡します。
func (s *MinioStore) List(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var refs []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    s.prefix + "/",
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, &domain.ArtifactError{Op: "list", Err: obj.Err}
		}
		if SceneFileRegex.MatchString(path.Base(obj.Key)) {
			refs = append(refs, obj.Key)
		}
	}
	sort.Strings(refs)
	return refs, nil
}
