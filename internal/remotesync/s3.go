package remotesync

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// S3 mirrors projects into an S3-compatible bucket, one key prefix per
// project. It stands in for GitHub where no token is available.
type S3 struct {
	client   *minio.Client
	bucket   string
	region   string
	initOnce sync.Once
	initErr  error
}

func NewS3(cfg S3Config) (*S3, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return &S3{client: client, bucket: bucket, region: region}, nil
}

func (s *S3) ensureBucket(ctx context.Context) error {
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.initErr = err
			return
		}
		if !exists {
			s.initErr = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region})
		}
	})
	return s.initErr
}

// Authenticate verifies the bucket is reachable with the configured keys.
func (s *S3) Authenticate(ctx context.Context) (Identity, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrAuth, err)
	}
	return Identity{Login: "s3://" + s.bucket}, nil
}

func (s *S3) EnsureRepo(_ context.Context, _ Identity, name string) (Repo, error) {
	name = strings.Trim(strings.TrimSpace(name), "/")
	if name == "" {
		return Repo{}, fmt.Errorf("remotesync: repo name is required")
	}
	return Repo{Owner: s.bucket, Name: name, URL: "s3://" + s.bucket + "/" + name}, nil
}

func (s *S3) Upsert(ctx context.Context, repo Repo, path string, content []byte, _ string) error {
	if err := s.ensureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}
	key := objectKey(repo.Name, path)
	sum := md5.Sum(content)
	if info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err == nil &&
		strings.Trim(info.ETag, `"`) == hex.EncodeToString(sum[:]) {
		return nil
	}
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(content), int64(len(content)), minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return fmt.Errorf("remotesync: put %s: %w", key, err)
	}
	return nil
}

// Get reads a mirrored file back.
func (s *S3) Get(ctx context.Context, repo Repo, path string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, objectKey(repo.Name, path), minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()
	return io.ReadAll(obj)
}

// List returns the mirrored paths of a project.
func (s *S3) List(ctx context.Context, repo Repo) ([]string, error) {
	prefix := strings.TrimSuffix(repo.Name, "/") + "/"
	var paths []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		if obj.Key != "" {
			paths = append(paths, strings.TrimPrefix(obj.Key, prefix))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func objectKey(project, path string) string {
	return strings.TrimSpace(project) + "/" + strings.TrimLeft(strings.TrimSpace(path), "/")
}
