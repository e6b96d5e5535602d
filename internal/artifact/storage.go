package artifact

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Storage moves a built APK from its scratch location into durable
// storage and returns the URL clients download it from. The source file
// is consumed; a second job for the same key overwrites the first.
type Storage interface {
	Store(ctx context.Context, key, sourcePath string) (string, error)
}

// LocalStorage keeps artifacts in a directory served by the API.
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage ensures the output directory exists.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &LocalStorage{baseDir: baseDir}, nil
}

func (l *LocalStorage) Store(_ context.Context, key, sourcePath string) (string, error) {
	dest := filepath.Join(l.baseDir, key)
	if err := moveFile(sourcePath, dest); err != nil {
		return "", fmt.Errorf("store artifact: %w", err)
	}
	return "/download/" + key, nil
}

// Path maps a download key back to its on-disk location.
func (l *LocalStorage) Path(key string) string {
	return filepath.Join(l.baseDir, filepath.Base(key))
}

// Remove deletes a stored artifact. Missing files are not an error.
func (l *LocalStorage) Remove(key string) error {
	err := os.Remove(l.Path(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// moveFile renames when possible and falls back to copy+remove for
// cross-device moves (scratch and output dirs may be separate mounts).
func moveFile(src, dest string) error {
	if err := os.Rename(src, dest); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}

// S3Storage uploads artifacts to a bucket and removes the scratch copy.
type S3Storage struct {
	client *s3.Client
	bucket string
}

// S3Options configures the bucket client. Endpoint and path style exist
// for S3-compatible stores such as MinIO.
type S3Options struct {
	Bucket    string
	Region    string
	Endpoint  string
	PathStyle bool
}

// NewS3Storage builds an uploader from ambient AWS credentials.
func NewS3Storage(ctx context.Context, opts S3Options) (*S3Storage, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.Endpoint != "" {
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, _ ...interface{}) (aws.Endpoint, error) {
			if service == s3.ServiceID {
				return aws.Endpoint{
					URL:               opts.Endpoint,
					HostnameImmutable: opts.PathStyle,
					SigningRegion:     opts.Region,
					Source:            aws.EndpointSourceCustom,
				}, nil
			}
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		})
		loadOpts = append(loadOpts, awsconfig.WithEndpointResolverWithOptions(resolver))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = opts.PathStyle
	})
	return &S3Storage{client: client, bucket: opts.Bucket}, nil
}

func (s *S3Storage) Store(ctx context.Context, key, sourcePath string) (string, error) {
	body, err := os.ReadFile(sourcePath)
	if err != nil {
		return "", fmt.Errorf("read artifact: %w", err)
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/vnd.android.package-archive"),
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	_ = os.Remove(sourcePath)
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}
