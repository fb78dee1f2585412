package adapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"roofing-photo-sync/internal/config"
	"roofing-photo-sync/internal/constant"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

var ErrObjectExists = errors.New("object already exists at storage path")

type StorageAdapter struct {
	mode          string
	client        *s3.Client
	bucket        string
	region        string
	rootDir       string
	publicBaseURL string
}

func NewStorageAdapter(cfg *config.Config, s3Client *s3.Client) *StorageAdapter {
	return &StorageAdapter{
		mode:          cfg.StorageMode,
		client:        s3Client,
		bucket:        cfg.S3Bucket,
		region:        cfg.S3Region,
		rootDir:       cfg.StorageDir,
		publicBaseURL: cfg.PublicBaseURL,
	}
}

func (s *StorageAdapter) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if s.mode == constant.StorageModeS3 {
		if s.client == nil {
			return nil, fmt.Errorf("s3 client is not initialized")
		}
		output, err := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return nil, err
		}
		return output.Body, nil
	}

	path, err := s.localPath(key)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// PutNew writes a new object and refuses to replace an existing one.
func (s *StorageAdapter) PutNew(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	if s.mode == constant.StorageModeS3 {
		if s.client == nil {
			return fmt.Errorf("s3 client is not initialized")
		}
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(s.bucket),
			Key:           aws.String(key),
			Body:          body,
			ContentLength: aws.Int64(size),
			ContentType:   aws.String(contentType),
			IfNoneMatch:   aws.String("*"),
		})
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "PreconditionFailed" {
			return fmt.Errorf("%w: %s", ErrObjectExists, key)
		}
		return err
	}

	path, err := s.localPath(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	outFile, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%w: %s", ErrObjectExists, key)
		}
		return err
	}

	_, copyErr := io.Copy(outFile, body)

	closeErr := outFile.Close()

	if copyErr != nil {
		_ = os.Remove(path)
		return copyErr
	}

	return closeErr
}

func (s *StorageAdapter) Delete(ctx context.Context, key string) error {
	if s.mode == constant.StorageModeS3 {
		if s.client == nil {
			return fmt.Errorf("s3 client is not initialized")
		}
		_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		return err
	}

	path, err := s.localPath(key)
	if err != nil {
		return err
	}
	err = os.Remove(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Debug("File lokal tidak ditemukan saat penghapusan", "path", path)
			return nil
		}
		return err
	}
	return nil
}

// PublicURL returns the retrieval URL for an object key.
func (s *StorageAdapter) PublicURL(key string) string {
	escaped := escapeKey(key)
	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + escaped
	}
	if s.mode == constant.StorageModeS3 {
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, escaped)
	}
	abs, err := filepath.Abs(filepath.Join(s.rootDir, filepath.FromSlash(key)))
	if err != nil {
		abs = filepath.Join(s.rootDir, filepath.FromSlash(key))
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
}

func (s *StorageAdapter) localPath(key string) (string, error) {
	root := filepath.Clean(s.rootDir)
	path := filepath.Join(root, filepath.FromSlash(key))
	if path != root && !strings.HasPrefix(path, root+string(filepath.Separator)) {
		return "", fmt.Errorf("storage key keluar dari direktori penyimpanan: %s", key)
	}
	return path, nil
}

func escapeKey(key string) string {
	segments := strings.Split(key, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}
