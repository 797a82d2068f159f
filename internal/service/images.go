package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// Image is a decoded data-URL upload.
type Image struct {
	ContentType string
	Format      string
	Data        []byte
}

var errBadDataURL = errors.New("invalid image: expected data:<mime>;base64,<payload>")

// DecodeDataURL parses data:<mime>;base64,<payload> and checks the payload is a png, jpeg or gif image.
func DecodeDataURL(raw string) (*Image, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "data:") {
		return nil, errBadDataURL
	}
	header, payload, ok := strings.Cut(strings.TrimPrefix(raw, "data:"), ",")
	if !ok {
		return nil, errBadDataURL
	}
	mime, encoding, ok := strings.Cut(header, ";")
	if !ok || encoding != "base64" {
		return nil, errBadDataURL
	}
	if !strings.HasPrefix(mime, "image/") {
		return nil, fmt.Errorf("invalid image: unsupported content type %q", mime)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("invalid image: payload is not valid base64")
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("invalid image: payload is not a supported image")
	}

	return &Image{ContentType: mime, Format: format, Data: data}, nil
}

// ImageStore persists uploaded images and returns the URL they are served from.
type ImageStore interface {
	Save(ctx context.Context, key, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, url string) error
}

// storeImage saves img under prefix with a random name.
func storeImage(ctx context.Context, store ImageStore, prefix string, img *Image) (string, error) {
	key := fmt.Sprintf("%s/%s.%s", prefix, uuid.NewString(), img.Format)
	url, err := store.Save(ctx, key, img.ContentType, img.Data)
	if err != nil {
		return "", fmt.Errorf("failed to store image: %w", err)
	}
	return url, nil
}

// discardImage deletes an image that is no longer referenced. Failures are logged only.
func discardImage(ctx context.Context, store ImageStore, url string) {
	if url == "" {
		return
	}
	if err := store.Delete(ctx, url); err != nil {
		log.Warn().Err(err).Str("url", url).Msg("Failed to delete image")
	}
}

// S3API is the subset of the S3 client used for image storage.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3ImageStore stores images in a bucket behind a circuit breaker.
type S3ImageStore struct {
	client  S3API
	bucket  string
	baseURL string
	breaker *gobreaker.CircuitBreaker
}

// NewS3ImageStore creates a store writing to bucket; objects are served from baseURL.
func NewS3ImageStore(client S3API, bucket, baseURL string) *S3ImageStore {
	settings := gobreaker.Settings{
		Name:     "s3-images",
		Interval: 60 * time.Second,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state changed")
		},
	}
	return &S3ImageStore{
		client:  client,
		bucket:  bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

func (s *S3ImageStore) Save(ctx context.Context, key, contentType string, data []byte) (string, error) {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(data),
			ContentType: aws.String(contentType),
		})
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload image to S3: %w", err)
	}
	return s.baseURL + "/" + key, nil
}

func (s *S3ImageStore) Delete(ctx context.Context, url string) error {
	key, ok := strings.CutPrefix(url, s.baseURL+"/")
	if !ok {
		return fmt.Errorf("image %q is not stored in bucket %s", url, s.bucket)
	}
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
	})
	if err != nil {
		return fmt.Errorf("failed to delete image from S3: %w", err)
	}
	return nil
}

// LocalImageStore writes images under a media directory served by the HTTP server.
type LocalImageStore struct {
	dir     string
	baseURL string
}

func NewLocalImageStore(dir, baseURL string) *LocalImageStore {
	return &LocalImageStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *LocalImageStore) Save(_ context.Context, key, _ string, data []byte) (string, error) {
	path := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create media directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	return s.baseURL + "/" + key, nil
}

func (s *LocalImageStore) Delete(_ context.Context, url string) error {
	key, ok := strings.CutPrefix(url, s.baseURL+"/")
	if !ok || strings.Contains(key, "..") {
		return fmt.Errorf("image %q is not stored in %s", url, s.dir)
	}
	if err := os.Remove(filepath.Join(s.dir, filepath.FromSlash(key))); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}
