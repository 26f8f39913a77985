// Package storage keeps uploaded files (attachments, certificates, profile
// images) in an S3-compatible bucket and hands back a URL for the record.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"hrleave/internal/domain/errs"
)

var allowedTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

type Object struct {
	Key         string
	ContentType string
	Data        []byte
}

type Uploader interface {
	Put(ctx context.Context, obj Object) (string, error)
}

// NewObject sniffs the content type and builds a random key under prefix.
// Only images and PDF are accepted.
func NewObject(prefix string, data []byte) (Object, error) {
	if len(data) == 0 {
		return Object{}, errs.Validation("file is empty")
	}
	contentType := http.DetectContentType(data)
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	ext, ok := allowedTypes[contentType]
	if !ok {
		return Object{}, errs.Validation("file type %s is not allowed", contentType)
	}
	return Object{
		Key:         path.Join(prefix, uuid.NewString()+ext),
		ContentType: contentType,
		Data:        data,
	}, nil
}

type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3 struct {
	client        S3API
	bucket        string
	publicBaseURL string
}

// NewS3 returns an uploader for bucket. publicBaseURL is prefixed to the
// object key; when empty an s3:// URL is returned.
func NewS3(client S3API, bucket, publicBaseURL string) *S3 {
	return &S3{client: client, bucket: bucket, publicBaseURL: strings.TrimRight(publicBaseURL, "/")}
}

func (s *S3) Put(ctx context.Context, obj Object) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(obj.Key),
		Body:          bytes.NewReader(obj.Data),
		ContentType:   aws.String(obj.ContentType),
		ContentLength: aws.Int64(int64(len(obj.Data))),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", obj.Key, err)
	}
	if s.publicBaseURL == "" {
		return "s3://" + s.bucket + "/" + obj.Key, nil
	}
	return s.publicBaseURL + "/" + obj.Key, nil
}

// Memory keeps objects in process. Used when no bucket is configured.
type Memory struct {
	mu      sync.Mutex
	objects map[string]Object
}

func NewMemory() *Memory {
	return &Memory{objects: map[string]Object{}}
}

func (m *Memory) Put(_ context.Context, obj Object) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[obj.Key] = obj
	return "memory://" + obj.Key, nil
}

func (m *Memory) Get(key string) (Object, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[key]
	return obj, ok
}

// Len reports how many objects are held.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
