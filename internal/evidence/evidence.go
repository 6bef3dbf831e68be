// Package evidence stores photos, videos and audio attached to emergency alerts in
// S3-compatible object storage.
package evidence

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	apperrors "github.com/charlesng35/sosrelay/pkg/errors"
	"github.com/charlesng35/sosrelay/pkg/logger"
)

// Kind is the media category of an evidence file.
type Kind string

const (
	KindPhoto Kind = "photo"
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
)

const cacheControl = "max-age=3600"

var (
	buckets = map[Kind]string{
		KindPhoto: "emergency-photos",
		KindVideo: "emergency-videos",
		KindAudio: "emergency-audio",
	}
	extensions = map[Kind]string{
		KindPhoto: "jpg",
		KindVideo: "mp4",
		KindAudio: "webm",
	}
)

// ParseKind validates a client supplied kind.
func ParseKind(value string) (Kind, error) {
	kind := Kind(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := buckets[kind]; !ok {
		return "", apperrors.NewBadRequest("type must be one of: photo, video, audio")
	}
	return kind, nil
}

// Bucket returns the bucket holding files of the given kind.
func (k Kind) Bucket() string {
	return buckets[k]
}

// File describes a stored evidence object.
type File struct {
	Path string `json:"path"`
	URL  string `json:"url"`
	Type Kind   `json:"type"`
}

// ObjectStore is the subset of the minio client used by Store.
type ObjectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucket, key string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucket, key string, opts minio.RemoveObjectOptions) error
}

// Config configures the evidence store.
type Config struct {
	Enabled       bool
	Endpoint      string
	AccessKey     string
	SecretKey     string
	UseSSL        bool
	PublicBaseURL string
}

// Store uploads and removes evidence objects. A zero Store is disabled.
type Store struct {
	objects    ObjectStore
	publicBase string
	now        func() time.Time
	log        *zap.Logger
}

// New connects to the configured object storage. A disabled config yields a disabled Store.
func New(cfg Config) (*Store, error) {
	if !cfg.Enabled {
		return &Store{}, nil
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.New("evidence: storage endpoint is required")
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("evidence: create client: %w", err)
	}

	publicBase := strings.TrimSpace(cfg.PublicBaseURL)
	if publicBase == "" {
		scheme := "http://"
		if cfg.UseSSL {
			scheme = "https://"
		}
		publicBase = scheme + endpoint
	}
	return NewWithClient(client, publicBase), nil
}

// NewWithClient builds an enabled Store around an existing object store client.
func NewWithClient(objects ObjectStore, publicBase string) *Store {
	return &Store{
		objects:    objects,
		publicBase: strings.TrimRight(publicBase, "/"),
		now:        time.Now,
		log:        logger.WithModule("evidence"),
	}
}

// Enabled reports whether uploads are accepted.
func (s *Store) Enabled() bool {
	return s != nil && s.objects != nil
}

// EnsureBuckets creates any missing evidence bucket.
func (s *Store) EnsureBuckets(ctx context.Context) error {
	if !s.Enabled() {
		return nil
	}
	for _, kind := range []Kind{KindPhoto, KindVideo, KindAudio} {
		bucket := kind.Bucket()
		exists, err := s.objects.BucketExists(ctx, bucket)
		if err != nil {
			return fmt.Errorf("evidence: check bucket %s: %w", bucket, err)
		}
		if exists {
			continue
		}
		if err := s.objects.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("evidence: create bucket %s: %w", bucket, err)
		}
		s.log.Info("created evidence bucket", zap.String("bucket", bucket))
	}
	return nil
}

// Upload stores reader under <userID>/<unix-ms>.<ext> in the bucket for kind.
func (s *Store) Upload(ctx context.Context, userID string, kind Kind, reader io.Reader, size int64, contentType string) (*File, error) {
	if !s.Enabled() {
		return nil, apperrors.ErrFeatureDisabled
	}
	userID = strings.TrimSpace(userID)
	if userID == "" || strings.ContainsAny(userID, "/\\") {
		return nil, apperrors.ErrUnauthorized
	}
	if _, ok := buckets[kind]; !ok {
		return nil, apperrors.NewBadRequest("type must be one of: photo, video, audio")
	}
	if reader == nil {
		return nil, apperrors.NewBadRequest("file is required")
	}

	key := s.objectKey(userID, kind)
	opts := minio.PutObjectOptions{
		ContentType:  strings.TrimSpace(contentType),
		CacheControl: cacheControl,
	}
	if _, err := s.objects.PutObject(ctx, kind.Bucket(), key, reader, size, opts); err != nil {
		return nil, fmt.Errorf("evidence: upload %s: %w", key, err)
	}

	return &File{
		Path: key,
		URL:  s.PublicURL(kind, key),
		Type: kind,
	}, nil
}

// Delete removes a stored object.
func (s *Store) Delete(ctx context.Context, kind Kind, path string) error {
	if !s.Enabled() {
		return apperrors.ErrFeatureDisabled
	}
	if _, ok := buckets[kind]; !ok {
		return apperrors.NewBadRequest("type must be one of: photo, video, audio")
	}
	path = strings.TrimSpace(path)
	if path == "" || strings.Contains(path, "..") {
		return apperrors.NewBadRequest("path is required")
	}
	if err := s.objects.RemoveObject(ctx, kind.Bucket(), path, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("evidence: delete %s: %w", path, err)
	}
	return nil
}

// Owns reports whether path lies in the folder of userID.
func Owns(userID, path string) bool {
	userID = strings.TrimSpace(userID)
	return userID != "" && strings.HasPrefix(strings.TrimSpace(path), userID+"/")
}

// PublicURL returns the public address of an object.
func (s *Store) PublicURL(kind Kind, key string) string {
	return s.publicBase + "/" + kind.Bucket() + "/" + key
}

func (s *Store) objectKey(userID string, kind Kind) string {
	return fmt.Sprintf("%s/%d.%s", userID, s.now().UnixMilli(), extensions[kind])
}
