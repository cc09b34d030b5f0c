package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/yungbote/trainforge-backend/internal/platform/logger"
)

type BucketCategory string

const (
	// BucketCategoryMedia holds video, image and document assets referenced by content_url.
	BucketCategoryMedia BucketCategory = "media"
	// BucketCategoryScorm holds uploaded SCORM package archives.
	BucketCategoryScorm BucketCategory = "scorm"
)

var ErrObjectNotFound = errors.New("object not found")

type bucketConfig struct {
	name      string
	cdnDomain string
}

// BucketService stores scene media and SCORM packages. Keys are relative to the
// category's bucket.
type BucketService interface {
	PutObject(ctx context.Context, category BucketCategory, key string, body io.Reader, contentType string) (*ObjectAttrs, error)
	DeleteObject(ctx context.Context, category BucketCategory, key string) error
	// DeletePrefix removes every object under prefix and reports how many went away.
	DeletePrefix(ctx context.Context, category BucketCategory, prefix string) (int, error)
	ListKeys(ctx context.Context, category BucketCategory, prefix string) ([]string, error)
	PublicURL(category BucketCategory, key string) string
}

type ObjectAttrs struct {
	Size        int64
	ContentType string
	Updated     time.Time
	ETag        string
}

type BucketConfig struct {
	Storage       ObjectStorageConfig
	Credentials   string
	MediaBucket   string
	MediaCDN      string
	ScormBucket   string
	ScormCDN      string
	PublicBaseURL string
}

type bucketService struct {
	log           *logger.Logger
	storageClient *storage.Client
	storageMode   ObjectStorageMode
	emulatorHost  string
	mediaBucket   bucketConfig
	scormBucket   bucketConfig
	publicBaseURL string
}

func NewBucketService(log *logger.Logger, cfg BucketConfig) (BucketService, error) {
	if err := ValidateObjectStorageConfig(cfg.Storage); err != nil {
		return nil, fmt.Errorf("validate object storage config: %w", err)
	}
	serviceLog := log.With("service", "BucketService")

	if strings.TrimSpace(cfg.MediaBucket) == "" {
		return nil, fmt.Errorf("missing env var MEDIA_GCS_BUCKET_NAME")
	}
	if strings.TrimSpace(cfg.ScormBucket) == "" {
		return nil, fmt.Errorf("missing env var SCORM_GCS_BUCKET_NAME")
	}
	publicBaseURL, publicBaseSource, err := resolvePublicBaseURL(cfg.Storage, cfg.PublicBaseURL)
	if err != nil {
		return nil, err
	}

	stClient, err := newStorageClientForMode(context.Background(), cfg.Storage, cfg.Credentials)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	serviceLog.Info(
		"Object storage initialized",
		"mode", cfg.Storage.Mode,
		"mode_inferred", cfg.Storage.Inferred,
		"emulator_host", cfg.Storage.EmulatorHost,
		"public_base_source", publicBaseSource,
		"media_bucket", cfg.MediaBucket,
		"scorm_bucket", cfg.ScormBucket,
	)

	return &bucketService{
		log:           serviceLog,
		storageClient: stClient,
		storageMode:   cfg.Storage.Mode,
		emulatorHost:  strings.TrimRight(strings.TrimSpace(cfg.Storage.EmulatorHost), "/"),
		mediaBucket:   bucketConfig{name: cfg.MediaBucket, cdnDomain: strings.TrimSpace(cfg.MediaCDN)},
		scormBucket:   bucketConfig{name: cfg.ScormBucket, cdnDomain: strings.TrimSpace(cfg.ScormCDN)},
		publicBaseURL: publicBaseURL,
	}, nil
}

func newStorageClientForMode(ctx context.Context, storageCfg ObjectStorageConfig, creds string) (*storage.Client, error) {
	switch storageCfg.Mode {
	case ObjectStorageModeGCS:
		opts := []option.ClientOption{option.WithScopes(storage.ScopeReadWrite)}
		// creds is inline service-account JSON or a path to a key file
		switch creds = strings.TrimSpace(creds); {
		case strings.HasPrefix(creds, "{"):
			opts = append(opts, option.WithCredentialsJSON([]byte(creds)))
		case creds != "":
			opts = append(opts, option.WithCredentialsFile(creds))
		}
		return storage.NewClient(ctx, opts...)
	case ObjectStorageModeGCSEmulator:
		// the storage client reads the emulator endpoint from the environment
		endpoint := strings.TrimRight(strings.TrimSpace(storageCfg.EmulatorHost), "/")
		_ = os.Setenv("STORAGE_EMULATOR_HOST", endpoint)
		return storage.NewClient(ctx, option.WithoutAuthentication())
	default:
		return nil, fmt.Errorf("%w %q", ErrInvalidStorageMode, storageCfg.Mode)
	}
}

func resolvePublicBaseURL(storageCfg ObjectStorageConfig, raw string) (baseURL string, source string, err error) {
	raw = strings.TrimSpace(raw)
	if raw != "" {
		parsed, parseErr := url.Parse(raw)
		if parseErr != nil || strings.TrimSpace(parsed.Scheme) == "" || strings.TrimSpace(parsed.Host) == "" {
			return "", "", fmt.Errorf("invalid OBJECT_STORAGE_PUBLIC_BASE_URL=%q; expected absolute URL like http://localhost:4443", raw)
		}
		return strings.TrimRight(raw, "/"), "object_storage_public_base_url", nil
	}
	if storageCfg.IsEmulatorMode() {
		return strings.TrimRight(strings.TrimSpace(storageCfg.EmulatorHost), "/"), "storage_emulator_host", nil
	}
	return "", "gcs_default", nil
}

func (bs *bucketService) bucket(category BucketCategory) (bucketConfig, error) {
	switch category {
	case BucketCategoryMedia:
		return bs.mediaBucket, nil
	case BucketCategoryScorm:
		return bs.scormBucket, nil
	}
	return bucketConfig{}, fmt.Errorf("unknown bucket category %q", category)
}

// PutObject streams body into the bucket. The object becomes visible only when the
// writer closes cleanly, so a cancelled ctx leaves nothing behind. An empty contentType
// is derived from the key.
func (bs *bucketService) PutObject(ctx context.Context, category BucketCategory, key string, body io.Reader, contentType string) (*ObjectAttrs, error) {
	b, err := bs.bucket(category)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	w := bs.storageClient.Bucket(b.name).Object(key).NewWriter(ctx)
	if contentType = strings.TrimSpace(contentType); contentType == "" || contentType == "application/octet-stream" {
		contentType = ContentTypeForKey(key)
	}
	w.ContentType = contentType
	if category == BucketCategoryScorm {
		w.CacheControl = "private, max-age=0"
	}
	if _, err := io.Copy(w, body); err != nil {
		cancel()
		_ = w.Close()
		return nil, fmt.Errorf("write %s/%s: %w", b.name, key, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalize %s/%s: %w", b.name, key, err)
	}
	a := w.Attrs()
	return &ObjectAttrs{Size: a.Size, ContentType: a.ContentType, Updated: a.Updated, ETag: a.Etag}, nil
}

var contentTypes = []struct{ ext, typ string }{
	{".png", "image/png"},
	{".jpg", "image/jpeg"},
	{".jpeg", "image/jpeg"},
	{".webp", "image/webp"},
	{".gif", "image/gif"},
	{".svg", "image/svg+xml"},
	{".mp4", "video/mp4"},
	{".m4v", "video/mp4"},
	{".webm", "video/webm"},
	{".mov", "video/quicktime"},
	{".pdf", "application/pdf"},
	{".docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
	{".pptx", "application/vnd.openxmlformats-officedocument.presentationml.presentation"},
	{".txt", "text/plain"},
	{".zip", "application/zip"},
}

// ContentTypeForKey maps an object key suffix to the content type stored with the object.
func ContentTypeForKey(key string) string {
	s, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(key)), "?")
	for _, ct := range contentTypes {
		if strings.HasSuffix(s, ct.ext) {
			return ct.typ
		}
	}
	return ""
}

func (bs *bucketService) DeleteObject(ctx context.Context, category BucketCategory, key string) error {
	b, err := bs.bucket(category)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	err = bs.storageClient.Bucket(b.name).Object(key).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return ErrObjectNotFound
	}
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", b.name, key, err)
	}
	return nil
}

func (bs *bucketService) ListKeys(ctx context.Context, category BucketCategory, prefix string) ([]string, error) {
	b, err := bs.bucket(category)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	var keys []string
	it := bs.storageClient.Bucket(b.name).Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return keys, nil
		}
		if err != nil {
			return nil, fmt.Errorf("list %s/%s: %w", b.name, prefix, err)
		}
		keys = append(keys, attrs.Name)
	}
}

// DeletePrefix keeps going past individual failures; they are logged, not returned.
func (bs *bucketService) DeletePrefix(ctx context.Context, category BucketCategory, prefix string) (int, error) {
	keys, err := bs.ListKeys(ctx, category, prefix)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, k := range keys {
		switch err := bs.DeleteObject(ctx, category, k); {
		case err == nil:
			n++
		case errors.Is(err, ErrObjectNotFound):
		default:
			bs.log.Warn("delete object failed", "category", category, "key", k, "error", err)
		}
	}
	return n, nil
}

// PublicURL prefers the category CDN, then the emulator media endpoint, then the
// configured public base, then storage.googleapis.com.
func (bs *bucketService) PublicURL(category BucketCategory, key string) string {
	b, err := bs.bucket(category)
	if err != nil {
		return key
	}
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	base := bs.publicBaseURL
	switch {
	case b.cdnDomain != "":
		return "https://" + b.cdnDomain + "/" + key
	case bs.storageMode == ObjectStorageModeGCSEmulator && (base != "" || bs.emulatorHost != ""):
		if base == "" {
			base = bs.emulatorHost
		}
		return fmt.Sprintf("%s/storage/v1/b/%s/o/%s?alt=media", strings.TrimRight(base, "/"), url.PathEscape(b.name), url.PathEscape(key))
	case base != "":
		return base + "/" + b.name + "/" + key
	}
	return "https://storage.googleapis.com/" + b.name + "/" + key
}
