package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/yungbote/trainforge-backend/internal/domain/training"
	"github.com/yungbote/trainforge-backend/internal/modules/training/content"
	"github.com/yungbote/trainforge-backend/internal/observability"
	"github.com/yungbote/trainforge-backend/internal/platform/gcp"
	"github.com/yungbote/trainforge-backend/internal/platform/logger"
)

// ProgressFunc receives the bytes sent so far and the declared total. Values never decrease.
type ProgressFunc func(sent, total int64)

type UploadInput struct {
	Filename string
	MimeType string
	Size     int64
	Reader   io.Reader
	Progress ProgressFunc
	// Path is the client's folder for the file, e.g. "courses/scorm/". Optional.
	Path string
}

type UploadResult struct {
	Scene    training.TrainingScene   `json:"scene"`
	Target   content.UploadTarget     `json:"target"`
	URL      string                   `json:"url"`
	Bytes    int64                    `json:"bytes"`
	Manifest *content.PackageManifest `json:"manifest,omitempty"`
}

type UploadService interface {
	// UploadSceneAsset validates the file against the scene's adapter, streams it to
	// object storage and only then points the scene at the new URL.
	UploadSceneAsset(ctx context.Context, actor Actor, moduleID, sceneID uuid.UUID, in UploadInput) (*UploadResult, error)
}

type UploadConfig struct {
	// MaxBytes caps every upload regardless of adapter limits. Zero disables the cap.
	MaxBytes int64
	// VerifyManifest opens SCORM archives and requires an imsmanifest.xml.
	VerifyManifest bool
}

type uploadService struct {
	log      *logger.Logger
	training TrainingService
	registry *content.Registry
	bucket   gcp.BucketService
	metrics  *observability.Metrics
	cfg      UploadConfig
}

func NewUploadService(baseLog *logger.Logger, trainingSvc TrainingService, registry *content.Registry, bucket gcp.BucketService, metrics *observability.Metrics, cfg UploadConfig) UploadService {
	return &uploadService{
		log:      baseLog.With("service", "UploadService"),
		training: trainingSvc,
		registry: registry,
		bucket:   bucket,
		metrics:  metrics,
		cfg:      cfg,
	}
}

func (s *uploadService) UploadSceneAsset(ctx context.Context, actor Actor, moduleID, sceneID uuid.UUID, in UploadInput) (*UploadResult, error) {
	e, err := s.training.Editor(ctx, actor, moduleID)
	if err != nil {
		return nil, err
	}
	m := e.Module()
	idx := m.SceneIndex(sceneID)
	if idx < 0 {
		return nil, training.ErrSceneNotFound
	}
	scene := m.Scenes[idx]

	out, obj, err := s.upload(ctx, moduleID, scene, in)
	outcome := "ok"
	if err != nil {
		outcome = uploadOutcome(err)
	}
	var n int64
	if out != nil {
		n = out.Bytes
	}
	s.metrics.ObserveUpload(string(scene.SceneType), outcome, n)
	if err != nil {
		s.log.Warn("UploadSceneAsset failed", "module_id", moduleID, "scene_id", sceneID, "outcome", outcome, "error", err)
		return nil, err
	}

	updated, err := e.SetAssetURL(sceneID, out.Target, out.URL)
	if err != nil {
		// the scene went away while the bytes were in flight
		s.log.Info("discarding orphaned upload", "url", out.URL)
		s.deleteObject(obj.category, obj.key)
		return nil, err
	}
	out.Scene = updated
	s.log.Info("UploadSceneAsset", "module_id", moduleID, "scene_id", sceneID, "target", string(out.Target), "bytes", out.Bytes)
	return out, nil
}

type storedObject struct {
	category gcp.BucketCategory
	key      string
}

func (s *uploadService) upload(ctx context.Context, moduleID uuid.UUID, scene training.TrainingScene, in UploadInput) (*UploadResult, storedObject, error) {
	name := strings.TrimSpace(in.Filename)
	if in.Reader == nil {
		return nil, storedObject{}, &training.UploadError{Reason: training.UploadTransport, Filename: name, Message: "no file body"}
	}
	if s.cfg.MaxBytes > 0 && in.Size > s.cfg.MaxBytes {
		return nil, storedObject{}, &training.UploadError{
			Reason:   training.UploadTooLarge,
			Filename: name,
			Message:  fmt.Sprintf("%d bytes exceeds limit of %d", in.Size, s.cfg.MaxBytes),
		}
	}
	target, err := s.registry.CheckUpload(scene, name, in.MimeType, in.Size)
	if err != nil {
		var ue *training.UploadError
		if errors.As(err, &ue) && ue.Reason == training.UploadWrongType &&
			scene.SceneType != training.SceneTypeScorm && content.DetectScormUpload(name, in.Path) {
			ue.Message = "looks like a SCORM package; upload it to a scorm scene"
		}
		return nil, storedObject{}, err
	}

	category := gcp.BucketCategoryMedia
	if target == content.TargetScormPackageURL {
		category = gcp.BucketCategoryScorm
	}
	key := assetKey(moduleID, scene.ID, category, name)
	// the declared size is client supplied; the stream is held to the real cap
	limit := s.registry.UploadLimit(scene.SceneType, s.cfg.MaxBytes)

	body := in.Reader
	var manifest *content.PackageManifest
	if target == content.TargetScormPackageURL && s.cfg.VerifyManifest {
		ra, size, err := readerAt(in.Reader, in.Size, limit)
		if err != nil {
			return nil, storedObject{}, &training.UploadError{Reason: training.UploadTransport, Filename: name, Cause: err}
		}
		manifest, err = content.InspectPackage(ra, size)
		if err != nil {
			return nil, storedObject{}, &training.UploadError{Reason: training.UploadInvalid, Filename: name, Cause: err}
		}
		body = io.NewSectionReader(ra, 0, size)
	}

	pr := newProgressReader(ctx, body, in.Size, limit, in.Progress)
	attrs, err := s.bucket.PutObject(ctx, category, key, pr, in.MimeType)
	if err != nil {
		// never leave a partial object behind
		s.deleteObject(category, key)
		return nil, storedObject{}, classifyUploadErr(ctx, name, err)
	}
	pr.finish()
	s.log.Debug("object stored", "key", key, "bytes", attrs.Size, "etag", attrs.ETag, "content_type", attrs.ContentType)

	return &UploadResult{
		Target:   target,
		URL:      s.bucket.PublicURL(category, key),
		Bytes:    pr.sent(),
		Manifest: manifest,
	}, storedObject{category: category, key: key}, nil
}

func (s *uploadService) deleteObject(category gcp.BucketCategory, key string) {
	if err := s.bucket.DeleteObject(context.Background(), category, key); err != nil {
		s.log.Debug("partial upload cleanup failed", "key", key, "error", err)
	}
}

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// assetKey lays objects out as modules/<module>/<category>/<scene>/<rand>-<name>.
func assetKey(moduleID, sceneID uuid.UUID, category gcp.BucketCategory, filename string) string {
	base := unsafeName.ReplaceAllString(path.Base(strings.ReplaceAll(filename, "\\", "/")), "_")
	if base == "" || base == "." || base == "_" {
		base = "file"
	}
	return fmt.Sprintf("%s%s/%s/%s-%s", assetPrefix(moduleID), category, sceneID, uuid.NewString()[:8], base)
}

func readerAt(r io.Reader, size, limit int64) (io.ReaderAt, int64, error) {
	if ra, ok := r.(io.ReaderAt); ok && size > 0 {
		return ra, size, nil
	}
	if limit > 0 {
		r = io.LimitReader(r, limit+1)
	}
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, 0, err
	}
	if limit > 0 && int64(len(buf)) > limit {
		return nil, 0, errUploadTooLarge
	}
	return bytes.NewReader(buf), int64(len(buf)), nil
}

var (
	errUploadCancelled = errors.New("upload cancelled")
	errUploadTooLarge  = errors.New("upload exceeds size limit")
)

func classifyUploadErr(ctx context.Context, name string, err error) error {
	var ue *training.UploadError
	if errors.As(err, &ue) {
		return ue
	}
	switch {
	case errors.Is(err, errUploadCancelled), errors.Is(err, context.Canceled), ctx.Err() != nil:
		return &training.UploadError{Reason: training.UploadCancelled, Filename: name, Cause: err}
	case errors.Is(err, errUploadTooLarge):
		return &training.UploadError{Reason: training.UploadTooLarge, Filename: name, Cause: err}
	default:
		return &training.UploadError{Reason: training.UploadTransport, Filename: name, Cause: err}
	}
}

func uploadOutcome(err error) string {
	var ue *training.UploadError
	if errors.As(err, &ue) {
		return string(ue.Reason)
	}
	return "error"
}

// progressReader reports monotonic progress and stops the transfer on cancellation
// or when more than limit bytes arrive.
type progressReader struct {
	ctx   context.Context
	r     io.Reader
	total int64
	limit int64
	fn    ProgressFunc

	mu   sync.Mutex
	n    int64
	last int64
}

func newProgressReader(ctx context.Context, r io.Reader, total, limit int64, fn ProgressFunc) *progressReader {
	return &progressReader{ctx: ctx, r: r, total: total, limit: limit, fn: fn, last: -1}
}

func (p *progressReader) Read(b []byte) (int, error) {
	if err := p.ctx.Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", errUploadCancelled, err)
	}
	n, err := p.r.Read(b)
	if n > 0 {
		p.mu.Lock()
		p.n += int64(n)
		over := p.limit > 0 && p.n > p.limit
		p.mu.Unlock()
		if over {
			return n, errUploadTooLarge
		}
		p.report()
	}
	return n, err
}

func (p *progressReader) report() {
	if p.fn == nil {
		return
	}
	p.mu.Lock()
	n := p.n
	if n <= p.last {
		p.mu.Unlock()
		return
	}
	p.last = n
	p.mu.Unlock()
	p.fn(n, p.total)
}

// finish emits a final event so listeners always see the completed count.
func (p *progressReader) finish() { p.report() }

func (p *progressReader) sent() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.n
}
