package publish

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/h2non/filetype"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"mindmovie/internal/config"
	"mindmovie/internal/logging"
	"mindmovie/internal/services"
	"mindmovie/internal/textutil"
)

const (
	defaultExpiry = 24 * time.Hour
	// S3 presigned URLs cannot outlive seven days.
	maxExpiry = 7 * 24 * time.Hour
)

// objectStore is the subset of *minio.Client the publisher needs.
type objectStore interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	FPutObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
}

// Result describes an uploaded movie.
type Result struct {
	Bucket    string
	Object    string
	Size      int64
	URL       string
	ExpiresAt time.Time
}

// Publisher uploads movies when [publish] is enabled.
type Publisher struct {
	enabled bool
	bucket  string
	prefix  string
	expiry  time.Duration
	store   objectStore
	logger  *slog.Logger
	now     func() time.Time
}

// NewPublisher builds a publisher from cfg. A disabled configuration yields a
// publisher whose Enabled reports false.
func NewPublisher(cfg *config.Config, logger *slog.Logger) (*Publisher, error) {
	p := &Publisher{
		logger: logging.NewComponentLogger(logger, "publish"),
		now:    time.Now,
	}
	if cfg == nil || !cfg.Publish.Enabled {
		return p, nil
	}
	pc := cfg.Publish
	if missing := missingSettings(pc); len(missing) > 0 {
		return nil, services.Wrap(services.ErrConfiguration, "publish", "configure",
			fmt.Sprintf("missing %s", strings.Join(missing, ", ")), nil)
	}

	client, err := minio.New(strings.TrimSpace(pc.Endpoint), &minio.Options{
		Creds:  credentials.NewStaticV4(pc.AccessKey, pc.SecretKey, ""),
		Secure: pc.UseSSL,
	})
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "publish", "configure", "create storage client", err)
	}
	p.configure(pc, client)
	return p, nil
}

func (p *Publisher) configure(pc config.Publish, store objectStore) {
	p.enabled = true
	p.bucket = strings.TrimSpace(pc.Bucket)
	p.prefix = strings.Trim(strings.TrimSpace(pc.Prefix), "/")
	p.store = store
	p.expiry = time.Duration(pc.URLExpiryHours) * time.Hour
	if p.expiry <= 0 {
		p.expiry = defaultExpiry
	}
	if p.expiry > maxExpiry {
		p.expiry = maxExpiry
	}
}

// Enabled reports whether uploads are configured.
func (p *Publisher) Enabled() bool {
	return p != nil && p.enabled
}

// ObjectName returns the key a movie is stored under. Characters that are
// unsafe in object keys and download filenames are stripped from the basename.
func (p *Publisher) ObjectName(runID, moviePath string) string {
	parts := make([]string, 0, 3)
	if p.prefix != "" {
		parts = append(parts, p.prefix)
	}
	if runID = strings.TrimSpace(runID); runID != "" {
		parts = append(parts, runID)
	}
	name := textutil.SanitizeFileName(filepath.Base(moviePath))
	if name == "" || name == "." {
		name = "mind_movie.mp4"
	}
	parts = append(parts, name)
	return path.Join(parts...)
}

// Publish uploads moviePath and returns a presigned download link.
func (p *Publisher) Publish(ctx context.Context, runID, moviePath string) (Result, error) {
	if !p.Enabled() {
		return Result{}, nil
	}
	info, err := os.Stat(moviePath)
	if err != nil {
		return Result{}, services.Wrap(services.ErrNotFound, "publish", "stat movie", moviePath, err)
	}

	if err := p.ensureBucket(ctx); err != nil {
		return Result{}, err
	}

	object := p.ObjectName(runID, moviePath)
	upload, err := p.store.FPutObject(ctx, p.bucket, object, moviePath, minio.PutObjectOptions{
		ContentType: contentType(moviePath),
		UserMetadata: map[string]string{
			"run-id": runID,
		},
	})
	if err != nil {
		return Result{}, services.Wrap(services.ErrTransient, "publish", "upload", object, err)
	}

	link, err := p.store.PresignedGetObject(ctx, p.bucket, object, p.expiry, url.Values{})
	if err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "publish", "presign", object, err)
	}

	size := upload.Size
	if size <= 0 {
		size = info.Size()
	}
	result := Result{
		Bucket:    p.bucket,
		Object:    object,
		Size:      size,
		URL:       link.String(),
		ExpiresAt: p.now().Add(p.expiry),
	}
	p.logger.Info("movie published",
		logging.String(logging.FieldEventType, "movie_published"),
		logging.String("bucket", result.Bucket),
		logging.String("object", result.Object),
		logging.Int64("size_bytes", result.Size),
		logging.Duration("url_expiry", p.expiry),
	)
	return result, nil
}

func (p *Publisher) ensureBucket(ctx context.Context) error {
	exists, err := p.store.BucketExists(ctx, p.bucket)
	if err != nil {
		return services.Wrap(services.ErrTransient, "publish", "check bucket", p.bucket, err)
	}
	if exists {
		return nil
	}
	if err := p.store.MakeBucket(ctx, p.bucket, minio.MakeBucketOptions{}); err != nil {
		return services.Wrap(services.ErrExternalTool, "publish", "create bucket", p.bucket, err)
	}
	p.logger.Info("bucket created", logging.String("bucket", p.bucket))
	return nil
}

func contentType(moviePath string) string {
	if kind, err := filetype.MatchFile(moviePath); err == nil && kind != filetype.Unknown && kind.MIME.Value != "" {
		return kind.MIME.Value
	}
	return "video/mp4"
}

func missingSettings(pc config.Publish) []string {
	settings := []struct {
		name  string
		value string
	}{
		{"publish.endpoint", pc.Endpoint},
		{"publish.bucket", pc.Bucket},
		{"publish.access_key", pc.AccessKey},
		{"publish.secret_key", pc.SecretKey},
	}
	var missing []string
	for _, s := range settings {
		if strings.TrimSpace(s.value) == "" {
			missing = append(missing, s.name)
		}
	}
	return missing
}
