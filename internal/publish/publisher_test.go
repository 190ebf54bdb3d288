package publish

import (
	"context"
	"errors"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"

	"mindmovie/internal/config"
	"mindmovie/internal/logging"
	"mindmovie/internal/services"
	"mindmovie/internal/testsupport"
)

type fakeStore struct {
	exists      bool
	existsErr   error
	putErr      error
	made        []string
	puts        []string
	contentType string
	expiry      time.Duration
}

func (f *fakeStore) BucketExists(context.Context, string) (bool, error) {
	return f.exists, f.existsErr
}

func (f *fakeStore) MakeBucket(_ context.Context, bucket string, _ minio.MakeBucketOptions) error {
	f.made = append(f.made, bucket)
	f.exists = true
	return nil
}

func (f *fakeStore) FPutObject(_ context.Context, bucket, object, _ string, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.putErr != nil {
		return minio.UploadInfo{}, f.putErr
	}
	f.puts = append(f.puts, bucket+"/"+object)
	f.contentType = opts.ContentType
	return minio.UploadInfo{Bucket: bucket, Key: object, Size: 96}, nil
}

func (f *fakeStore) PresignedGetObject(_ context.Context, bucket, object string, expires time.Duration, _ url.Values) (*url.URL, error) {
	f.expiry = expires
	return url.Parse("https://storage.example.com/" + bucket + "/" + object + "?X-Amz-Signature=abc")
}

func newTestPublisher(pc config.Publish, store objectStore) *Publisher {
	p := &Publisher{logger: logging.NewNop(), now: func() time.Time { return time.Unix(1_700_000_000, 0) }}
	p.configure(pc, store)
	return p
}

func TestNewPublisherDisabled(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	p, err := NewPublisher(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("NewPublisher: %v", err)
	}
	if p.Enabled() {
		t.Fatal("expected disabled publisher")
	}
	res, err := p.Publish(context.Background(), "run-1", cfg.Build.OutputPath)
	if err != nil || res.URL != "" {
		t.Fatalf("disabled publish should be a no-op, got %+v %v", res, err)
	}
}

func TestNewPublisherRequiresSettings(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Publish.Enabled = true
	cfg.Publish.Endpoint = "play.min.io"
	_, err := NewPublisher(cfg, logging.NewNop())
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if !strings.Contains(err.Error(), "publish.bucket, publish.access_key, publish.secret_key") {
		t.Fatalf("expected missing settings listed, got %v", err)
	}
}

func TestNewPublisherBuildsClient(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Publish = config.Publish{
		Enabled:   true,
		Endpoint:  "localhost:9000",
		Bucket:    "movies",
		AccessKey: "minio",
		SecretKey: "minio123",
	}
	p, err := NewPublisher(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("NewPublisher: %v", err)
	}
	if !p.Enabled() {
		t.Fatal("expected enabled publisher")
	}
	if p.expiry != 24*time.Hour {
		t.Fatalf("expiry = %v, want 24h default", p.expiry)
	}
}

func TestPublishUploadsAndPresigns(t *testing.T) {
	movie := filepath.Join(t.TempDir(), "mind_movie.mp4")
	testsupport.WriteClip(t, movie)
	store := &fakeStore{}
	p := newTestPublisher(config.Publish{Bucket: "movies", Prefix: "/mindmovie/", URLExpiryHours: 48}, store)

	res, err := p.Publish(context.Background(), "run-42", movie)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(store.made) != 1 || store.made[0] != "movies" {
		t.Fatalf("expected bucket created, got %v", store.made)
	}
	if res.Object != "mindmovie/run-42/mind_movie.mp4" {
		t.Fatalf("object = %q", res.Object)
	}
	if len(store.puts) != 1 || store.puts[0] != "movies/mindmovie/run-42/mind_movie.mp4" {
		t.Fatalf("puts = %v", store.puts)
	}
	if store.contentType != "video/mp4" {
		t.Fatalf("content type = %q", store.contentType)
	}
	if store.expiry != 48*time.Hour {
		t.Fatalf("expiry = %v", store.expiry)
	}
	if !strings.HasPrefix(res.URL, "https://storage.example.com/movies/mindmovie/run-42/") {
		t.Fatalf("url = %q", res.URL)
	}
	if res.Size != 96 {
		t.Fatalf("size = %d", res.Size)
	}
	if !res.ExpiresAt.Equal(time.Unix(1_700_000_000, 0).Add(48 * time.Hour)) {
		t.Fatalf("expires at = %v", res.ExpiresAt)
	}
}

func TestObjectNameSanitizesMovieName(t *testing.T) {
	p := newTestPublisher(config.Publish{Bucket: "movies", Prefix: "visions"}, &fakeStore{})
	got := p.ObjectName("run-7", "/tmp/out/My Vision: 2027?.mp4")
	if got != "visions/run-7/My Vision- 2027.mp4" {
		t.Fatalf("object = %q", got)
	}
	if got := p.ObjectName("", "/tmp/out/mind_movie.mp4"); got != "visions/mind_movie.mp4" {
		t.Fatalf("object without run id = %q", got)
	}
}

func TestPublishClampsExpiry(t *testing.T) {
	p := newTestPublisher(config.Publish{Bucket: "movies", URLExpiryHours: 1000}, &fakeStore{exists: true})
	if p.expiry != 7*24*time.Hour {
		t.Fatalf("expiry = %v, want 168h", p.expiry)
	}
}

func TestPublishErrors(t *testing.T) {
	movie := filepath.Join(t.TempDir(), "mind_movie.mp4")
	testsupport.WriteClip(t, movie)

	p := newTestPublisher(config.Publish{Bucket: "movies"}, &fakeStore{exists: true, putErr: errors.New("connection reset")})
	if _, err := p.Publish(context.Background(), "run", movie); !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient upload error, got %v", err)
	}

	p = newTestPublisher(config.Publish{Bucket: "movies"}, &fakeStore{existsErr: errors.New("dns failure")})
	if _, err := p.Publish(context.Background(), "run", movie); err == nil || !strings.Contains(err.Error(), "check bucket") {
		t.Fatalf("expected bucket check error, got %v", err)
	}

	p = newTestPublisher(config.Publish{Bucket: "movies"}, &fakeStore{exists: true})
	if _, err := p.Publish(context.Background(), "run", filepath.Join(t.TempDir(), "missing.mp4")); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
