package video

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/h2non/filetype"

	"mindmovie/internal/services"
)

// sniffLen is enough for every container signature filetype checks.
const sniffLen = 262

// VerifyVideo checks that head starts with a known video container signature.
func VerifyVideo(head []byte) error {
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	if !filetype.IsVideo(head) {
		detected := "unknown"
		if kind, err := filetype.Match(head); err == nil && kind != filetype.Unknown {
			detected = kind.MIME.Value
		}
		return fmt.Errorf("%w (detected %s)", ErrNotVideo, detected)
	}
	return nil
}

// WriteVideo verifies data and writes it atomically to path.
func WriteVideo(path string, data []byte) error {
	if err := VerifyVideo(data); err != nil {
		return err
	}
	return writeAtomic(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// Download streams url into path. The body is sniffed before it replaces any
// existing file. 5xx and 429 responses are marked transient.
func Download(ctx context.Context, client *http.Client, url string, header http.Header, path string) error {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("download clip: %w", err)
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("download clip: %w", err)
	}
	defer resp.Body.Close()
	if err := StatusError("download clip", resp); err != nil {
		return err
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(resp.Body, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return fmt.Errorf("download clip: %w", err)
	}
	head = head[:n]
	if err := VerifyVideo(head); err != nil {
		return err
	}
	return writeAtomic(path, func(w io.Writer) error {
		if _, err := w.Write(head); err != nil {
			return err
		}
		_, err := io.Copy(w, resp.Body)
		return err
	})
}

// StatusError converts a non-2xx response into an error, marking rate limits
// and server errors transient. The body is not consumed beyond a short excerpt.
func StatusError(op string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := fmt.Sprintf("http %d: %s", resp.StatusCode, string(excerpt))
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode >= 500 {
		return services.Wrap(services.ErrTransient, "video", op, msg, nil)
	}
	return services.Wrap(services.ErrExternalTool, "video", op, msg, nil)
}

func writeAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create clip dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".part-*")
	if err != nil {
		return fmt.Errorf("create clip temp file: %w", err)
	}
	tmpName := tmp.Name()
	if err := write(tmp); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write clip: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close clip: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("finalize clip: %w", err)
	}
	return nil
}
