package transport

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// FileTransport reads file:// URLs and plain paths from the local filesystem.
// Relative paths are resolved against BaseDir, or the working directory when empty.
type FileTransport struct {
	BaseDir string
	MaxSize int64
}

func (f *FileTransport) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &Error{URL: rawURL, Operation: "read", Err: err}
	}

	p, err := LocalPath(rawURL)
	if err != nil {
		return nil, &Error{URL: rawURL, Operation: "read", Err: err}
	}
	if !filepath.IsAbs(p) && f.BaseDir != "" {
		p = filepath.Join(f.BaseDir, p)
	}

	fh, err := os.Open(p)
	if err != nil {
		return nil, &Error{URL: rawURL, Operation: "read", Err: err, Hint: "check that the patch file exists"}
	}
	defer fh.Close()

	var reader io.Reader = fh
	if f.MaxSize > 0 {
		reader = io.LimitReader(fh, f.MaxSize+1)
	}
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, &Error{URL: rawURL, Operation: "read", Err: err}
	}
	if f.MaxSize > 0 && int64(len(content)) > f.MaxSize {
		return nil, &Error{URL: rawURL, Operation: "read", Err: fmt.Errorf("file exceeds max size %d bytes", f.MaxSize)}
	}
	return content, nil
}

// LocalPath converts a file:// URL or plain path into a filesystem path.
func LocalPath(rawURL string) (string, error) {
	if !strings.HasPrefix(strings.ToLower(rawURL), "file:") {
		return filepath.FromSlash(rawURL), nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing file url: %w", err)
	}
	if u.Host != "" && u.Host != "localhost" {
		return "", fmt.Errorf("file url with remote host %q is not supported", u.Host)
	}
	if u.Path == "" {
		return filepath.FromSlash(u.Opaque), nil
	}
	return filepath.FromSlash(u.Path), nil
}
