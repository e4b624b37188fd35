package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// maxNameAttempts bounds the search for a free file name.
const maxNameAttempts = 100

// Local stores files under a directory and serves them over HTTP.
type Local struct {
	root    string
	baseURL string
}

// NewLocal creates the root directory if needed. baseURL is the public
// prefix files are served under, e.g. "/media".
func NewLocal(root, baseURL string) (*Local, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Local{root: root, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

// Open reads a stored file.
func (l *Local) Open(ctx context.Context, ref string) ([]byte, error) {
	if err := checkRef(ref); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(l.path(ref))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	return data, err
}

// Save writes data under dir. An existing file is never overwritten; the
// name gets a random suffix instead.
func (l *Local) Save(ctx context.Context, dir, name, contentType string, data []byte) (string, error) {
	ref, err := join(dir, name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(l.path(ref)), 0o755); err != nil {
		return "", fmt.Errorf("create directory: %w", err)
	}

	candidate := ref
	for range maxNameAttempts {
		f, err := os.OpenFile(l.path(candidate), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			candidate = alternate(ref)
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create file: %w", err)
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			return "", fmt.Errorf("write file: %w", err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("close file: %w", err)
		}
		return candidate, nil
	}
	return "", fmt.Errorf("no free name for %s", ref)
}

// URL returns the download link for ref.
func (l *Local) URL(ref string) string {
	return l.baseURL + "/" + ref
}

// Handler serves stored files. Mount it under the base URL with the
// prefix stripped. Directories answer 404 so stored names cannot be listed.
func (l *Local) Handler() http.Handler {
	return http.FileServer(filesOnly{http.Dir(l.root)})
}

// filesOnly refuses to open directories.
type filesOnly struct {
	fs http.FileSystem
}

func (f filesOnly) Open(name string) (http.File, error) {
	file, err := f.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.IsDir() {
		file.Close()
		return nil, os.ErrNotExist
	}
	return file, nil
}

func (l *Local) path(ref string) string {
	return filepath.Join(l.root, filepath.FromSlash(path.Clean(ref)))
}
