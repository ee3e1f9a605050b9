package handlers

import (
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var (
	ErrOutsideRoot  = errors.New("path escapes static root")
	ErrFileNotFound = errors.New("static file not found")
)

const defaultContentType = "application/octet-stream"

// StaticFiles serves files from a single root directory.
type StaticFiles struct {
	root string
}

// NewStaticFiles creates a file server rooted at dir.
func NewStaticFiles(dir string) (*StaticFiles, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve static root: %w", err)
	}

	return &StaticFiles{root: filepath.Clean(root)}, nil
}

// Root returns the absolute static root.
func (s *StaticFiles) Root() string {
	return s.root
}

// IsAsset reports whether a request segment names a file rather than a short id.
func IsAsset(segment string) bool {
	return path.Ext(segment) != ""
}

// Resolve maps an escaped request path to a file under the root. Paths that
// resolve outside the root are rejected before the filesystem is consulted.
func (s *StaticFiles) Resolve(name string) (string, error) {
	unescaped, err := url.PathUnescape(name)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrOutsideRoot, err)
	}

	full := filepath.Clean(filepath.Join(s.root, filepath.FromSlash(unescaped)))
	if full != s.root && !strings.HasPrefix(full, s.root+string(filepath.Separator)) {
		return "", ErrOutsideRoot
	}

	return full, nil
}

// Read returns the file contents and a content type derived from its extension.
func (s *StaticFiles) Read(name string) ([]byte, string, error) {
	full, err := s.Resolve(name)
	if err != nil {
		return nil, "", err
	}

	info, err := os.Stat(full)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && info.IsDir()) {
		return nil, "", ErrFileNotFound
	}

	if err != nil {
		return nil, "", fmt.Errorf("stat static file: %w", err)
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return nil, "", fmt.Errorf("read static file: %w", err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(full))
	if contentType == "" {
		contentType = defaultContentType
	}

	return data, contentType, nil
}
