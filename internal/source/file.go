package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FileResolver reads audio files from inside the library paths
type FileResolver struct {
	roots    []string
	maxBytes int64
}

// NewFileResolver creates a file resolver. Without library paths every file
// reference is rejected.
func NewFileResolver(libraryPaths []string, maxBytes int64) *FileResolver {
	roots := make([]string, 0, len(libraryPaths))
	for _, p := range libraryPaths {
		if p == "" {
			continue
		}
		roots = append(roots, canonical(p))
	}
	return &FileResolver{roots: roots, maxBytes: maxBytes}
}

// Resolve reads the file at path
func (f *FileResolver) Resolve(ctx context.Context, path string) ([]byte, error) {
	if !filepath.IsAbs(path) {
		return nil, fmt.Errorf("%s: path must be absolute", path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !SupportedExtensions[ext] {
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedExtension)
	}

	resolved := canonical(path)
	if !f.inLibrary(resolved) {
		return nil, fmt.Errorf("%s: %w", path, ErrOutsideLibrary)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := os.Open(resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat audio file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if f.maxBytes > 0 && info.Size() > f.maxBytes {
		return nil, fmt.Errorf("%s (%d bytes): %w", path, info.Size(), ErrTooLarge)
	}

	return readLimited(file, f.maxBytes)
}

func (f *FileResolver) inLibrary(path string) bool {
	for _, root := range f.roots {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			continue
		}
		if rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// canonical cleans p and resolves symlinks when the target exists, so a link
// inside the library cannot point outside it.
func canonical(p string) string {
	p = filepath.Clean(p)
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		return resolved
	}
	return p
}

// readLimited reads r fully, failing once more than max bytes arrive
func readLimited(r io.Reader, max int64) ([]byte, error) {
	if max <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > max {
		return nil, ErrTooLarge
	}
	return data, nil
}
