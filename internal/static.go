package internal

import (
	"os"
	"path/filepath"
	"strings"
)

// StaticFileResolver maps request paths to regular files under a root
// directory. Paths that resolve outside the root, through ".." or a
// symlink, are rejected.
type StaticFileResolver struct {
	root string
}

// NewStaticFileResolver creates a resolver for dir. The directory does not
// have to exist; a missing root resolves nothing.
func NewStaticFileResolver(dir string) *StaticFileResolver {
	root, err := filepath.Abs(dir)
	if err != nil {
		root = filepath.Clean(dir)
	}
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}
	return &StaticFileResolver{root: root}
}

// Root returns the absolute root directory.
func (s *StaticFileResolver) Root() string { return s.root }

// Resolve returns the file for the request path, or "" when there is none.
func (s *StaticFileResolver) Resolve(path string) string {
	if s == nil || s.root == "" || strings.ContainsRune(path, 0) {
		return ""
	}

	rel := filepath.FromSlash(filepath.Clean("/" + path))
	candidate := filepath.Join(s.root, rel)

	resolved, err := filepath.EvalSymlinks(candidate)
	if err != nil || !within(s.root, resolved) {
		return ""
	}
	info, err := os.Stat(resolved)
	if err != nil || !info.Mode().IsRegular() {
		return ""
	}
	return resolved
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// staticResponse serves a resolved static file with the same headers as
// any other file response.
func staticResponse(path string) *Response {
	r := File(path)
	r.header.Set("X-Content-Type-Options", "nosniff")
	return r
}
