package paths

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

var urlRegexp = regexp.MustCompile(`^https?://`)

// IsURL reports whether ref is an http(s) URL. Anything else is treated as a local path.
func IsURL(ref string) bool {
	return urlRegexp.MatchString(ref)
}

// IsMountedUnderneath reports whether dest is one of mounts or lies inside one of them.
// All paths are compared in cleaned form, and a match must end on a separator boundary
// so that /foo does not cover /foobar.
func IsMountedUnderneath(mounts []string, dest string) bool {
	dest = filepath.Clean(dest)
	for _, m := range mounts {
		if IsSubPath(filepath.Clean(m), dest) {
			return true
		}
	}
	return false
}

// IsSubPath reports whether path equals parent or is a descendant of it.
func IsSubPath(parent, path string) bool {
	if path == parent {
		return true
	}
	prefix := parent
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(path, prefix)
}

// Resolve turns path into an absolute, cleaned path, interpreting relative paths against root.
func Resolve(root, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(root, path)
}

// Relative expresses path relative to root, failing when path escapes root.
func Relative(root, path string) (string, error) {
	rel, err := filepath.Rel(root, Resolve(root, path))
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.Errorf("%s is outside of %s", path, root)
	}
	return rel, nil
}

// FindUp walks from dir towards the filesystem root and returns the first directory containing name.
func FindUp(dir, name string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.Errorf("could not find %s in %s or any parent directory", name, dir)
		}
		dir = parent
	}
}
