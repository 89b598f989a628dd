// Package fsutil is the filesystem the mount engine stages files with.
package fsutil

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/pkg/errors"
	ignore "github.com/sabhiram/go-gitignore"
	"golang.org/x/sync/errgroup"
)

// IgnoreFile, when present at the top of a copied directory, lists entries (gitignore syntax) to leave out of the copy.
const IgnoreFile = ".stagecraftignore"

// FS is the set of filesystem operations needed to stage and unstage files.
type FS interface {
	// Exists reports whether path exists without following a trailing symlink.
	Exists(path string) (bool, error)
	// MkdirAll creates path and any missing parents.
	MkdirAll(path string) error
	// Copy copies src to dst. Directories are copied recursively.
	Copy(src, dst string) error
	// Remove removes path and, for directories, everything underneath it.
	Remove(path string) error
	// RemoveEmptyDir removes the directory at path only when it has no entries, reporting whether it did.
	RemoveEmptyDir(path string) (bool, error)
	Rename(from, to string) error
	Open(path string) (io.ReadCloser, error)
	// Create opens path for writing, truncating any existing file.
	Create(path string) (io.WriteCloser, error)
}

// OS is an FS backed by the host filesystem.
type OS struct {
	concurrency int
}

type Option func(*OS)

// WithConcurrency bounds how many files Copy writes at the same time.
func WithConcurrency(n int) Option {
	return func(o *OS) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

func NewOS(opts ...Option) *OS {
	o := &OS{concurrency: runtime.NumCPU()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *OS) Exists(path string) (bool, error) {
	_, err := os.Lstat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (o *OS) MkdirAll(path string) error {
	return os.MkdirAll(path, 0755)
}

func (o *OS) Remove(path string) error {
	return os.RemoveAll(path)
}

func (o *OS) RemoveEmptyDir(path string) (bool, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if len(entries) > 0 {
		return false, nil
	}
	return true, os.Remove(path)
}

func (o *OS) Rename(from, to string) error {
	return os.Rename(from, to)
}

func (o *OS) Open(path string) (io.ReadCloser, error) {
	return os.Open(filepath.Clean(path))
}

func (o *OS) Create(path string) (io.WriteCloser, error) {
	return os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
}

func (o *OS) Copy(src, dst string) error {
	fi, err := os.Lstat(src)
	if err != nil {
		return err
	}

	switch {
	case fi.Mode()&fs.ModeSymlink != 0:
		return copySymlink(src, dst)
	case fi.IsDir():
		return o.copyDir(src, dst)
	default:
		return copyFile(src, dst, fi.Mode().Perm())
	}
}

func (o *OS) copyDir(src, dst string) error {
	matcher, err := loadIgnore(src)
	if err != nil {
		return err
	}

	var g errgroup.Group
	g.SetLimit(o.concurrency)

	walkErr := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel != "." && ignored(matcher, rel, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		target := filepath.Join(dst, rel)
		info, err := d.Info()
		if err != nil {
			return err
		}

		switch {
		case d.IsDir():
			return os.MkdirAll(target, info.Mode().Perm()|0700)
		case d.Type()&fs.ModeSymlink != 0:
			return copySymlink(path, target)
		case d.Type().IsRegular():
			g.Go(func() error {
				return copyFile(path, target, info.Mode().Perm())
			})
		}
		return nil
	})

	// wait for in-flight copies even when the walk failed
	copyErr := g.Wait()
	if walkErr != nil {
		return walkErr
	}
	return copyErr
}

func loadIgnore(dir string) (*ignore.GitIgnore, error) {
	path := filepath.Join(dir, IgnoreFile)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	matcher, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	return matcher, nil
}

func ignored(matcher *ignore.GitIgnore, rel string, isDir bool) bool {
	if rel == IgnoreFile {
		return true
	}
	if matcher == nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	if isDir && matcher.MatchesPath(rel+"/") {
		return true
	}
	return matcher.MatchesPath(rel)
}

func copyFile(src, dst string, mode fs.FileMode) error {
	in, err := os.Open(filepath.Clean(src))
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(filepath.Clean(dst), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.Wrapf(err, "copying %s", src)
	}
	return out.Close()
}

func copySymlink(src, dst string) error {
	target, err := os.Readlink(src)
	if err != nil {
		return err
	}
	return os.Symlink(target, dst)
}
