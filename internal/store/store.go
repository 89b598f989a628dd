// Package store is a directory-backed key/value store of byte payloads.
//
// The mount subsystem keeps two of them: one holding serialized mount records and one
// holding the original content displaced by a mount. Entries are plain files named after
// their key, so a stashed directory can be moved into the store with a single rename.
package store

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/stagecraft/stagecraft/internal/style"
)

const tmpPrefix = ".tmp-"

// Dir stores each entry as a file (or directory) directly under root.
type Dir struct {
	root string
}

// New opens the store rooted at root, creating the directory if needed.
func New(root string) (*Dir, error) {
	if err := os.MkdirAll(root, 0750); err != nil {
		return nil, errors.Wrapf(err, "creating store %s", style.Symbol(root))
	}
	return &Dir{root: root}, nil
}

func (d *Dir) Root() string {
	return d.root
}

// Write durably stores data under name. The previous value, if any, is replaced atomically.
func (d *Dir) Write(name string, data []byte) error {
	if err := validName(name); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(d.root, tmpPrefix+name+"-")
	if err != nil {
		return errors.Wrapf(err, "writing %s", style.Symbol(name))
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "writing %s", style.Symbol(name))
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "syncing %s", style.Symbol(name))
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "writing %s", style.Symbol(name))
	}

	if err := os.Rename(tmp.Name(), d.Path(name)); err != nil {
		return errors.Wrapf(err, "committing %s", style.Symbol(name))
	}
	return nil
}

// Read returns the bytes stored under name. A missing entry yields an error matching fs.ErrNotExist.
func (d *Dir) Read(name string) ([]byte, error) {
	if err := validName(name); err != nil {
		return nil, err
	}

	b, err := os.ReadFile(d.Path(name))
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", style.Symbol(name))
	}
	return b, nil
}

// DeleteIfExists removes the entry stored under name. Deleting a missing entry is not an error.
func (d *Dir) DeleteIfExists(name string) error {
	if err := validName(name); err != nil {
		return err
	}

	if err := os.RemoveAll(d.Path(name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.Wrapf(err, "deleting %s", style.Symbol(name))
	}
	return nil
}

// List returns the names of all committed entries, sorted.
func (d *Dir) List() ([]string, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "listing %s", style.Symbol(d.root))
	}

	var names []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), tmpPrefix) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// GenerateName returns a name no other entry uses.
func (d *Dir) GenerateName() string {
	return uuid.New().String()
}

// Path is where the entry stored under name lives on disk.
func (d *Dir) Path(name string) string {
	return filepath.Join(d.root, name)
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, tmpPrefix) {
		return errors.Errorf("invalid store key %s", style.Symbol(name))
	}
	return nil
}
