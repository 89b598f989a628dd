package mount

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/stagecraft/stagecraft/internal/blob"
	"github.com/stagecraft/stagecraft/internal/fsutil"
	"github.com/stagecraft/stagecraft/internal/paths"
	"github.com/stagecraft/stagecraft/internal/style"
	"github.com/stagecraft/stagecraft/pkg/logging"
)

//go:generate mockgen -package testmocks -destination testmocks/mock_engine.go github.com/stagecraft/stagecraft/internal/mount Engine

// Engine mounts and unmounts single (source, destination) pairs.
type Engine interface {
	// Mount materializes source at dest, recording how to undo it first. The returned
	// record is nil when an earlier mount of this session already covers dest. When
	// materializing fails the record is returned together with the error so the caller
	// can roll it back.
	Mount(ctx context.Context, source, dest string) (*Record, error)
	// Unmount restores the filesystem state described by record. It does not touch the ledger.
	Unmount(record Record) error
	// Reset forgets every destination claimed so far.
	Reset()
}

// Mounter is the Engine working on a project directory.
type Mounter struct {
	root    string
	ledger  *Ledger
	stash   Store
	fs      fsutil.FS
	fetcher blob.Fetcher
	logger  logging.Logger
	session *Session
	// directories created to hold a destination, pruned again once empty
	created map[string]bool
}

type MounterOption func(*Mounter)

func WithFS(fs fsutil.FS) MounterOption {
	return func(m *Mounter) {
		m.fs = fs
	}
}

func WithFetcher(fetcher blob.Fetcher) MounterOption {
	return func(m *Mounter) {
		m.fetcher = fetcher
	}
}

func WithLogger(logger logging.Logger) MounterOption {
	return func(m *Mounter) {
		m.logger = logger
	}
}

// NewMounter creates a Mounter for the project at root. Destinations are resolved against
// root and recorded relative to it; displaced content is moved into stash, which must live
// on the same filesystem as root.
func NewMounter(root string, ledger *Ledger, stash Store, opts ...MounterOption) *Mounter {
	m := &Mounter{
		root:    filepath.Clean(root),
		ledger:  ledger,
		stash:   stash,
		fs:      fsutil.NewOS(),
		logger:  logging.New(io.Discard),
		session: NewSession(),
		created: map[string]bool{},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.fetcher == nil {
		m.fetcher = blob.NewDownloader(m.logger)
	}
	return m
}

func (m *Mounter) Mount(ctx context.Context, source, dest string) (*Record, error) {
	remote := paths.IsURL(source)

	destPath := paths.Resolve(m.root, dest)
	rel, err := paths.Relative(m.root, destPath)
	if err != nil {
		return nil, errors.Wrap(err, "resolving mount destination")
	}

	var srcPath string
	if !remote {
		srcPath = paths.Resolve(m.root, source)
		exists, err := m.fs.Exists(srcPath)
		if err != nil {
			return nil, &Error{Kind: ErrSourceNotFound, Path: source, Err: err}
		}
		if !exists {
			return nil, &Error{Kind: ErrSourceNotFound, Path: source}
		}
	}

	m.logger.Debugf("Mounting %s onto %s", style.Symbol(source), style.Symbol(rel))

	covered := m.session.Covers(destPath)

	destExists, err := m.fs.Exists(destPath)
	if err != nil {
		return nil, errors.Wrapf(err, "checking %s", style.Symbol(rel))
	}

	if !destExists {
		if err := m.makeParents(destPath); err != nil {
			return nil, m.materializeError(remote, source, err)
		}
	}

	var record *Record
	if !covered {
		if destExists {
			name := m.stash.GenerateName()
			r, err := m.ledger.Append(Record{Dest: rel, Replaced: StashedAt(name)})
			if err != nil {
				return nil, err
			}

			if err := m.fs.Rename(destPath, m.stash.Path(name)); err != nil {
				if delErr := m.ledger.Delete(r.Key); delErr != nil {
					err = fmt.Errorf("%w (%s)", err, delErr)
				}
				return nil, &Error{Kind: ErrRenameFailed, Path: rel, Err: err}
			}
			destExists = false
			record = &r
		} else {
			r, err := m.ledger.Append(Record{Dest: rel, Replaced: None()})
			if err != nil {
				return nil, err
			}
			record = &r
		}

		m.session.Claim(destPath)
	}

	if destExists {
		// restoring this path is up to the record of the mount that covers it
		if err := m.fs.Remove(destPath); err != nil {
			return nil, &Error{Kind: ErrRemoveFailed, Path: rel, Err: err}
		}
	}

	if remote {
		err = m.download(ctx, source, destPath)
	} else {
		err = m.fs.Copy(srcPath, destPath)
	}
	if err != nil {
		return record, m.materializeError(remote, source, err)
	}

	return record, nil
}

// makeParents creates the missing directories above destPath, remembering each one it made.
func (m *Mounter) makeParents(destPath string) error {
	var missing []string
	for dir := filepath.Dir(destPath); dir != m.root && paths.IsSubPath(m.root, dir); dir = filepath.Dir(dir) {
		exists, err := m.fs.Exists(dir)
		if err != nil {
			return err
		}
		if exists {
			break
		}
		missing = append(missing, dir)
	}

	if err := m.fs.MkdirAll(filepath.Dir(destPath)); err != nil {
		return err
	}
	for _, dir := range missing {
		m.created[dir] = true
	}
	return nil
}

// pruneParents removes the empty directories above destPath that a mount created.
func (m *Mounter) pruneParents(destPath string) error {
	for dir := filepath.Dir(destPath); m.created[dir]; dir = filepath.Dir(dir) {
		removed, err := m.fs.RemoveEmptyDir(dir)
		if err != nil {
			return err
		}
		if !removed {
			return nil
		}
		delete(m.created, dir)
	}
	return nil
}

func (m *Mounter) download(ctx context.Context, uri, destPath string) error {
	body, err := m.fetcher.Fetch(ctx, uri)
	if err != nil {
		return err
	}
	defer body.Close()

	w, err := m.fs.Create(destPath)
	if err != nil {
		return err
	}

	if _, err := io.Copy(w, body); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func (m *Mounter) materializeError(remote bool, source string, err error) error {
	if remote {
		return &Error{Kind: ErrDownloadFailed, Path: source, Err: err}
	}
	return &Error{Kind: ErrCopyFailed, Path: source, Err: err}
}

func (m *Mounter) Unmount(record Record) error {
	rel, err := paths.Relative(m.root, record.Dest)
	if err != nil {
		return &Error{Kind: ErrRemoveFailed, Path: record.Dest, Err: err}
	}
	destPath := paths.Resolve(m.root, rel)

	m.logger.Debugf("Unmounting %s (replaced: %s)", style.Symbol(rel), record.Replaced)

	exists, err := m.fs.Exists(destPath)
	if err != nil {
		return &Error{Kind: ErrRemoveFailed, Path: rel, Err: err}
	}
	if exists {
		if err := m.fs.Remove(destPath); err != nil {
			return &Error{Kind: ErrRemoveFailed, Path: rel, Err: err}
		}
	}

	key, stashed := record.Replaced.Stashed()
	if !stashed {
		return m.prune(rel, destPath)
	}

	stashPath := m.stash.Path(key)
	found, err := m.fs.Exists(stashPath)
	if err != nil {
		return &Error{Kind: ErrRenameFailed, Path: rel, Err: err}
	}
	if !found {
		m.logger.Warnf("Original content of %s was never stashed, leaving it removed", style.Symbol(rel))
		return m.prune(rel, destPath)
	}

	if err := m.fs.MkdirAll(filepath.Dir(destPath)); err != nil {
		return &Error{Kind: ErrRenameFailed, Path: rel, Err: err}
	}
	if err := m.fs.Rename(stashPath, destPath); err != nil {
		return &Error{Kind: ErrRenameFailed, Path: rel, Err: err}
	}
	return nil
}

func (m *Mounter) prune(rel, destPath string) error {
	if err := m.pruneParents(destPath); err != nil {
		return &Error{Kind: ErrRemoveFailed, Path: rel, Err: err}
	}
	return nil
}

func (m *Mounter) Reset() {
	m.session = NewSession()
}

// Claimed lists the absolute destinations mounted during the current session.
func (m *Mounter) Claimed() []string {
	return m.session.Claimed()
}
