package fsutil

import (
	"io/fs"

	"github.com/pkg/errors"
)

// Kind classifies filesystem errors independently of the platform.
type Kind int

const (
	KindOther Kind = iota
	KindNotExist
	KindExist
	KindIsDir
	KindNotDir
	KindNotEmpty
	KindPermission
)

func (k Kind) String() string {
	switch k {
	case KindNotExist:
		return "no such file or directory"
	case KindExist:
		return "already exists"
	case KindIsDir:
		return "is a directory"
	case KindNotDir:
		return "not a directory"
	case KindNotEmpty:
		return "directory not empty"
	case KindPermission:
		return "access denied"
	}
	return "other"
}

// KindOf returns the Kind of err, or KindOther when it is not recognized (including nil).
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindOther
	// errno checks come first: ENOTEMPTY also matches fs.ErrExist
	case errors.Is(err, errNotEmpty):
		return KindNotEmpty
	case errors.Is(err, errIsDir):
		return KindIsDir
	case errors.Is(err, errNotDir):
		return KindNotDir
	case errors.Is(err, fs.ErrNotExist):
		return KindNotExist
	case errors.Is(err, fs.ErrExist):
		return KindExist
	case errors.Is(err, fs.ErrPermission):
		return KindPermission
	}
	return KindOther
}
