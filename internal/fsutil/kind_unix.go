//go:build unix

package fsutil

import "golang.org/x/sys/unix"

var (
	errIsDir    error = unix.EISDIR
	errNotDir   error = unix.ENOTDIR
	errNotEmpty error = unix.ENOTEMPTY
)
