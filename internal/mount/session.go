package mount

import (
	"github.com/stagecraft/stagecraft/internal/paths"
)

// Session remembers which destinations were claimed by mounts during one run.
// It is not safe for concurrent use.
type Session struct {
	claimed []string
}

func NewSession() *Session {
	return &Session{}
}

// Claim records path, an absolute destination, as mounted.
func (s *Session) Claim(path string) {
	s.claimed = append(s.claimed, path)
}

// Covers reports whether path is a claimed destination or lies inside one.
func (s *Session) Covers(path string) bool {
	return paths.IsMountedUnderneath(s.claimed, path)
}

func (s *Session) Claimed() []string {
	return append([]string(nil), s.claimed...)
}
