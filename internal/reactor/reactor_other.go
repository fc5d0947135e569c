//go:build !linux
// +build !linux

package reactor

// New reports ErrUnsupported: only the epoll poller is implemented.
func New() (Poller, error) {
	return nil, ErrUnsupported
}
