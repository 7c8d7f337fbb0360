package download

import "errors"

var (
	// ErrFetch marks a network or remote-side failure for one file.
	ErrFetch = errors.New("fetch failed")
	// ErrWrite marks a local filesystem failure for one file.
	ErrWrite = errors.New("write failed")
	// ErrTooLarge is returned by fetchers when a body exceeds their size ceiling.
	ErrTooLarge = errors.New("file exceeds size limit")
)

// retryable reports whether another attempt could succeed.
func retryable(err error) bool {
	return !errors.Is(err, ErrTooLarge) && !errors.Is(err, ErrWrite)
}
