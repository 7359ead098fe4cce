package featcache

import "errors"

var (
	// ErrDisposed is returned by operations on a closed store.
	ErrDisposed = errors.New("featcache: store is closed")

	// ErrUnsupported reports a display object no materializer supports.
	ErrUnsupported = errors.New("featcache: unsupported display object")

	// ErrMaterializerPanic wraps a panic raised inside a materializer.
	ErrMaterializerPanic = errors.New("featcache: materializer panicked")
)
