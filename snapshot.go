package featcache

import (
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// WriteSnapshot drains c into w as a stream of msgpack-encoded features and
// closes c. It returns the number of features written.
func WriteSnapshot(w io.Writer, c *Cursor) (int, error) {
	defer c.Close()

	enc := msgpack.NewEncoder(w)
	enc.UseCompactInts(true)
	n := 0
	for c.Next() {
		f := c.Feature()
		if err := enc.Encode(&f); err != nil {
			return n, fmt.Errorf("featcache: encode feature %d: %w", f.ID, err)
		}
		n++
	}
	return n, nil
}

// ReadSnapshot decodes a stream written by WriteSnapshot.
func ReadSnapshot(r io.Reader) ([]Feature, error) {
	dec := msgpack.NewDecoder(r)
	var out []Feature
	for {
		var f Feature
		err := dec.Decode(&f)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, fmt.Errorf("featcache: decode feature %d: %w", len(out), err)
		}
		out = append(out, f)
	}
}

// Dump writes a snapshot of the features matching f to w.
// It returns ErrDisposed when the store is closed.
func (s *Store) Dump(w io.Writer, f Filter) (int, error) {
	if s.closed.Load() {
		return 0, ErrDisposed
	}
	return WriteSnapshot(w, s.Query(f))
}
