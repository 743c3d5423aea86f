// Package hostfile provides read-only random access to an executable under
// inspection. Files are memory-mapped when the platform allows it, with a
// plain file handle as fallback, so large installers can be scanned without
// loading them into memory.
package hostfile

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/exp/mmap"
)

// File is a read-only, random-access view of a host executable. Reads are
// positional and safe for concurrent use.
type File struct {
	ra     io.ReaderAt
	closer io.Closer
	size   int64
	path   string
	mapped bool
}

// Open opens path for random access. The file is memory-mapped when
// possible; platforms or filesystems that refuse the mapping fall back to a
// regular file handle with the same read semantics.
func Open(path string) (*File, error) {
	if r, err := mmap.Open(path); err == nil {
		return &File{
			ra:     r,
			closer: r,
			size:   int64(r.Len()),
			path:   path,
			mapped: true,
		}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	return &File{
		ra:     f,
		closer: f,
		size:   info.Size(),
		path:   path,
	}, nil
}

// ReadAt implements io.ReaderAt.
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	return f.ra.ReadAt(p, off)
}

// Size returns the file size in bytes.
func (f *File) Size() int64 {
	return f.size
}

// Path returns the path the file was opened from.
func (f *File) Path() string {
	return f.path
}

// Mapped reports whether the file is backed by a memory mapping.
func (f *File) Mapped() bool {
	return f.mapped
}

// Close releases the mapping or file handle.
func (f *File) Close() error {
	return f.closer.Close()
}
