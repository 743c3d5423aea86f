package carchive

import (
	"bytes"
	"fmt"
	"io"
)

// Magic marks the start of a CArchive cookie. PyInstaller places it at the
// head of the cookie record near the end of the host file.
var Magic = [8]byte{'M', 'E', 'I', 0x0C, 0x0B, 0x0A, 0x0B, 0x0E}

// searchChunkSize is how many bytes each backward scan window covers.
const searchChunkSize = 8192

// FindMagic returns the absolute offset of the last occurrence of Magic in
// the source. The scan walks the file backward in fixed-size windows so a
// bundle appended behind another embedded archive is still found. Adjacent
// windows overlap by len(Magic)-1 bytes, so a marker straddling a window
// boundary is never missed.
func FindMagic(src io.ReaderAt, size int64) (int64, error) {
	magicLen := int64(len(Magic))
	if size < magicLen {
		return 0, fmt.Errorf("%w: file is only %d bytes", ErrMarkerNotFound, size)
	}

	buf := make([]byte, searchChunkSize)
	end := size
	for end >= magicLen {
		start := end - searchChunkSize
		if start < 0 {
			start = 0
		}

		window := buf[:end-start]
		if _, err := src.ReadAt(window, start); err != nil {
			return 0, fmt.Errorf("read scan window at %d: %w", start, err)
		}

		if i := bytes.LastIndex(window, Magic[:]); i >= 0 {
			return start + int64(i), nil
		}
		if start == 0 {
			break
		}
		end = start + magicLen - 1
	}

	return 0, ErrMarkerNotFound
}
