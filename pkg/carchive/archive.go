// Package carchive parses the self-extracting CArchive bundle that PyInstaller
// appends to the executables it freezes. It locates the archive inside an
// arbitrary host file, decodes its cookie and table of contents, and exposes
// the packed entries for listing or extraction. Parsing is deliberately
// tolerant: damaged directory records are skipped and reported instead of
// aborting the whole recovery.
package carchive

import (
	"errors"
	"io"
)

// Errors reported while locating and decoding an archive.
var (
	// ErrMarkerNotFound means no cookie magic exists anywhere in the host file.
	ErrMarkerNotFound = errors.New("carchive: cookie magic not found")

	// ErrTruncatedCookie means the file ends before the full cookie record.
	ErrTruncatedCookie = errors.New("carchive: truncated cookie")

	// ErrBadMagic means the bytes at the located position do not start with
	// the cookie magic. Only possible if the source mutates between reads.
	ErrBadMagic = errors.New("carchive: cookie magic mismatch")

	// ErrTOCOutOfBounds means no candidate anchor places the table of
	// contents inside the host file.
	ErrTOCOutOfBounds = errors.New("carchive: table of contents out of bounds")
)

// ByteSource provides random access to the bytes of a host file. Reads must
// be safe for concurrent use, which both *os.File and memory-mapped readers
// satisfy.
type ByteSource interface {
	io.ReaderAt
	Size() int64
}

// Archive is a parsed view of one PyInstaller bundle inside a host file.
// It holds the decoded cookie, the resolved layout and the recovered
// directory entries; the packed payload bytes stay in the source and are
// only read during extraction.
type Archive struct {
	src       ByteSource
	cookiePos int64
	cookie    Cookie
	layout    Layout
	entries   []Entry
	skipped   []SkippedRecord
}

// Open locates and parses the bundle inside src. The source is retained for
// later payload reads and must stay open while the archive is in use.
func Open(src ByteSource) (*Archive, error) {
	size := src.Size()

	cookiePos, err := FindMagic(src, size)
	if err != nil {
		return nil, err
	}

	cookie, err := ReadCookie(src, size, cookiePos)
	if err != nil {
		return nil, err
	}

	layout, err := ResolveLayout(cookie, size, cookiePos)
	if err != nil {
		return nil, err
	}

	entries, skipped := parseTOC(src, layout)

	return &Archive{
		src:       src,
		cookiePos: cookiePos,
		cookie:    cookie,
		layout:    layout,
		entries:   entries,
		skipped:   skipped,
	}, nil
}

// Source returns the byte source the archive was opened from.
func (a *Archive) Source() ByteSource {
	return a.src
}

// CookiePos returns the absolute offset of the cookie magic in the host file.
func (a *Archive) CookiePos() int64 {
	return a.cookiePos
}

// Cookie returns the decoded cookie record.
func (a *Archive) Cookie() Cookie {
	return a.cookie
}

// Layout returns the resolved overlay and directory positions.
func (a *Archive) Layout() Layout {
	return a.layout
}

// Entries returns the recovered directory entries in archive order.
// The returned slice is shared and must not be modified.
func (a *Archive) Entries() []Entry {
	return a.entries
}

// Skipped returns the directory records that could not be decoded.
func (a *Archive) Skipped() []SkippedRecord {
	return a.skipped
}
