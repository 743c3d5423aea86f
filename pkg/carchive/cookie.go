package carchive

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/go-restruct/restruct"
)

const (
	// cookieSizeLegacy is the record size written by PyInstaller 2.0.
	cookieSizeLegacy = 24

	// pythonLibNameSize is the fixed name field appended by PyInstaller 2.1+.
	pythonLibNameSize = 64

	cookieSizeModern = cookieSizeLegacy + pythonLibNameSize
)

// Revision distinguishes the two cookie layouts PyInstaller has shipped.
type Revision int

const (
	// Rev20 is the bare 24-byte cookie of PyInstaller 2.0.
	Rev20 Revision = iota + 1

	// Rev21 is the PyInstaller 2.1+ cookie, which carries the python
	// library file name after the fixed fields.
	Rev21
)

// CookieSize returns the total record size for the revision.
func (r Revision) CookieSize() int64 {
	if r == Rev21 {
		return cookieSizeModern
	}
	return cookieSizeLegacy
}

func (r Revision) String() string {
	if r == Rev21 {
		return "2.1+"
	}
	return "2.0"
}

// Cookie is the fixed metadata record at the cookie magic. All multi-byte
// fields are stored big-endian on the wire.
type Cookie struct {
	Revision      Revision
	PackageLength uint32 // byte length of the packed archive
	TOCOffset     uint32 // table of contents offset, anchor varies by producer
	TOCLength     uint32 // total byte length of the table of contents
	PythonVersion uint32 // encoded interpreter version, e.g. 311 or 27
	PythonLib     string // python library file name, empty for Rev20
}

// rawCookie mirrors the 24-byte wire record.
type rawCookie struct {
	Magic         []byte `struct:"[8]byte"`
	PackageLength uint32 `struct:"uint32,big"`
	TOCOffset     uint32 `struct:"uint32,big"`
	TOCLength     uint32 `struct:"uint32,big"`
	PythonVersion uint32 `struct:"uint32,big"`
}

// rawCookieModern mirrors the 88-byte wire record of Rev21.
type rawCookieModern struct {
	Magic         []byte `struct:"[8]byte"`
	PackageLength uint32 `struct:"uint32,big"`
	TOCOffset     uint32 `struct:"uint32,big"`
	TOCLength     uint32 `struct:"uint32,big"`
	PythonVersion uint32 `struct:"uint32,big"`
	PythonLibName []byte `struct:"[64]byte"`
}

// ReadCookie decodes the cookie record at cookiePos, detecting the layout
// revision first. A file too short for the detected record size yields
// ErrTruncatedCookie.
func ReadCookie(src io.ReaderAt, size, cookiePos int64) (Cookie, error) {
	rev := sniffRevision(src, cookiePos)

	recordSize := rev.CookieSize()
	if cookiePos+recordSize > size {
		return Cookie{}, fmt.Errorf("%w: need %d bytes at offset %d, file has %d",
			ErrTruncatedCookie, recordSize, cookiePos, size-cookiePos)
	}

	record := make([]byte, recordSize)
	if _, err := src.ReadAt(record, cookiePos); err != nil {
		return Cookie{}, fmt.Errorf("read cookie: %w", err)
	}
	if !bytes.Equal(record[:len(Magic)], Magic[:]) {
		return Cookie{}, ErrBadMagic
	}

	cookie := Cookie{Revision: rev}
	switch rev {
	case Rev21:
		var raw rawCookieModern
		if err := restruct.Unpack(record, binary.BigEndian, &raw); err != nil {
			return Cookie{}, fmt.Errorf("decode cookie: %w", err)
		}
		cookie.PackageLength = raw.PackageLength
		cookie.TOCOffset = raw.TOCOffset
		cookie.TOCLength = raw.TOCLength
		cookie.PythonVersion = raw.PythonVersion
		cookie.PythonLib = libName(raw.PythonLibName)
	default:
		var raw rawCookie
		if err := restruct.Unpack(record, binary.BigEndian, &raw); err != nil {
			return Cookie{}, fmt.Errorf("decode cookie: %w", err)
		}
		cookie.PackageLength = raw.PackageLength
		cookie.TOCOffset = raw.TOCOffset
		cookie.TOCLength = raw.TOCLength
		cookie.PythonVersion = raw.PythonVersion
	}

	return cookie, nil
}

// sniffRevision probes the 64 bytes after the legacy record for a python
// library name. The check is case-insensitive; a short or failed probe read
// classifies as legacy.
func sniffRevision(src io.ReaderAt, cookiePos int64) Revision {
	probe := make([]byte, pythonLibNameSize)
	n, _ := src.ReadAt(probe, cookiePos+cookieSizeLegacy)
	if bytes.Contains(bytes.ToLower(probe[:n]), []byte("python")) {
		return Rev21
	}
	return Rev20
}

// PythonMajorMinor splits the encoded interpreter version. Versions from
// 3.10 on are stored as major*100+minor, older ones as major*10+minor.
func (c Cookie) PythonMajorMinor() (major, minor int) {
	v := int(c.PythonVersion)
	if v >= 100 {
		return v / 100, v % 100
	}
	return v / 10, v % 10
}

// libName trims the fixed-size python library field to its printable value.
func libName(field []byte) string {
	if i := bytes.IndexByte(field, 0); i >= 0 {
		field = field[:i]
	}
	return string(bytes.TrimSpace(field))
}
