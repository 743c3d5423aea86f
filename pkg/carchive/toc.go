package carchive

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/go-restruct/restruct"
)

// tocEntryFixedSize is the width of a record's fixed field block, including
// the leading length field. Everything past it is the entry name.
const tocEntryFixedSize = 18

// Kind labels what a directory entry contains, using the letter codes
// PyInstaller writes.
type Kind byte

const (
	KindScript     Kind = 's' // python script run at startup
	KindModule     Kind = 'm' // python module
	KindPackage    Kind = 'M' // python package
	KindBinary     Kind = 'b' // shared library or other binary
	KindData       Kind = 'x' // arbitrary data file
	KindPYZ        Kind = 'z' // embedded PYZ archive
	KindZlib       Kind = 'Z' // zlib archive variant of a PYZ
	KindDependency Kind = 'd' // reference into another bundle
	KindOption     Kind = 'o' // runtime option string
)

func (k Kind) String() string {
	switch k {
	case KindScript:
		return "script"
	case KindModule:
		return "module"
	case KindPackage:
		return "package"
	case KindBinary:
		return "binary"
	case KindData:
		return "data"
	case KindPYZ, KindZlib:
		return "pyz"
	case KindDependency:
		return "dependency"
	case KindOption:
		return "option"
	default:
		return fmt.Sprintf("kind(0x%02x)", byte(k))
	}
}

// Entry describes one packed file recovered from the table of contents.
// Entries are produced once during Open and never mutated afterwards.
type Entry struct {
	Position         int64  // absolute payload offset in the host file
	CompressedSize   uint32 // stored payload size
	UncompressedSize uint32 // declared size after decompression
	Compressed       bool   // payload is a zlib stream
	Kind             Kind
	Name             string // sanitized relative path, forward slashes
}

// SkippedRecord notes a directory record that was dropped during parsing.
type SkippedRecord struct {
	Offset int64 // absolute offset of the record in the host file
	Reason string
}

// rawTOCEntry mirrors the fixed field block of a directory record.
type rawTOCEntry struct {
	EntrySize        uint32 `struct:"uint32,big"`
	Position         uint32 `struct:"uint32,big"`
	CompressedSize   uint32 `struct:"uint32,big"`
	UncompressedSize uint32 `struct:"uint32,big"`
	CompressionFlag  uint8  `struct:"uint8"`
	Kind             byte   `struct:"byte"`
}

// parseTOC decodes directory records sequentially until the declared length
// is consumed. A corrupt record is skipped, with the cursor still advanced by
// its declared size so parsing resumes at the next nominal boundary; only a
// record whose length cannot be read or advances nowhere ends the walk early.
// Whatever was recovered up to that point is kept.
func parseTOC(src io.ReaderAt, layout Layout) ([]Entry, []SkippedRecord) {
	var (
		entries []Entry
		skipped []SkippedRecord
	)

	var sizeBuf [4]byte
	parsed := int64(0)
	for parsed < layout.TOCLen {
		pos := layout.TOCPos + parsed

		if _, err := src.ReadAt(sizeBuf[:], pos); err != nil {
			skipped = append(skipped, SkippedRecord{
				Offset: pos,
				Reason: fmt.Sprintf("record length unreadable: %v", err),
			})
			break
		}
		declared := int64(binary.BigEndian.Uint32(sizeBuf[:]))

		if declared < tocEntryFixedSize || declared > layout.TOCLen {
			skipped = append(skipped, SkippedRecord{
				Offset: pos,
				Reason: fmt.Sprintf("record length %d out of range", declared),
			})
			if declared == 0 {
				break
			}
			parsed += declared
			continue
		}

		record := make([]byte, declared)
		if _, err := src.ReadAt(record, pos); err != nil {
			skipped = append(skipped, SkippedRecord{
				Offset: pos,
				Reason: fmt.Sprintf("short record read: %v", err),
			})
			parsed += declared
			continue
		}

		var raw rawTOCEntry
		if err := restruct.Unpack(record[:tocEntryFixedSize], binary.BigEndian, &raw); err != nil {
			skipped = append(skipped, SkippedRecord{
				Offset: pos,
				Reason: fmt.Sprintf("undecodable record: %v", err),
			})
			parsed += declared
			continue
		}

		name := sanitizeName(record[tocEntryFixedSize:], parsed)
		kind := Kind(raw.Kind)
		if needsPycSuffix(kind, name) {
			name += ".pyc"
		}

		entries = append(entries, Entry{
			Position:         layout.OverlayPos + int64(raw.Position),
			CompressedSize:   raw.CompressedSize,
			UncompressedSize: raw.UncompressedSize,
			Compressed:       raw.CompressionFlag != 0,
			Kind:             kind,
			Name:             name,
		})
		parsed += declared
	}

	return entries, skipped
}

// needsPycSuffix reports whether a python code entry is stored without its
// compiled extension. PyInstaller strips .pyc from script and module names.
func needsPycSuffix(k Kind, name string) bool {
	switch k {
	case KindScript, KindModule, KindPackage:
		return !strings.Contains(name, ".")
	}
	return false
}
