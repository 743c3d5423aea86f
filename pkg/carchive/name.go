package carchive

import (
	"bytes"
	"fmt"
	"strings"
)

// sanitizeName turns the raw name bytes of a directory record into a safe
// relative path. Damaged names are replaced with a synthesized one derived
// from the record's position, which keeps it unique within the archive and
// stable across runs.
func sanitizeName(raw []byte, tocOffset int64) string {
	name := string(bytes.TrimRight(raw, "\x00"))
	if plausibleName(name) {
		if cleaned := neutralizePath(name); cleaned != "" {
			return cleaned
		}
	}
	return fmt.Sprintf("unnamed_%d", tocOffset)
}

// plausibleName rejects names that are empty, absolute, or carry bytes no
// real file name would.
func plausibleName(name string) bool {
	if name == "" {
		return false
	}
	if name[0] == '/' || name[0] == '\\' {
		return false
	}
	if strings.TrimSpace(name) == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		if name[i] < 32 || name[i] > 126 {
			return false
		}
	}
	return true
}

// neutralizePath confines a name below the extraction root. Separators are
// unified, drive prefixes are dropped, and any ".." component is rewritten
// so the path cannot climb out. Returns "" if nothing usable remains.
func neutralizePath(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	if len(name) >= 2 && name[1] == ':' && isDriveLetter(name[0]) {
		name = name[2:]
	}

	parts := strings.Split(name, "/")
	clean := parts[:0]
	for _, part := range parts {
		switch part {
		case "", ".":
			continue
		case "..":
			clean = append(clean, "__")
		default:
			clean = append(clean, part)
		}
	}

	return strings.Join(clean, "/")
}

func isDriveLetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}
