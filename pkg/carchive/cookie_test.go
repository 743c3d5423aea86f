package carchive

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

// encodeCookie builds a cookie record with the given field values.
func encodeCookie(pkgLen, tocOffset, tocLen, pyVer uint32, pythonLib string) []byte {
	size := cookieSizeLegacy
	if pythonLib != "" {
		size = cookieSizeModern
	}
	rec := make([]byte, size)
	copy(rec, Magic[:])
	binary.BigEndian.PutUint32(rec[8:], pkgLen)
	binary.BigEndian.PutUint32(rec[12:], tocOffset)
	binary.BigEndian.PutUint32(rec[16:], tocLen)
	binary.BigEndian.PutUint32(rec[20:], pyVer)
	copy(rec[cookieSizeLegacy:], pythonLib)
	return rec
}

func TestReadCookie(t *testing.T) {
	t.Run("Legacy", func(t *testing.T) {
		data := append(bytes.Repeat([]byte{0x00}, 16),
			encodeCookie(0x1000, 0x80, 0x200, 27, "")...)

		cookie, err := ReadCookie(bytes.NewReader(data), int64(len(data)), 16)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if cookie.Revision != Rev20 {
			t.Errorf("revision: got %v, want %v", cookie.Revision, Rev20)
		}
		if cookie.PackageLength != 0x1000 {
			t.Errorf("package length: got %#x", cookie.PackageLength)
		}
		if cookie.TOCOffset != 0x80 {
			t.Errorf("toc offset: got %#x", cookie.TOCOffset)
		}
		if cookie.TOCLength != 0x200 {
			t.Errorf("toc length: got %#x", cookie.TOCLength)
		}
		if cookie.PythonVersion != 27 {
			t.Errorf("python version: got %d", cookie.PythonVersion)
		}
		if cookie.PythonLib != "" {
			t.Errorf("python lib: got %q, want empty", cookie.PythonLib)
		}
	})

	t.Run("Modern", func(t *testing.T) {
		data := encodeCookie(0x2000, 0x40, 0x100, 310, "libpython3.10.so.1.0")

		cookie, err := ReadCookie(bytes.NewReader(data), int64(len(data)), 0)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if cookie.Revision != Rev21 {
			t.Fatalf("revision: got %v, want %v", cookie.Revision, Rev21)
		}
		if cookie.PythonLib != "libpython3.10.so.1.0" {
			t.Errorf("python lib: got %q", cookie.PythonLib)
		}
		if cookie.PythonVersion != 310 {
			t.Errorf("python version: got %d", cookie.PythonVersion)
		}
	})

	t.Run("ProbeIsCaseInsensitive", func(t *testing.T) {
		data := encodeCookie(1, 2, 3, 312, "PYTHON312.DLL")

		cookie, err := ReadCookie(bytes.NewReader(data), int64(len(data)), 0)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if cookie.Revision != Rev21 {
			t.Errorf("revision: got %v, want %v", cookie.Revision, Rev21)
		}
		if cookie.PythonLib != "PYTHON312.DLL" {
			t.Errorf("python lib: got %q", cookie.PythonLib)
		}
	})

	t.Run("BadMagic", func(t *testing.T) {
		data := bytes.Repeat([]byte{0x55}, 128)
		if _, err := ReadCookie(bytes.NewReader(data), int64(len(data)), 32); !errors.Is(err, ErrBadMagic) {
			t.Fatalf("got %v, want ErrBadMagic", err)
		}
	})

	t.Run("TruncatedLegacy", func(t *testing.T) {
		data := append([]byte{}, Magic[:]...)
		data = append(data, 0x00, 0x00, 0x01)
		if _, err := ReadCookie(bytes.NewReader(data), int64(len(data)), 0); !errors.Is(err, ErrTruncatedCookie) {
			t.Fatalf("got %v, want ErrTruncatedCookie", err)
		}
	})

	t.Run("TruncatedModern", func(t *testing.T) {
		// Probe sees a python lib name, so the full 88-byte record is
		// required; the file ends before it.
		full := encodeCookie(1, 2, 3, 311, "libpython3.11.so")
		data := full[:60]
		if _, err := ReadCookie(bytes.NewReader(data), int64(len(data)), 0); !errors.Is(err, ErrTruncatedCookie) {
			t.Fatalf("got %v, want ErrTruncatedCookie", err)
		}
	})
}

func TestPythonMajorMinor(t *testing.T) {
	cases := []struct {
		encoded      uint32
		major, minor int
	}{
		{27, 2, 7},
		{36, 3, 6},
		{39, 3, 9},
		{308, 3, 8},
		{310, 3, 10},
		{311, 3, 11},
	}
	for _, tc := range cases {
		c := Cookie{PythonVersion: tc.encoded}
		major, minor := c.PythonMajorMinor()
		if major != tc.major || minor != tc.minor {
			t.Errorf("version %d: got %d.%d, want %d.%d",
				tc.encoded, major, minor, tc.major, tc.minor)
		}
	}
}

func TestRevision(t *testing.T) {
	if got := Rev20.CookieSize(); got != 24 {
		t.Errorf("Rev20 size: got %d, want 24", got)
	}
	if got := Rev21.CookieSize(); got != 88 {
		t.Errorf("Rev21 size: got %d, want 88", got)
	}
	if Rev20.String() != "2.0" || Rev21.String() != "2.1+" {
		t.Errorf("revision strings: got %q, %q", Rev20.String(), Rev21.String())
	}
}
