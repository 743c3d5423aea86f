package carchive

import (
	"bytes"
	"errors"
	"testing"
)

func TestFindMagic(t *testing.T) {
	t.Run("AtFileEnd", func(t *testing.T) {
		data := make([]byte, 4096)
		copy(data[len(data)-len(Magic):], Magic[:])

		pos, err := FindMagic(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if want := int64(len(data) - len(Magic)); pos != want {
			t.Errorf("position: got %d, want %d", pos, want)
		}
	})

	t.Run("LastOccurrenceWins", func(t *testing.T) {
		// A bundle appended behind another embedded archive must be the one
		// found, so the scan reports the occurrence closest to the file end.
		data := make([]byte, 10000)
		copy(data[1000:], Magic[:])
		copy(data[6000:], Magic[:])

		pos, err := FindMagic(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if pos != 6000 {
			t.Errorf("position: got %d, want 6000", pos)
		}
	})

	t.Run("AcrossWindowBoundary", func(t *testing.T) {
		// First window covers [size-8192, size); plant the marker so it
		// straddles that window's lower edge.
		const size = 20000
		boundary := int64(size - searchChunkSize)

		data := make([]byte, size)
		copy(data[boundary-3:], Magic[:])

		pos, err := FindMagic(bytes.NewReader(data), size)
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if pos != boundary-3 {
			t.Errorf("position: got %d, want %d", pos, boundary-3)
		}
	})

	t.Run("InEarlierWindow", func(t *testing.T) {
		data := make([]byte, 3*searchChunkSize)
		copy(data[200:], Magic[:])

		pos, err := FindMagic(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if pos != 200 {
			t.Errorf("position: got %d, want 200", pos)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		data := bytes.Repeat([]byte{0x13}, 10000)
		if _, err := FindMagic(bytes.NewReader(data), int64(len(data))); !errors.Is(err, ErrMarkerNotFound) {
			t.Fatalf("got %v, want ErrMarkerNotFound", err)
		}
	})

	t.Run("FileShorterThanMagic", func(t *testing.T) {
		data := []byte{'M', 'E', 'I'}
		if _, err := FindMagic(bytes.NewReader(data), int64(len(data))); !errors.Is(err, ErrMarkerNotFound) {
			t.Fatalf("got %v, want ErrMarkerNotFound", err)
		}
	})

	t.Run("EmptyFile", func(t *testing.T) {
		if _, err := FindMagic(bytes.NewReader(nil), 0); !errors.Is(err, ErrMarkerNotFound) {
			t.Fatalf("got %v, want ErrMarkerNotFound", err)
		}
	})
}
