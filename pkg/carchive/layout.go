package carchive

import "fmt"

// Layout pins the packed archive and its table of contents to absolute
// positions in the host file.
type Layout struct {
	OverlayPos  int64 // where the archive overlay begins
	OverlaySize int64 // overlay bytes from OverlayPos to end of file
	TOCPos      int64 // where the table of contents begins
	TOCLen      int64 // declared table of contents length
}

// ResolveLayout computes the overlay and directory positions from the cookie.
// The overlay is sized as the declared package length plus whatever trails
// the cookie (code signatures and similar appendages shift the archive
// backward from the file end, which this accounts for).
//
// Producers have anchored the directory offset differently over time, so the
// known anchors are tried in order and the first position that lands inside
// the file wins. If none fits, the directory is unrecoverable.
func ResolveLayout(c Cookie, fileSize, cookiePos int64) (Layout, error) {
	cookieSize := c.Revision.CookieSize()
	tail := fileSize - cookiePos - cookieSize
	overlaySize := int64(c.PackageLength) + tail
	overlayPos := fileSize - overlaySize
	tocLen := int64(c.TOCLength)

	candidates := []int64{
		// Offset relative to the overlay start, the common case.
		overlayPos + int64(c.TOCOffset),
		// Offset relative to the end of the cookie, seen in older bundles.
		cookiePos + cookieSize + int64(c.TOCOffset),
	}

	for _, pos := range candidates {
		if pos >= 0 && pos < fileSize && pos+tocLen <= fileSize {
			return Layout{
				OverlayPos:  overlayPos,
				OverlaySize: overlaySize,
				TOCPos:      pos,
				TOCLen:      tocLen,
			}, nil
		}
	}

	return Layout{}, fmt.Errorf("%w: offset %d with length %d does not fit in %d file bytes",
		ErrTOCOutOfBounds, c.TOCOffset, c.TOCLength, fileSize)
}
