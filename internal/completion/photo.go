package completion

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"

	"golang.org/x/image/draw"
)

// Compress decodes an image, scales it so its longest edge is at most
// maxEdge pixels, and re-encodes it as JPEG at the given quality.
func Compress(r io.Reader, maxEdge, quality int) ([]byte, error) {
	src, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decoding photo: %w", err)
	}

	dst := src
	b := src.Bounds()
	if w, h := b.Dx(), b.Dy(); maxEdge > 0 && (w > maxEdge || h > maxEdge) {
		nw, nh := fitWithin(w, h, maxEdge)
		scaled := image.NewRGBA(image.Rect(0, 0, nw, nh))
		draw.CatmullRom.Scale(scaled, scaled.Bounds(), src, b, draw.Over, nil)
		dst = scaled
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encoding %s photo as jpeg: %w", format, err)
	}
	return buf.Bytes(), nil
}

// fitWithin keeps the aspect ratio and returns dimensions whose longest
// edge equals maxEdge.
func fitWithin(w, h, maxEdge int) (int, int) {
	if w >= h {
		nh := h * maxEdge / w
		if nh < 1 {
			nh = 1
		}
		return maxEdge, nh
	}
	nw := w * maxEdge / h
	if nw < 1 {
		nw = 1
	}
	return nw, maxEdge
}
