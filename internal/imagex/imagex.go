// Package imagex produces the downscaled JPEG variants stored next to an
// image attachment.
package imagex

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
)

// Codec scales images with Catmull-Rom resampling.
type Codec struct {
	scaler draw.Scaler
}

func NewCodec() *Codec {
	return &Codec{scaler: draw.CatmullRom}
}

// IsResizable reports whether data decodes as a JPEG or PNG.
func (c *Codec) IsResizable(data []byte) bool {
	_, _, err := image.DecodeConfig(bytes.NewReader(data))
	return err == nil
}

// Resize scales data so its long edge equals targetPx and encodes the result
// as JPEG. When the long edge is already within targetPx it returns nil, nil.
func (c *Codec) Resize(data []byte, targetPx int, quality int) ([]byte, error) {
	if targetPx <= 0 {
		return nil, fmt.Errorf("invalid target size %d", targetPx)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	w, h := scaledSize(src.Bounds().Dx(), src.Bounds().Dy(), targetPx)
	if w == 0 {
		return nil, nil
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	c.scaler.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// scaledSize returns zero dimensions when no scaling is needed.
func scaledSize(w, h, target int) (int, int) {
	long := max(w, h)
	if long <= target {
		return 0, 0
	}
	if w >= h {
		return target, max(1, h*target/w)
	}
	return max(1, w*target/h), target
}
