package document

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	xdraw "golang.org/x/image/draw"
)

// maxImageDim bounds both sides of an extracted image. Moderation models do
// not benefit from anything larger, and unbounded embeds can be huge.
const maxImageDim = 1280

// normalizeImage decodes an embedded image, downscales it (preserving aspect
// ratio) so that neither side exceeds maxImageDim, and re-encodes it as JPEG.
func normalizeImage(data []byte) ([]byte, int, int, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode image: %w", err)
	}
	return encodeScaled(src)
}

func encodeScaled(src image.Image) ([]byte, int, int, error) {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return nil, 0, 0, fmt.Errorf("empty image")
	}

	outW, outH := w, h
	if w > maxImageDim || h > maxImageDim {
		scale := float64(maxImageDim) / float64(w)
		if h > w {
			scale = float64(maxImageDim) / float64(h)
		}
		outW = int(float64(w) * scale)
		outH = int(float64(h) * scale)
		if outW < 1 {
			outW = 1
		}
		if outH < 1 {
			outH = 1
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, outW, outH))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 85}); err != nil {
		return nil, 0, 0, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), outW, outH, nil
}
