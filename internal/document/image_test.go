package document

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestNormalizeImage_SmallImageKeepsDimensions(t *testing.T) {
	data, w, h, err := normalizeImage(pngBytes(t, 10, 8))
	require.NoError(t, err)
	require.Equal(t, 10, w)
	require.Equal(t, 8, h)
	// output is JPEG regardless of input format
	require.True(t, bytes.HasPrefix(data, []byte{0xff, 0xd8}))
}

func TestNormalizeImage_DownscalesWideImage(t *testing.T) {
	_, w, h, err := normalizeImage(pngBytes(t, 2000, 1000))
	require.NoError(t, err)
	require.Equal(t, 1280, w)
	require.Equal(t, 640, h)
}

func TestNormalizeImage_DownscalesTallImage(t *testing.T) {
	_, w, h, err := normalizeImage(pngBytes(t, 500, 2560))
	require.NoError(t, err)
	require.Equal(t, 250, w)
	require.Equal(t, 1280, h)
}

func TestNormalizeImage_RejectsGarbage(t *testing.T) {
	_, _, _, err := normalizeImage([]byte("not an image"))
	require.Error(t, err)
}
