package document

import (
	"context"
	"fmt"
	"image"
	"io"

	"github.com/ledongthuc/pdf"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/readee-ai/docproc/internal/model"
)

// PDFExtractor pulls page text and embedded raster images out of a PDF.
// Text and image extraction open the file independently so the two can run
// concurrently on the same path.
type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// ExtractText extracts the text of every page and builds the page-range map.
// A page whose extraction fails contributes an empty span; the document as a
// whole only fails if the file itself cannot be opened.
func (e *PDFExtractor) ExtractText(ctx context.Context, path string) (string, model.PageRanges, error) {
	logger := logutil.GetLogger(ctx)

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	n := r.NumPage()
	pages := make([]string, n)
	for i := 1; i <= n; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			logger.Warn("pdf page unreadable", zap.Int("page", i))
			continue
		}
		text, err := pageText(page)
		if err != nil {
			logger.Warn("pdf page text extraction failed", zap.Int("page", i), zap.Error(err))
			continue
		}
		pages[i-1] = text
	}

	full, ranges := BuildPageText(pages)
	return full, ranges, nil
}

// ExtractImages walks each page's XObject resources and returns the embedded
// images it can decode, normalized and paired with their 1-indexed page.
// Streams using compression filters the reader cannot decode are skipped
// with a log entry, never failing the document.
func (e *PDFExtractor) ExtractImages(ctx context.Context, path string) ([]model.DocImage, error) {
	logger := logutil.GetLogger(ctx)

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var images []model.DocImage
	n := r.NumPage()
	for i := 1; i <= n; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		xobj := page.Resources().Key("XObject")
		if xobj.Kind() != pdf.Dict {
			continue
		}
		for _, name := range xobj.Keys() {
			obj := xobj.Key(name)
			if obj.Kind() != pdf.Stream || obj.Key("Subtype").Name() != "Image" {
				continue
			}
			img, err := decodeImageStream(obj)
			if err != nil {
				logger.Debug("skipping pdf image",
					zap.Int("page", i),
					zap.String("xobject", name),
					zap.Error(err),
				)
				continue
			}
			data, w, h, err := encodeScaled(img)
			if err != nil {
				logger.Debug("skipping pdf image", zap.Int("page", i), zap.Error(err))
				continue
			}
			images = append(images, model.DocImage{Data: data, Page: i, Width: w, Height: h})
		}
	}
	return images, nil
}

func pageText(page pdf.Page) (text string, err error) {
	// The underlying reader panics on malformed content streams.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf text: %v", r)
		}
	}()
	return page.GetPlainText(nil)
}

// decodeImageStream reconstructs an image.Image from an XObject stream. Only
// flate-compressed raw samples in DeviceRGB or DeviceGray at 8 bits per
// component are handled here; anything else is reported as undecodable.
func decodeImageStream(v pdf.Value) (image.Image, error) {
	width := int(v.Key("Width").Int64())
	height := int(v.Key("Height").Int64())
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid dimensions %dx%d", width, height)
	}
	if bpc := v.Key("BitsPerComponent").Int64(); bpc != 8 {
		return nil, fmt.Errorf("unsupported bits per component %d", bpc)
	}

	colorSpace := v.Key("ColorSpace").Name()
	var components int
	switch colorSpace {
	case "DeviceRGB":
		components = 3
	case "DeviceGray":
		components = 1
	default:
		return nil, fmt.Errorf("unsupported color space %q", colorSpace)
	}

	data, err := streamBytes(v)
	if err != nil {
		return nil, err
	}
	if len(data) < width*height*components {
		return nil, fmt.Errorf("truncated image stream: %d bytes for %dx%dx%d", len(data), width, height, components)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			off := (y*width + x) * components
			idx := img.PixOffset(x, y)
			if components == 3 {
				img.Pix[idx+0] = data[off+0]
				img.Pix[idx+1] = data[off+1]
				img.Pix[idx+2] = data[off+2]
			} else {
				img.Pix[idx+0] = data[off]
				img.Pix[idx+1] = data[off]
				img.Pix[idx+2] = data[off]
			}
			img.Pix[idx+3] = 0xff
		}
	}
	return img, nil
}

func streamBytes(v pdf.Value) (data []byte, err error) {
	// Value.Reader panics on filters it does not implement (e.g. DCTDecode).
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read stream: %v", r)
		}
	}()
	return io.ReadAll(v.Reader())
}
