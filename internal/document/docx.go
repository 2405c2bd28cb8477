package document

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/readee-ai/docproc/internal/model"
)

// paragraphsPerPage is the constant used to estimate page numbers for DOCX,
// which has no native page semantics. Both the page ranges and the image
// page numbers derived from it are approximations and are documented as
// such to consumers.
const paragraphsPerPage = 50

// DocxExtractor extracts paragraph/table text and embedded images from a
// DOCX archive.
type DocxExtractor struct{}

func NewDocxExtractor() *DocxExtractor {
	return &DocxExtractor{}
}

type imageAnchor struct {
	relID     string
	paragraph int
}

func (e *DocxExtractor) Extract(ctx context.Context, filePath string) (*model.ExtractedDocument, error) {
	logger := logutil.GetLogger(ctx)

	zr, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}
	defer zr.Close()

	docXML, err := readZipEntry(&zr.Reader, "word/document.xml")
	if err != nil {
		return nil, fmt.Errorf("read document.xml: %w", err)
	}

	paragraphs, anchors, err := parseDocumentXML(docXML)
	if err != nil {
		return nil, fmt.Errorf("parse document.xml: %w", err)
	}

	rels, err := parseRelationships(&zr.Reader)
	if err != nil {
		logger.Warn("docx relationships unavailable, skipping images", zap.Error(err))
		rels = map[string]string{}
	}

	var images []model.DocImage
	for _, anchor := range anchors {
		target, ok := rels[anchor.relID]
		if !ok {
			continue
		}
		raw, err := readZipEntry(&zr.Reader, path.Join("word", target))
		if err != nil {
			logger.Warn("docx media missing", zap.String("target", target), zap.Error(err))
			continue
		}
		data, w, h, err := normalizeImage(raw)
		if err != nil {
			logger.Debug("skipping docx image", zap.String("target", target), zap.Error(err))
			continue
		}
		page := anchor.paragraph/paragraphsPerPage + 1
		images = append(images, model.DocImage{Data: data, Page: page, Width: w, Height: h})
	}

	full, ranges := BuildPageText(groupIntoPages(paragraphs))
	return &model.ExtractedDocument{
		Format:     model.FormatDocx,
		FullText:   full,
		PageRanges: ranges,
		Images:     images,
	}, nil
}

// parseDocumentXML walks the document body collecting non-empty paragraph
// texts (table cell text arrives the same way, each cell holds paragraphs)
// and the paragraph position of every image reference.
func parseDocumentXML(data []byte) ([]string, []imageAnchor, error) {
	dec := xml.NewDecoder(strings.NewReader(string(data)))

	var paragraphs []string
	var anchors []imageAnchor
	var current strings.Builder
	inParagraph := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				inParagraph = true
				current.Reset()
			case "t":
				if inParagraph {
					var text string
					if err := dec.DecodeElement(&text, &t); err == nil {
						current.WriteString(text)
					}
				}
			case "blip":
				for _, attr := range t.Attr {
					if attr.Name.Local == "embed" {
						anchors = append(anchors, imageAnchor{relID: attr.Value, paragraph: len(paragraphs)})
					}
				}
			}
		case xml.EndElement:
			if t.Name.Local == "p" && inParagraph {
				inParagraph = false
				if text := strings.TrimSpace(current.String()); text != "" {
					paragraphs = append(paragraphs, text)
				}
			}
		}
	}
	return paragraphs, anchors, nil
}

type relationshipsXML struct {
	XMLName       xml.Name `xml:"Relationships"`
	Relationships []struct {
		ID     string `xml:"Id,attr"`
		Type   string `xml:"Type,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

func parseRelationships(zr *zip.Reader) (map[string]string, error) {
	data, err := readZipEntry(zr, "word/_rels/document.xml.rels")
	if err != nil {
		return nil, err
	}
	var rels relationshipsXML
	if err := xml.Unmarshal(data, &rels); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rels.Relationships))
	for _, rel := range rels.Relationships {
		if strings.Contains(rel.Type, "image") {
			out[rel.ID] = rel.Target
		}
	}
	return out, nil
}

// groupIntoPages buckets paragraphs into estimated pages of
// paragraphsPerPage each, newline-joined within a page.
func groupIntoPages(paragraphs []string) []string {
	if len(paragraphs) == 0 {
		return nil
	}
	var pages []string
	for start := 0; start < len(paragraphs); start += paragraphsPerPage {
		end := start + paragraphsPerPage
		if end > len(paragraphs) {
			end = len(paragraphs)
		}
		pages = append(pages, strings.Join(paragraphs[start:end], "\n"))
	}
	return pages
}

func readZipEntry(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name == name {
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}
	return nil, fmt.Errorf("entry %q not found", name)
}
