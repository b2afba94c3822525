package models

import (
	"bytes"
	"path/filepath"
	"strings"
)

// MediaType is the declared content type of an ingested document
type MediaType string

const (
	MediaTypePDF  MediaType = "application/pdf"
	MediaTypeText MediaType = "text/plain"
)

// ParseMediaType normalises a declared content type. Parameters such as
// charset are ignored. Unknown types return false.
func ParseMediaType(contentType string) (MediaType, bool) {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	switch ct {
	case string(MediaTypePDF), "application/x-pdf":
		return MediaTypePDF, true
	case string(MediaTypeText), "text/markdown":
		return MediaTypeText, true
	}
	return "", false
}

// DetectMediaType trusts the declared type, then the file extension, then the PDF magic number
func DetectMediaType(declared, filename string, data []byte) (MediaType, bool) {
	if mt, ok := ParseMediaType(declared); ok {
		return mt, true
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return MediaTypePDF, true
	case ".txt", ".md":
		return MediaTypeText, true
	}
	if bytes.HasPrefix(data, []byte("%PDF-")) {
		return MediaTypePDF, true
	}
	return "", false
}

// RawDocument is an opaque payload handed to the extractor once and then discarded
type RawDocument struct {
	Data      []byte    `json:"-"`
	MediaType MediaType `json:"media_type"`
	Filename  string    `json:"filename,omitempty"`
}

// ExtractionMethod records which tier of the extraction chain produced the text
type ExtractionMethod string

const (
	ExtractionDirectText  ExtractionMethod = "direct-text"
	ExtractionLayoutAware ExtractionMethod = "layout-aware"
	ExtractionOCR         ExtractionMethod = "ocr"
	ExtractionManual      ExtractionMethod = "manual"
)

// ExtractedText is document content produced by the extractor.
// Text is never empty when returned without error.
type ExtractedText struct {
	Text      string           `json:"-"`
	Method    ExtractionMethod `json:"method"`
	PageCount int              `json:"page_count"`
}

// PageImage is a rasterized page handed to the OCR engine
type PageImage struct {
	PageNumber int
	Path       string
}
