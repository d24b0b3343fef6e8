// Package extractor turns stored source documents into plain text.
// Format is picked from the document's MIME type or filename extension;
// anything unrecognized is treated as UTF-8 plain text.
package extractor

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/atlashist/archive-assistant/internal/core/domain"
	"github.com/atlashist/archive-assistant/internal/core/ports"
)

type Extractor struct {
	storage ports.ObjectStorage
}

func New(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

func (e *Extractor) Extract(ctx context.Context, doc *domain.Document) (string, error) {
	reader, err := e.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return "", fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read source document: %w", err)
	}

	switch detectFormat(doc) {
	case formatPDF:
		return extractPDF(raw)
	case formatXLSX:
		return extractXLSX(raw)
	default:
		return extractPlaintext(doc.Filename, raw)
	}
}

type format int

const (
	formatPlaintext format = iota
	formatPDF
	formatXLSX
)

func detectFormat(doc *domain.Document) format {
	mime := strings.ToLower(strings.TrimSpace(doc.MimeType))
	ext := strings.ToLower(filepath.Ext(doc.Filename))

	switch {
	case mime == "application/pdf" || ext == ".pdf":
		return formatPDF
	case mime == "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" || ext == ".xlsx":
		return formatXLSX
	default:
		return formatPlaintext
	}
}
