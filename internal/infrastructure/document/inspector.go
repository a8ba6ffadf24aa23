// Package document inspects uploaded claim documents with MuPDF
package document

import (
	"context"
	"fmt"

	"github.com/garyjia/tpa-claims/internal/application/port"
	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"
)

// Inspector implements port.DocumentInspector
type Inspector struct {
	logger *zap.Logger
}

// NewInspector creates a new Inspector
func NewInspector(logger *zap.Logger) *Inspector {
	return &Inspector{logger: logger}
}

// PageCount opens the PDF from memory and returns its number of pages
func (i *Inspector) PageCount(ctx context.Context, content []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(content) == 0 {
		return 0, fmt.Errorf("empty document")
	}

	doc, err := fitz.NewFromMemory(content)
	if err != nil {
		return 0, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	pages := doc.NumPage()
	i.logger.Debug("Inspected PDF", zap.Int("pages", pages), zap.Int("size", len(content)))

	return pages, nil
}

// Verify interface compliance
var _ port.DocumentInspector = (*Inspector)(nil)
