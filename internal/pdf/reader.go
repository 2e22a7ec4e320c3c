package pdf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/spherical/payroll-extract/internal/domain"
)

// PageSeparator splits pages in plain-text documents.
const PageSeparator = "\f"

// Reader loads page text from PDF documents using go-fitz, or from plain-text
// files where pages are separated by form feeds.
type Reader struct {
	validator *Validator
	logger    *domain.Logger
}

// NewReader creates a new document reader
func NewReader(logger *domain.Logger) *Reader {
	if logger == nil {
		logger = domain.DefaultLogger
	}
	return &Reader{
		validator: NewValidator(logger),
		logger:    logger.WithPrefix("pdf"),
	}
}

// ReadPages reads every page of the document at path. The document handle is
// released before returning, on success or failure.
func (r *Reader) ReadPages(ctx context.Context, path string) ([]domain.PageText, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.validator.ValidateDocumentPath(path); err != nil {
		return nil, err
	}

	if isTextDocument(path) {
		return ReadTextFile(path)
	}

	doc, err := fitz.New(path)
	if err != nil {
		return nil, domain.DocumentUnreadableError("Failed to open PDF", err)
	}
	defer doc.Close()

	r.logger.Debug("Opened %s", path)
	return r.readDocument(doc)
}

// ReadFile validates path and returns the document bytes. Callers that need
// both the bytes and the pages pass them on to ReadDocument instead of opening
// the file again.
func (r *Reader) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.validator.ValidateDocumentPath(path); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.DocumentUnreadableError(fmt.Sprintf("cannot read %s", path), err)
	}
	return data, nil
}

// ReadDocument reads the pages of a document loaded from name. Plain-text
// names are split on form feeds; anything else is decoded as PDF.
func (r *Reader) ReadDocument(ctx context.Context, name string, data []byte) ([]domain.PageText, error) {
	if !isTextDocument(name) {
		return r.ReadPagesFromBytes(ctx, data)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pages := SplitPages(string(data))
	if err := requireText(pages); err != nil {
		return nil, err
	}
	return pages, nil
}

func isTextDocument(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".txt")
}

// ReadPagesFromBytes reads every page of an in-memory PDF
func (r *Reader) ReadPagesFromBytes(ctx context.Context, data []byte) ([]domain.PageText, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, domain.DocumentUnreadableError("document is empty", nil)
	}

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, domain.DocumentUnreadableError("Failed to open PDF", err)
	}
	defer doc.Close()

	return r.readDocument(doc)
}

func (r *Reader) readDocument(doc *fitz.Document) ([]domain.PageText, error) {
	pageCount := doc.NumPage()
	if pageCount == 0 {
		return nil, domain.DocumentUnreadableError("PDF has no pages", nil)
	}

	pages := make([]domain.PageText, 0, pageCount)
	for pageNum := 0; pageNum < pageCount; pageNum++ {
		text, err := doc.Text(pageNum)
		if err != nil {
			return nil, domain.DocumentUnreadableError(fmt.Sprintf("Failed to extract text from page %d", pageNum+1), err)
		}
		pages = append(pages, domain.PageText{Number: pageNum + 1, Text: text})
	}

	if err := requireText(pages); err != nil {
		return nil, err
	}

	r.logger.Debug("Read %d pages", len(pages))
	return pages, nil
}

// ReadTextFile loads a plain-text document; form feeds separate pages.
func ReadTextFile(path string) ([]domain.PageText, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.DocumentUnreadableError(fmt.Sprintf("cannot read %s", path), err)
	}
	pages := SplitPages(string(data))
	if err := requireText(pages); err != nil {
		return nil, err
	}
	return pages, nil
}

// SplitPages splits text on form feeds into numbered pages.
func SplitPages(text string) []domain.PageText {
	parts := strings.Split(text, PageSeparator)
	pages := make([]domain.PageText, 0, len(parts))
	for i, part := range parts {
		pages = append(pages, domain.PageText{Number: i + 1, Text: part})
	}
	return pages
}

func requireText(pages []domain.PageText) error {
	if !domain.HasText(pages) {
		return domain.DocumentUnreadableError("document has no extractable text", nil)
	}
	return nil
}
