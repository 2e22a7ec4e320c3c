package domain

import "context"

// PageReader loads the text of every page of a document
type PageReader interface {
	// ReadPages opens the document, reads all pages and releases it before returning
	ReadPages(ctx context.Context, path string) ([]PageText, error)

	// ReadPagesFromBytes does the same for an in-memory document
	ReadPagesFromBytes(ctx context.Context, data []byte) ([]PageText, error)

	// ReadFile validates path and loads the whole document in a single read
	ReadFile(ctx context.Context, path string) ([]byte, error)

	// ReadDocument decodes a document already loaded from name; the extension
	// of name selects the format
	ReadDocument(ctx context.Context, name string, data []byte) ([]PageText, error)
}

// PayrollStore persists extracted payrolls keyed by period
type PayrollStore interface {
	// Save replaces any payroll stored for the same period
	Save(ctx context.Context, payroll *Payroll, meta SaveMeta) error

	// FindByPeriod returns the stored payroll for a period
	FindByPeriod(ctx context.Context, period Period) (*Payroll, error)
}

// SaveMeta carries provenance stored next to a payroll
type SaveMeta struct {
	RunID  string
	Source string
}
