package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spherical/payroll-extract/internal/domain"
)

// SupportedExtensions lists the document types the reader accepts.
var SupportedExtensions = []string{".pdf", ".txt"}

// maxDocumentSize is the size above which a warning is logged.
const maxDocumentSize = 100 * 1024 * 1024 // 100MB

// Validator provides input validation for payroll documents
type Validator struct {
	logger *domain.Logger
}

// NewValidator creates a new validator instance
func NewValidator(logger *domain.Logger) *Validator {
	if logger == nil {
		logger = domain.DefaultLogger
	}
	return &Validator{logger: logger.WithPrefix("pdf")}
}

// ValidateDocumentPath validates that a path points to a readable, supported document
func (v *Validator) ValidateDocumentPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return domain.ValidationError("file path cannot be empty", nil)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.DocumentUnreadableError(fmt.Sprintf("file does not exist: %s", path), err)
		}
		return domain.DocumentUnreadableError(fmt.Sprintf("cannot access file: %s", path), err)
	}

	if info.IsDir() {
		return domain.ValidationError(fmt.Sprintf("path is a directory, not a file: %s", path), nil)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !isSupported(ext) {
		return domain.ValidationError(
			fmt.Sprintf("unsupported file type %q (expected one of %s)", ext, strings.Join(SupportedExtensions, ", ")), nil)
	}

	// Large files are processed anyway
	if info.Size() > maxDocumentSize {
		v.logger.Warn("Document is very large (%d MB), processing may take a while", info.Size()/(1024*1024))
	}

	file, err := os.Open(path)
	if err != nil {
		return domain.DocumentUnreadableError(fmt.Sprintf("cannot open file: %s", path), err)
	}
	file.Close()

	return nil
}

func isSupported(ext string) bool {
	for _, s := range SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}
