package common

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"resumatch/internal/document"
	"resumatch/internal/errors"
)

// StdinName is the path that reads from standard input.
const StdinName = "-"

// FileProcessor handles common file operations
type FileProcessor struct {
	extractor document.Extractor
	maxSize   int64
	stdin     io.Reader
	logger    *errors.Logger
}

// NewFileProcessor creates a new file processor instance. maxSize <= 0
// disables the size check.
func NewFileProcessor(extractor document.Extractor, maxSize int64, stdin io.Reader, logger *errors.Logger) *FileProcessor {
	if extractor == nil {
		extractor = document.New()
	}
	if stdin == nil {
		stdin = os.Stdin
	}
	if logger == nil {
		logger = errors.Discard()
	}
	return &FileProcessor{extractor: extractor, maxSize: maxSize, stdin: stdin, logger: logger}
}

// ReadDocument reads filename (or stdin for "-") and returns its text.
func (fp *FileProcessor) ReadDocument(ctx context.Context, filename string) (string, error) {
	data, err := fp.ReadFile(filename)
	if err != nil {
		return "", err
	}
	text, err := fp.extractor.Extract(ctx, filename, "", data)
	if err != nil {
		return "", err
	}
	fp.logger.Debug("Document read", "file", filename, "bytes", len(data), "chars", len(text))
	return text, nil
}

// ReadFile reads content from a file with proper error handling
func (fp *FileProcessor) ReadFile(filename string) ([]byte, error) {
	if filename == StdinName {
		return fp.readLimited(fp.stdin, filename)
	}
	if err := validateInputFile(filename); err != nil {
		return nil, err
	}

	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read file: %s", filename), err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			fp.logger.Warn("Failed to close file", "filename", filename, "error", err)
		}
	}()
	return fp.readLimited(file, filename)
}

func (fp *FileProcessor) readLimited(r io.Reader, filename string) ([]byte, error) {
	if fp.maxSize > 0 {
		r = io.LimitReader(r, fp.maxSize+1)
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Failed to read file content: %s", filename), err)
	}
	if fp.maxSize > 0 && int64(len(content)) > fp.maxSize {
		return nil, errors.NewDocumentError(errors.ErrCodeDocumentTooLarge,
			fmt.Sprintf("%s exceeds the %d byte limit", filename, fp.maxSize), nil).
			WithContext("document", filename)
	}
	return content, nil
}

// validateInputFile checks if a file exists and is a regular file
func validateInputFile(filename string) error {
	if filename == "" {
		return errors.NewValidationError(errors.ErrCodeFileNotFound, "filename cannot be empty", nil)
	}
	info, err := os.Stat(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.NewValidationError(errors.ErrCodeFileNotFound,
				fmt.Sprintf("File not found: %s", filename), err)
		}
		return errors.NewValidationError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot access file: %s", filename), err)
	}
	if info.IsDir() {
		return errors.NewValidationError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Path is a directory, not a file: %s", filename), nil)
	}
	return nil
}

// WriteFile writes content to a file with directory creation
func (fp *FileProcessor) WriteFile(filename, content string) error {
	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return errors.NewInternalError("DIRECTORY_CREATE_FAILED",
				fmt.Sprintf("Cannot create directory: %s", dir), err)
		}
	}

	if err := os.WriteFile(filename, []byte(content), 0600); err != nil {
		return errors.NewInternalError("FILE_WRITE_FAILED",
			fmt.Sprintf("Cannot write file: %s", filename), err)
	}
	return nil
}
