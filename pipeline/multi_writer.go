package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aluiziolira/go-scrape-listings/models"
)

// MultiWriter fans every batch out to several writers in order.
type MultiWriter struct {
	writers []OutputWriter
}

// NewMultiWriter combines writers; a write stops at the first failing writer.
func NewMultiWriter(writers ...OutputWriter) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// NewDualWriter writes CSV to csvPath and JSONL to its .jsonl sibling.
func NewDualWriter(csvPath string) (*MultiWriter, error) {
	csvWriter, err := NewCSVWriter(csvPath)
	if err != nil {
		return nil, err
	}
	jsonWriter, err := NewJSONWriter(JSONLSibling(csvPath))
	if err != nil {
		csvWriter.Close()
		return nil, err
	}
	return NewMultiWriter(csvWriter, jsonWriter), nil
}

// JSONLSibling swaps the extension of path for .jsonl, e.g. out/items.csv -> out/items.jsonl.
func JSONLSibling(path string) string {
	ext := filepath.Ext(path)
	if strings.EqualFold(ext, ".jsonl") {
		return path + ".jsonl"
	}
	return strings.TrimSuffix(path, ext) + ".jsonl"
}

// Write hands items to each writer.
func (mw *MultiWriter) Write(items []*models.Item) error {
	for i, w := range mw.writers {
		if err := w.Write(items); err != nil {
			return fmt.Errorf("writer %d: %w", i, err)
		}
	}
	return nil
}

// Close closes every writer and joins their errors.
func (mw *MultiWriter) Close() error {
	var errs []error
	for _, w := range mw.writers {
		errs = append(errs, w.Close())
	}
	return errors.Join(errs...)
}

// Validate checks every writer's output.
func (mw *MultiWriter) Validate() error {
	var errs []error
	for _, w := range mw.writers {
		errs = append(errs, w.Validate())
	}
	return errors.Join(errs...)
}
