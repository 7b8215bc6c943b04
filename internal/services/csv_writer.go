package services

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"permit-collector/internal/common"
	"permit-collector/internal/interfaces"
	"permit-collector/internal/models"
)

type csvWriter struct {
	path string
}

// NewCSVWriter returns an append-only writer for the permit export.
// Existing file content is never truncated or validated.
func NewCSVWriter(path string) interfaces.OutputWriter {
	return &csvWriter{path: path}
}

func (w *csvWriter) Path() string {
	return w.path
}

func (w *csvWriter) WriteHeader(headers []string) error {
	return w.appendRecords([][]string{headers})
}

func (w *csvWriter) AppendRows(table *models.PermitTable) error {
	records := make([][]string, 0, len(table.Rows))
	for _, row := range table.Rows {
		records = append(records, row.Values)
	}
	return w.appendRecords(records)
}

func (w *csvWriter) appendRecords(records [][]string) error {
	if len(records) == 0 {
		return nil
	}

	if dir := filepath.Dir(w.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return common.WrapError(err, common.ErrorTypeOutput, "mkdir_failed", "failed to create output directory")
		}
	}

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return common.WrapError(err, common.ErrorTypeOutput, "open_failed", fmt.Sprintf("failed to open %s", w.path))
	}

	cw := csv.NewWriter(f)
	if err := cw.WriteAll(records); err != nil {
		f.Close()
		return common.WrapError(err, common.ErrorTypeOutput, "write_failed", fmt.Sprintf("failed to write %s", w.path))
	}

	if err := f.Close(); err != nil {
		return common.WrapError(err, common.ErrorTypeOutput, "close_failed", fmt.Sprintf("failed to close %s", w.path))
	}
	return nil
}
