// Package csvfile implements the storage interfaces over flat CSV tables.
// The pipeline is a batch, re-runnable correlation step; there is no
// database, only append-only files.
package csvfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// ReadRows loads a CSV file into header-keyed row maps. A missing file is an
// empty table, not an error.
func ReadRows(path string) ([]map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := records[0]
	rows := make([]map[string]string, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(map[string]string, len(header))
		for i, field := range header {
			if i < len(record) {
				row[field] = record[i]
			} else {
				row[field] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ReadHeader returns the header row of a CSV file, or nil when the file is
// missing or empty.
func ReadHeader(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read header %s: %w", path, err)
	}
	return header, nil
}

// AppendRows appends rows to a CSV file, writing the header first when the
// file is new or empty.
func AppendRows(path string, fieldnames []string, rows []map[string]string) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	writer := csv.NewWriter(file)
	if info.Size() == 0 {
		if err := writer.Write(fieldnames); err != nil {
			return fmt.Errorf("write header %s: %w", path, err)
		}
	}
	for _, row := range rows {
		record := make([]string, len(fieldnames))
		for i, field := range fieldnames {
			record[i] = row[field]
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write row %s: %w", path, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteRows rewrites a CSV file from scratch with a header.
func WriteRows(path string, fieldnames []string, rows []map[string]string) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(fieldnames); err != nil {
		return fmt.Errorf("write header %s: %w", path, err)
	}
	for _, row := range rows {
		record := make([]string, len(fieldnames))
		for i, field := range fieldnames {
			record[i] = row[field]
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write row %s: %w", path, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}
	return nil
}
