package util

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

func ParseCSVRecordsAsync[T any](filePath string, parseFn func(record []string) (*T, error)) (<-chan []*T, <-chan error) {
	resultCh := make(chan []*T, 1)
	errCh := make(chan error, 1)

	go func() {
		res, err := ParseCSVRecords(filePath, parseFn)
		if err != nil {
			errCh <- err
			return
		}
		resultCh <- res
	}()

	return resultCh, errCh
}

// ParseCSVRecords reads a CSV line-by-line and applies a parser function
// that returns a pointer to T and an error. It collects and returns all parsed results.
func ParseCSVRecords[T any](filePath string, parseFn func(record []string) (*T, error)) ([]*T, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("could not open file %s: %w", filePath, err)
	}

	defer func(file *os.File) {
		err := file.Close()
		if err != nil {
			log.Printf("failed to close file %s: %v", filePath, err)
		}
	}(file)

	reader := csv.NewReader(file)
	var result []*T
	rowIndex := 0

	for {
		record, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("error reading CSV at row %d: %w", rowIndex, err)
		}

		item, err := parseFn(record)
		if err != nil {
			return nil, fmt.Errorf("error parsing row %d: %w", rowIndex, err)
		}

		result = append(result, item)
		rowIndex++
	}

	return result, nil
}

// ReadCSVTable reads a whole CSV file into rows of string cells.
func ReadCSVTable(filePath string) ([][]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("could not open file %s: %w", filePath, err)
	}

	defer func(file *os.File) {
		err := file.Close()
		if err != nil {
			log.Printf("failed to close file %s: %v", filePath, err)
		}
	}(file)

	return csv.NewReader(file).ReadAll()
}

// ReadSheetRows reads every row of the first sheet of a workbook into string
// cells, mirroring the shape ReadCSVTable returns.
func ReadSheetRows(filePath string) ([][]string, error) {
	workbook, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("could not open workbook %s: %w", filePath, err)
	}

	defer func(workbook *excelize.File) {
		err := workbook.Close()
		if err != nil {
			log.Printf("failed to close workbook %s: %v", filePath, err)
		}
	}(workbook)

	return workbook.GetRows(workbook.GetSheetName(0))
}

// EnsureDir creates the parent directory of path when absent.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
