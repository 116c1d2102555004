package report

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Workbook is an output document made of named sheets.
type Workbook interface {
	// AddSheet creates a sheet. Sheets keep creation order.
	AddSheet(name string) (Sheet, error)
	// Close writes the document and releases it.
	Close() error
}

// Sheet receives rows top to bottom.
type Sheet interface {
	AppendRow(values []any) error
	Rows() int
}

const defaultSheet = "Sheet1"

// ExcelWorkbook is a Workbook written as an .xlsx file on Close.
type ExcelWorkbook struct {
	Path string

	file   *excelize.File
	names  map[string]struct{}
	closed bool
}

// NewExcelWorkbook returns an empty workbook that will be saved to path.
func NewExcelWorkbook(path string) *ExcelWorkbook {
	return &ExcelWorkbook{
		Path:  path,
		file:  excelize.NewFile(),
		names: map[string]struct{}{},
	}
}

// AddSheet creates a worksheet named name.
func (w *ExcelWorkbook) AddSheet(name string) (Sheet, error) {
	if w.closed {
		return nil, fmt.Errorf("add sheet %q: workbook closed", name)
	}
	// sheet names are unique regardless of case
	key := strings.ToLower(name)
	if _, dup := w.names[key]; dup {
		return nil, fmt.Errorf("add sheet %q: already exists", name)
	}
	idx, err := w.file.NewSheet(name)
	if err != nil {
		return nil, fmt.Errorf("add sheet %q: %w", name, err)
	}
	if len(w.names) == 0 {
		w.file.SetActiveSheet(idx)
	}
	w.names[key] = struct{}{}
	return &excelSheet{file: w.file, name: name}, nil
}

// Close saves the workbook to Path and releases it. A workbook without
// sheets is released without writing a file. Later calls are no-ops.
func (w *ExcelWorkbook) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	var errs []error
	if len(w.names) > 0 {
		// drop the placeholder sheet excelize starts with, unless it was requested
		if _, used := w.names[strings.ToLower(defaultSheet)]; !used {
			if err := w.file.DeleteSheet(defaultSheet); err != nil {
				errs = append(errs, fmt.Errorf("delete %s: %w", defaultSheet, err))
			}
		}
		if err := w.file.SaveAs(w.Path); err != nil {
			errs = append(errs, fmt.Errorf("save %s: %w", w.Path, err))
		}
	}
	if err := w.file.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close %s: %w", w.Path, err))
	}
	return errors.Join(errs...)
}

type excelSheet struct {
	file *excelize.File
	name string
	rows int
}

// AppendRow writes values into the next row starting at column A.
func (s *excelSheet) AppendRow(values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, s.rows+1)
	if err != nil {
		return err
	}
	if err := s.file.SetSheetRow(s.name, cell, &values); err != nil {
		return fmt.Errorf("write row %d in %q: %w", s.rows+1, s.name, err)
	}
	s.rows++
	return nil
}

// Rows returns the number of rows written, header included.
func (s *excelSheet) Rows() int { return s.rows }
