package export

import (
	"os"

	"github.com/xuri/excelize/v2"
)

// sheetName is the worksheet every export is written to.
const sheetName = "Sheet1"

// xlsxWriter streams rows into a single worksheet. The workbook is
// serialized to the destination file on close.
type xlsxWriter struct {
	file   *os.File
	book   *excelize.File
	stream *excelize.StreamWriter
	row    int
}

func newXLSXWriter(path string) (*xlsxWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	book := excelize.NewFile()
	stream, err := book.NewStreamWriter(sheetName)
	if err != nil {
		book.Close()
		file.Close()
		return nil, err
	}

	return &xlsxWriter{file: file, book: book, stream: stream}, nil
}

func (w *xlsxWriter) writeRow(values []any) error {
	w.row++
	cell, err := excelize.CoordinatesToCellName(1, w.row)
	if err != nil {
		return err
	}
	return w.stream.SetRow(cell, values)
}

// flush is a no-op; the stream writer spools rows to a temporary file
// on its own.
func (w *xlsxWriter) flush() error {
	return nil
}

func (w *xlsxWriter) close() error {
	defer w.book.Close()

	if err := w.stream.Flush(); err != nil {
		w.file.Close()
		return err
	}
	if _, err := w.book.WriteTo(w.file); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}
