package export

import (
	"encoding/csv"
	"os"
)

// csvWriter streams rows through encoding/csv.
type csvWriter struct {
	file   *os.File
	writer *csv.Writer
}

func newCSVWriter(path string, comma rune) (*csvWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	writer := csv.NewWriter(file)
	writer.Comma = comma

	return &csvWriter{file: file, writer: writer}, nil
}

func (w *csvWriter) writeRow(values []any) error {
	record := make([]string, len(values))
	for i, v := range values {
		record[i] = formatCell(v)
	}
	return w.writer.Write(record)
}

func (w *csvWriter) flush() error {
	w.writer.Flush()
	return w.writer.Error()
}

func (w *csvWriter) close() error {
	w.writer.Flush()
	if err := w.writer.Error(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}
