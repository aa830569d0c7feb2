package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"mercator-hq/atrium/pkg/panel"
)

// Format is a tabular file format.
type Format string

const (
	// FormatCSV is comma (or custom delimiter) separated values.
	FormatCSV Format = "csv"
	// FormatXLSX is an Office Open XML spreadsheet.
	FormatXLSX Format = "xlsx"
)

// DefaultDelimiter is the CSV delimiter used when none is configured.
const DefaultDelimiter = ","

// flushEvery is the number of rows between periodic flushes.
const flushEvery = 100

// FormatFor selects the writer format from a destination path: a ".csv"
// suffix selects CSV, anything else XLSX.
func FormatFor(path string) Format {
	if strings.HasSuffix(strings.ToLower(path), ".csv") {
		return FormatCSV
	}
	return FormatXLSX
}

// Extension returns the file extension of a format.
func (f Format) Extension() string {
	return string(f)
}

// ContentType returns the MIME type of a format.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// ParseDelimiter validates a CSV delimiter. It must be exactly one
// character other than a quote or line break.
func ParseDelimiter(s string) (rune, error) {
	if s == "" {
		s = DefaultDelimiter
	}
	runes := []rune(s)
	if len(runes) != 1 || runes[0] == '"' || runes[0] == '\r' || runes[0] == '\n' || runes[0] == 0xFFFD {
		return 0, panel.NewConfigurationError("export", "invalid csv delimiter %q: must be a single character", s)
	}
	return runes[0], nil
}

// tableWriter writes rows of normalized values to one file.
type tableWriter interface {
	writeRow(values []any) error
	flush() error
	close() error
}

// WriteFile streams header and rows into path using the format selected
// by FormatFor. It returns the number of data rows written. All writer
// failures are *panel.WriterError; an error yielded by rows is returned
// unchanged.
func WriteFile(path string, delimiter string, header []string, rows iter.Seq2[Row, error]) (int, error) {
	format := FormatFor(path)

	var comma rune
	if format == FormatCSV {
		var err error
		if comma, err = ParseDelimiter(delimiter); err != nil {
			return 0, err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, panel.NewWriterError(panel.WriterOpen, string(format), path, 0, err)
	}

	var (
		w   tableWriter
		err error
	)
	switch format {
	case FormatCSV:
		w, err = newCSVWriter(path, comma)
	default:
		w, err = newXLSXWriter(path)
	}
	if err != nil {
		return 0, panel.NewWriterError(panel.WriterOpen, string(format), path, 0, err)
	}

	n, err := writeAll(w, header, rows)
	if err != nil {
		w.close()
		var re *rowsError
		if errors.As(err, &re) {
			return n, re.err
		}
		return n, wrapWriterError(err, format, path, n)
	}

	if err := w.close(); err != nil {
		return n, panel.NewWriterError(panel.WriterIO, string(format), path, n, err)
	}
	return n, nil
}

// rowsError carries an error produced by the row sequence rather than by
// the writer.
type rowsError struct{ err error }

func (e *rowsError) Error() string { return e.err.Error() }

// unsupportedError reports a value that has no tabular representation.
type unsupportedError struct {
	label string
	value any
}

func (e *unsupportedError) Error() string {
	return fmt.Sprintf("column %q: unsupported value type %T", e.label, e.value)
}

func wrapWriterError(err error, format Format, path string, rows int) error {
	kind := panel.WriterIO
	var ue *unsupportedError
	if errors.As(err, &ue) {
		kind = panel.WriterUnsupported
	}
	return panel.NewWriterError(kind, string(format), path, rows, err)
}

func writeAll(w tableWriter, header []string, rows iter.Seq2[Row, error]) (int, error) {
	headerValues := make([]any, len(header))
	for i, h := range header {
		headerValues[i] = h
	}
	if err := w.writeRow(headerValues); err != nil {
		return 0, err
	}

	n := 0
	for row, err := range rows {
		if err != nil {
			return n, &rowsError{err: err}
		}

		values := make([]any, len(row))
		for i, c := range row {
			v, err := normalize(c.Value)
			if err != nil {
				return n, &unsupportedError{label: c.Label, value: c.Value}
			}
			values[i] = v
		}

		if err := w.writeRow(values); err != nil {
			return n, err
		}
		n++

		if n%flushEvery == 0 {
			if err := w.flush(); err != nil {
				return n, err
			}
		}
	}
	return n, nil
}

var errUnsupported = errors.New("unsupported value")

// normalize converts a raw field value into a value both writers accept:
// nil, string, bool, int64, uint64 or float64. Times become RFC 3339
// strings; slices, maps and structs become JSON.
func normalize(v any) (any, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		return val, nil
	case []byte:
		return string(val), nil
	case bool:
		return val, nil
	case int:
		return int64(val), nil
	case int8:
		return int64(val), nil
	case int16:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case int64:
		return val, nil
	case uint:
		return uint64(val), nil
	case uint8:
		return uint64(val), nil
	case uint16:
		return uint64(val), nil
	case uint32:
		return uint64(val), nil
	case uint64:
		return val, nil
	case float32:
		return float64(val), nil
	case float64:
		return val, nil
	case time.Time:
		if val.IsZero() {
			return "", nil
		}
		return val.Format(time.RFC3339), nil
	case time.Duration:
		return val.String(), nil
	case fmt.Stringer:
		return val.String(), nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return nil, nil
		}
		return normalize(rv.Elem().Interface())
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Struct:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, errUnsupported
		}
		return string(data), nil
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint(), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	default:
		return nil, errUnsupported
	}
}

// formatCell renders a normalized value as text.
func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}
