// Package report implements the CSV stats-file and trace-file writers: a
// quoted header row followed by one row per interval, replication or
// whole-simulation observation, flushed immediately after each write.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Tag marks which granularity of observation a row reports.
type Tag string

const (
	TagInterval    Tag = "INTERVAL"
	TagReplication Tag = "REPLICATION"
	TagSimulation  Tag = "SIMULATION"
)

// NA is written for any absent numeric or optional field.
const NA = "NA"

// Writer appends tagged rows to a CSV file whose columns are {tag,
// replication, interval} followed by the caller-supplied metric columns.
type Writer struct {
	f       io.WriteCloser
	w       *csv.Writer
	columns []string
}

// NewWriter creates path, writes the header row, and flushes it.
func NewWriter(path string, columns []string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("report: creating %s: %w", path, err)
	}
	return newWriter(f, columns)
}

func newWriter(f io.WriteCloser, columns []string) (*Writer, error) {
	w := &Writer{f: f, w: csv.NewWriter(f), columns: columns}
	header := append([]string{"tag", "replication", "interval"}, columns...)
	quoted := make([]string, len(header))
	for i, h := range header {
		quoted[i] = `"` + strings.ReplaceAll(h, `"`, `""`) + `"`
	}
	if _, err := io.WriteString(f, strings.Join(quoted, ",")+"\n"); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("report: writing header: %w", err)
	}
	return w, nil
}

// WriteRow emits one row. replication and interval use -1 to mean "not
// applicable" (serialized as NA): a SIMULATION row has neither, a
// REPLICATION row has a replication index but no interval, an INTERVAL
// row has both. values missing a registered column serialize as NA.
func (w *Writer) WriteRow(tag Tag, replication, interval int, values map[string]float64) error {
	row := make([]string, 0, 3+len(w.columns))
	row = append(row, string(tag), intOrNA(replication), intOrNA(interval))
	for _, col := range w.columns {
		if v, ok := values[col]; ok {
			row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
		} else {
			row = append(row, NA)
		}
	}
	if err := w.w.Write(row); err != nil {
		return fmt.Errorf("report: writing row: %w", err)
	}
	w.w.Flush()
	return w.w.Error()
}

// Close flushes and closes the underlying file.
func (w *Writer) Close() error {
	w.w.Flush()
	return w.f.Close()
}

func intOrNA(v int) string {
	if v < 0 {
		return NA
	}
	return strconv.Itoa(v)
}
