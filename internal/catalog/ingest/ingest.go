// Package ingest reads catalog exports into raw records and writes
// normalized records back out as CSV.
package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"labelforge/internal/catalog/models"
	"labelforge/internal/catalog/service"
)

// ErrEmpty is returned for files without a header row.
var ErrEmpty = errors.New("empty catalog file")

// Options tunes table reading.
type Options struct {
	// Comma overrides delimiter detection.
	Comma rune
}

// ReadFile opens path and reads it with the delimiter implied by its
// extension (.tsv is tab separated, anything else is sniffed).
func ReadFile(path string) ([]models.RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	var opts Options
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		opts.Comma = '\t'
	}
	recs, err := Read(f, opts)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return recs, nil
}

// Read parses a delimited table. The first row is the header; cells are kept
// as strings for the normalizers to interpret. Input that is not valid UTF-8
// is decoded as Windows-1252, the usual encoding of point-of-sale exports.
func Read(r io.Reader, opts Options) ([]models.RawRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("decode windows-1252: %w", err)
		}
		data = decoded
	}

	comma := opts.Comma
	if comma == 0 {
		comma = sniffDelimiter(data)
	}
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrEmpty
	}

	header := make([]string, len(rows[0]))
	for i, cell := range rows[0] {
		header[i] = cleanCell(cell)
	}

	out := make([]models.RawRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		rec := make(models.RawRecord, len(header))
		for i, h := range header {
			if h == "" {
				continue
			}
			if i < len(row) {
				rec[h] = row[i]
			} else {
				rec[h] = nil
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

// sniffDelimiter picks the most frequent of comma, tab and semicolon in the
// header line.
func sniffDelimiter(data []byte) rune {
	line, _, _ := bufio.NewReader(bytes.NewReader(data)).ReadLine()
	best, bestCount := ',', 0
	for _, c := range []rune{',', '\t', ';'} {
		if n := strings.Count(string(line), string(c)); n > bestCount {
			best, bestCount = c, n
		}
	}
	return best
}

func cleanCell(s string) string {
	return strings.TrimSpace(strings.Trim(s, "\uFEFF"))
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// WriteCSV writes records under the canonical export headers. Non-numeric
// prices are prefixed so spreadsheet tools keep them as text.
func WriteCSV(w io.Writer, records []models.NormalizedRecord, cols models.Columns) error {
	cw := csv.NewWriter(w)
	headers := service.ExportHeaders(cols)
	if err := cw.Write(headers); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	row := make([]string, len(headers))
	for _, rec := range records {
		raw := service.ToRaw(rec, cols)
		for i, h := range headers {
			row[i] = models.Stringify(raw[h])
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", rec.Row, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
