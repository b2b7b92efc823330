// Package csvout persists article records as a CSV file.
package csvout

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/samvad-hq/samvad-headline-pipeline/internal/domain"
)

// Header is the fixed column order of the output file.
var Header = []string{"id", "title", "description", "source"}

// Write truncates (or creates) path and writes the header followed by one row
// per record. Parent directories are not created. A failed write may leave a
// partial file behind, which must be treated as invalid.
func Write(path string, records []domain.ArticleRecord) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open output %s: %w", path, err)
	}

	if err := Encode(f, records); err != nil {
		f.Close()
		return fmt.Errorf("write output %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close output %s: %w", path, err)
	}
	return nil
}

// Encode writes the CSV document for records to w. Rows end in CRLF, the
// dialect the published dataset has always used.
func Encode(w io.Writer, records []domain.ArticleRecord) error {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, rec := range records {
		row := []string{
			strconv.Itoa(rec.ID),
			domain.Deref(rec.Title),
			domain.Deref(rec.Description),
			rec.Source,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read loads the rows of a file produced by Write. Empty cells come back as
// present empty strings since the file cannot tell them apart from absence.
func Read(path string) ([]domain.ArticleRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = len(Header)

	head, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read %s: missing header", path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	for i, col := range Header {
		if head[i] != col {
			return nil, fmt.Errorf("read %s: unexpected header %v", path, head)
		}
	}

	records := make([]domain.ArticleRecord, 0)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		id, err := strconv.Atoi(row[0])
		if err != nil {
			return nil, fmt.Errorf("read %s: bad id %q: %w", path, row[0], err)
		}
		records = append(records, domain.ArticleRecord{
			ID:          id,
			Title:       domain.StringPtr(row[1]),
			Description: domain.StringPtr(row[2]),
			Source:      row[3],
		})
	}
	return records, nil
}
