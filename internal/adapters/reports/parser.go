// Package reports reads the merchant's order history reports: the Items,
// Orders and Shipments, and Refunds CSV exports.
//
// Columns are located by header name, so reordered or additional columns
// are tolerated. Missing optional columns read as empty.
package reports

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/eshaffer321/ledger-tagger/internal/domain/money"
)

// ErrMissingColumn is returned when a required header is absent.
var ErrMissingColumn = errors.New("missing required column")

// row gives header-keyed access to one CSV record.
type row struct {
	line   int
	index  map[string]int
	values []string
}

func (r row) get(column string) string {
	i, ok := r.index[column]
	if !ok || i >= len(r.values) {
		return ""
	}
	return strings.TrimSpace(r.values[i])
}

func (r row) amount(column string) (money.Money, error) {
	m, err := money.Parse(r.get(column))
	if err != nil {
		return 0, fmt.Errorf("line %d, column %q: %w", r.line, column, err)
	}
	return m, nil
}

func (r row) date(column string) (time.Time, error) {
	s := r.get(column)
	if s == "" || strings.EqualFold(s, "N/A") {
		return time.Time{}, nil
	}
	t, err := parseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("line %d, column %q: %w", r.line, column, err)
	}
	return t, nil
}

func (r row) integer(column string) (int, error) {
	s := r.get(column)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("line %d, column %q: invalid integer %q", r.line, column, s)
	}
	return n, nil
}

// readRows decodes a CSV report, checking that every required column exists.
func readRows(r io.Reader, required []string, fn func(row) error) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		// Exports sometimes start with a UTF-8 byte order mark.
		name = strings.TrimPrefix(name, "\ufeff")
		index[strings.TrimSpace(name)] = i
	}
	for _, column := range required {
		if _, ok := index[column]; !ok {
			return fmt.Errorf("%w: %q", ErrMissingColumn, column)
		}
	}

	line := 1
	for {
		values, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		line++
		if err != nil {
			return fmt.Errorf("failed to read line %d: %w", line, err)
		}
		if blank(values) {
			continue
		}
		if err := fn(row{line: line, index: index, values: values}); err != nil {
			return err
		}
	}
}

func blank(values []string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// parseDate accepts the report date formats: "03/10/24", "03/10/2024" and
// ISO 8601 with or without a time component.
func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{"01/02/06", "01/02/2006", "2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date %q", s)
}
