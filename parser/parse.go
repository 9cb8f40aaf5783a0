// Package parser is the input boundary of the planner. It turns CSV and YAML
// files into model records and rejects malformed rows before any of them
// reach the planning engine.
//
// CSV inputs share one convention: fields are comma separated, leading spaces
// are trimmed, and rows whose first field starts with '#' are headers or
// comments. Dates use the 2006-01-02 layout. Optional trailing columns may be
// omitted or left empty.
package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"resource-planner/errors"
	"resource-planner/metrics"
	"resource-planner/models"
)

// DateLayout is the layout of every date column.
const DateLayout = time.DateOnly

// rowFunc handles one data row. line is the 1-based line the row starts on.
type rowFunc func(line int, record []string) error

// readRows calls fn for every data row of r, checking the field count first.
func readRows(r io.Reader, minFields, maxFields int, fn rowFunc) error {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	for {
		record, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("error reading CSV: %w", err)
		}
		line, _ := reader.FieldPos(0)

		for i := range record {
			record[i] = strings.TrimSpace(record[i])
		}
		if len(record) > 0 && strings.HasPrefix(record[0], "#") {
			continue
		}
		if len(record) == 1 && record[0] == "" {
			continue
		}

		if len(record) < minFields || len(record) > maxFields {
			return &errors.ParseError{
				Line:   line,
				Record: record,
				Err:    fmt.Errorf("%w: got %d, want %d..%d", errors.ErrInvalidFieldCount, len(record), minFields, maxFields),
			}
		}
		if err := fn(line, record); err != nil {
			return err
		}
	}
}

// field returns record[i], or "" for omitted optional columns.
func field(record []string, i int) string {
	if i < len(record) {
		return record[i]
	}
	return ""
}

func rowError(line int, record []string, err error) error {
	return &errors.ParseError{Line: line, Record: record, Err: err}
}

func parseFloat(value, name string) (float64, error) {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q", errors.ErrInvalidNumber, name, value)
	}
	return f, nil
}

func parseOptionalFloat(value, name string) (*float64, error) {
	if value == "" {
		return nil, nil
	}
	f, err := parseFloat(value, name)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func parseInt(value, name string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q", errors.ErrInvalidNumber, name, value)
	}
	return n, nil
}

func parseDate(value, name string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s %q", errors.ErrInvalidDate, name, value)
	}
	return t, nil
}

func parseOptionalDate(value, name string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := parseDate(value, name)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseBool(value string) (bool, error) {
	if value == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%w: flag %q", errors.ErrInvalidNumber, value)
	}
	return b, nil
}

// ParseSkill reads "category:level", e.g. "backend:senior".
func ParseSkill(value string) (models.Skill, error) {
	category, level, ok := strings.Cut(value, ":")
	category = strings.TrimSpace(category)
	lvl := models.ExperienceLevel(strings.ToLower(strings.TrimSpace(level)))
	if !ok || category == "" || !models.ValidLevel(lvl) {
		return models.Skill{}, fmt.Errorf("%w: %q (want category:level)", errors.ErrInvalidSkill, value)
	}
	return models.Skill{Category: category, Level: lvl}, nil
}

// parseSkills reads a ';' separated skill list.
func parseSkills(value string) ([]models.Skill, error) {
	if value == "" {
		return nil, nil
	}
	var skills []models.Skill
	for _, part := range strings.Split(value, ";") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		s, err := ParseSkill(part)
		if err != nil {
			return nil, err
		}
		skills = append(skills, s)
	}
	return skills, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ";") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// openFile runs parse over the named file, stamps parse errors with its path
// and records parser metrics under the input label.
func openFile[T any](path, input string, parse func(io.Reader) ([]T, error)) ([]T, error) {
	start := time.Now()
	defer func() {
		metrics.ParserDurationSeconds.WithLabelValues(input).Observe(time.Since(start).Seconds())
	}()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}
	defer f.Close()

	out, err := parse(f)
	if err != nil {
		if pe, ok := err.(*errors.ParseError); ok {
			pe.File = path
		}
		metrics.ParserErrorsTotal.WithLabelValues(input, metrics.ErrorType(err)).Inc()
		return nil, err
	}
	metrics.ParserRecordsTotal.WithLabelValues(input).Add(float64(len(out)))
	return out, nil
}
