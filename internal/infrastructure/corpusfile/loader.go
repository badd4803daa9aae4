// Package corpusfile parses bulk PYQ corpus files for the loader command.
// Two formats are accepted: a JSON array of records, and an XLSX sheet with
// a header row. The file's records all belong to one subject; rows naming a
// different subject abort the whole batch.
package corpusfile

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/intelliject/intelliject/internal/core/domain"
)

// Load picks the parser from the filename extension.
func Load(r io.Reader, filename, subject string) ([]domain.PYQRecord, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		return LoadJSON(r, subject)
	case ".xlsx":
		return LoadXLSX(r, subject)
	default:
		return nil, domain.WrapError(domain.ErrInvalidArgument, "load corpus file",
			fmt.Errorf("unsupported corpus format: %s", filepath.Ext(filename)))
	}
}

func LoadJSON(r io.Reader, subject string) ([]domain.PYQRecord, error) {
	var records []domain.PYQRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, domain.WrapError(domain.ErrIngestion, "parse corpus json", err)
	}

	for i := range records {
		if records[i].Subject == "" {
			records[i].Subject = subject
		}
		if err := records[i].Validate(subject); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}
	return records, nil
}

func LoadXLSX(r io.Reader, subject string) ([]domain.PYQRecord, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, domain.WrapError(domain.ErrIngestion, "open corpus xlsx", err)
	}
	defer func() {
		_ = f.Close()
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, domain.WrapError(domain.ErrIngestion, "parse corpus xlsx", fmt.Errorf("workbook has no sheets"))
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, domain.WrapError(domain.ErrIngestion, "parse corpus xlsx", err)
	}
	if len(rows) < 2 {
		return nil, domain.WrapError(domain.ErrIngestion, "parse corpus xlsx", fmt.Errorf("sheet %s has no data rows", sheets[0]))
	}

	columns := headerIndex(rows[0])
	if _, ok := columns["question"]; !ok {
		return nil, domain.WrapError(domain.ErrIngestion, "parse corpus xlsx", fmt.Errorf("missing question column"))
	}

	var records []domain.PYQRecord
	for rowNum, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		rec := domain.PYQRecord{
			Subject:  cell(row, columns, "subject"),
			Question: cell(row, columns, "question"),
			SubTopic: cell(row, columns, "subtopic"),
			Year:     cell(row, columns, "year"),
			Semester: cell(row, columns, "semester"),
			Branch:   cell(row, columns, "branch"),
			Unit:     cell(row, columns, "unit"),
		}
		if raw := cell(row, columns, "marks"); raw != "" {
			marks, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, domain.WrapError(domain.ErrIngestion, "parse corpus xlsx",
					fmt.Errorf("row %d: bad marks value %q", rowNum+2, raw))
			}
			rec.Marks = marks
		}
		if rec.Subject == "" {
			rec.Subject = subject
		}
		if err := rec.Validate(subject); err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNum+2, err)
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, domain.WrapError(domain.ErrIngestion, "parse corpus xlsx", fmt.Errorf("no usable rows"))
	}
	return records, nil
}

// headerIndex normalizes header names ("Sub Topic", "sub_topic", "SubTopic")
// to a canonical key.
func headerIndex(header []string) map[string]int {
	out := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(name)
		key = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(key)
		if key != "" {
			out[key] = i
		}
	}
	return out
}

func cell(row []string, columns map[string]int, key string) string {
	idx, ok := columns[key]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
