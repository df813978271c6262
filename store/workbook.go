package store

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/crmkit/crm-data-apis/filter"
	"github.com/crmkit/crm-data-apis/types"
)

// Excel limits sheet names to 31 characters.
const maxSheetName = 31

// WriteWorkbook writes the records as an xlsx workbook with a single sheet
// named after the entity. The header row holds the declared field names in
// registry order; lists are joined with commas.
func WriteWorkbook(w io.Writer, registry *filter.Registry, records []types.Record) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := sheetName(registry.Entity())
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	fields := registry.Fields()
	header := make([]interface{}, len(fields))
	for i, field := range fields {
		header[i] = field.Name
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetRowStyle(sheet, 1, 1, style)
	}

	for i, record := range records {
		row := make([]interface{}, len(fields))
		for j, field := range fields {
			row[j] = cellValue(record[field.Name])
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}

	return f.Write(w)
}

// ReadWorkbook reads records from the first sheet of an xlsx workbook. The
// first non blank row is the header; columns are matched to fields by name or
// label and the other columns are ignored. Every record needs an id.
func ReadWorkbook(r io.Reader, registry *filter.Registry) ([]types.Record, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("excel file has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from xlsx: %w", err)
	}

	var columns []filter.Field
	records := make([]types.Record, 0, len(rows))
	for i, row := range rows {
		if isBlankRow(row) {
			continue
		}
		if columns == nil {
			columns = headerFields(row, registry)
			continue
		}

		record := make(types.Record, len(columns))
		for j, field := range columns {
			if field.Name == "" || j >= len(row) {
				continue
			}
			value, err := parseCell(field, row[j])
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i+1, err)
			}
			if value != nil {
				record[field.Name] = value
			}
		}
		if record.ID() == "" {
			return nil, fmt.Errorf("row %d: %s is required", i+1, types.IDField)
		}
		records = append(records, record)
	}
	return records, nil
}

func headerFields(row []string, registry *filter.Registry) []filter.Field {
	byLabel := make(map[string]filter.Field)
	for _, field := range registry.Fields() {
		byLabel[strings.ToLower(field.Label)] = field
	}

	columns := make([]filter.Field, len(row))
	for i, name := range row {
		name = strings.TrimSpace(name)
		if field, ok := registry.Lookup(name); ok {
			columns[i] = field
		} else if field, ok := byLabel[strings.ToLower(name)]; ok {
			columns[i] = field
		}
	}
	return columns
}

func parseCell(field filter.Field, cell string) (interface{}, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil, nil
	}

	var value interface{} = cell
	if field.Type == filter.TypeList {
		parts := strings.Split(cell, ",")
		list := make([]interface{}, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				list = append(list, p)
			}
		}
		value = list
	} else if field.Type == filter.TypeBoolean {
		switch strings.ToLower(cell) {
		case "true", "yes", "1":
			value = true
		case "false", "no", "0":
			value = false
		}
	}
	return convertValue(field, value)
}

func cellValue(value interface{}) interface{} {
	switch v := value.(type) {
	case nil:
		return nil
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	case []interface{}, []string:
		return types.ToString(v)
	}
	return types.NormalizeValue(value)
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func sheetName(entity string) string {
	name := strings.NewReplacer(":", "_", "\\", "_", "/", "_", "?", "_", "*", "_", "[", "_", "]", "_").Replace(entity)
	if name == "" {
		return "Sheet1"
	}
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}
	return name
}
