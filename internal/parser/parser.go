package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"contact-splitter/internal/config"
	"contact-splitter/internal/models"

	"github.com/extrame/xls"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
)

type Parser interface {
	ParseTable(filePath string) (*models.Table, error)
}

// ParserConfig carries the sheet and engine choice for spreadsheet files.
type ParserConfig struct {
	Config config.SpreadsheetConfig
}

const (
	xlsCharset   = "utf-8"
	unnamedLabel = "Unnamed: %d"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func NewParser(cfg config.SpreadsheetConfig) *ParserConfig {
	if cfg.Engine == "" {
		cfg.Engine = config.EngineExcelize
	}
	return &ParserConfig{Config: cfg}
}

// ParseTable loads filePath into a table, picking the reader by extension.
// Every failure is reported as a ValidationError so the caller can show it.
func (p *ParserConfig) ParseTable(filePath string) (*models.Table, error) {
	var (
		records [][]any
		err     error
	)
	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case models.CSVExtension:
		records, err = parseCSV(filePath)
	case models.XLSXExtension, models.XLSMExtension:
		if p.Config.Engine == config.EngineTealeg {
			records, err = p.parseXLSXTealeg(filePath)
		} else {
			records, err = p.parseXLSX(filePath)
		}
	case models.XLSExtension:
		records, err = p.parseXLS(filePath)
	default:
		return nil, models.NewValidationError("unsupported file format: %s", ext)
	}
	if err != nil {
		return nil, models.WrapValidationError(models.MsgReadFailure, err)
	}

	return buildTable(records), nil
}

func parseCSV(filePath string) ([][]any, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var records [][]any
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		row := make([]any, len(rec))
		for i, v := range rec {
			row[i] = v
		}
		records = append(records, row)
	}
	return records, nil
}

func (p *ParserConfig) parseXLSX(filePath string) ([][]any, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheet := p.Config.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}

	records := make([][]any, len(rows))
	for r, row := range rows {
		rec := make([]any, len(row))
		for c, value := range row {
			axis, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, err
			}
			cellType, err := f.GetCellType(sheet, axis)
			if err != nil {
				return nil, err
			}
			rec[c] = typedValue(value, cellType == excelize.CellTypeNumber || cellType == excelize.CellTypeUnset)
		}
		records[r] = rec
	}
	return records, nil
}

func (p *ParserConfig) parseXLSXTealeg(filePath string) ([][]any, error) {
	f, err := xlsx.OpenFile(filePath)
	if err != nil {
		return nil, err
	}

	var sheet *xlsx.Sheet
	if p.Config.Sheet != "" {
		sheet = f.Sheet[p.Config.Sheet]
	} else if len(f.Sheets) > 0 {
		sheet = f.Sheets[0]
	}
	if sheet == nil {
		return nil, fmt.Errorf("sheet %q not found", p.Config.Sheet)
	}

	records := make([][]any, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		if row == nil {
			records = append(records, nil)
			continue
		}
		rec := make([]any, len(row.Cells))
		for c, cell := range row.Cells {
			if cell == nil {
				rec[c] = ""
				continue
			}
			rec[c] = typedValue(cell.Value, cell.Type() == xlsx.CellTypeNumeric)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (p *ParserConfig) parseXLS(filePath string) ([][]any, error) {
	wb, err := xls.Open(filePath, xlsCharset)
	if err != nil {
		return nil, err
	}

	var sheet *xls.WorkSheet
	for i := 0; i < wb.NumSheets(); i++ {
		s := wb.GetSheet(i)
		if s == nil {
			continue
		}
		if p.Config.Sheet == "" || s.Name == p.Config.Sheet {
			sheet = s
			break
		}
	}
	if sheet == nil {
		return nil, fmt.Errorf("sheet %q not found", p.Config.Sheet)
	}

	var records [][]any
	for r := 0; r <= int(sheet.MaxRow); r++ {
		row := sheet.Row(r)
		if row == nil {
			records = append(records, nil)
			continue
		}
		// xls cells come back formatted, so they stay text
		rec := make([]any, row.LastCol())
		for c := range rec {
			rec[c] = row.Col(c)
		}
		records = append(records, rec)
	}
	return records, nil
}

// typedValue keeps numeric cells as float64 so that they are written back as
// numbers; everything else stays text.
func typedValue(value string, numeric bool) any {
	if numeric && value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return value
}

// buildTable turns raw records into a table. The first non-empty record is
// the header, widened to the longest row so data under a blank header cell
// gets an "Unnamed: i" column. Trailing columns that are empty everywhere are
// dropped; blank records are skipped and short rows are padded.
func buildTable(records [][]any) *models.Table {
	records = dropBlank(records)
	if len(records) == 0 {
		return &models.Table{}
	}

	width := 0
	for _, rec := range records {
		width = max(width, len(trimTrailingEmpty(rec)))
	}

	table := &models.Table{Columns: normalizeHeader(padRecord(records[0], width))}
	for _, rec := range records[1:] {
		table.Rows = append(table.Rows, models.Row(padRecord(rec, width)))
	}
	return table
}

// padRecord returns rec cut or padded with "" to exactly width cells. Cells
// past width are empty by construction of width.
func padRecord(rec []any, width int) []any {
	out := make([]any, width)
	for c := range out {
		if c < len(rec) {
			out[c] = rec[c]
		} else {
			out[c] = ""
		}
	}
	return out
}

func dropBlank(records [][]any) [][]any {
	out := records[:0:0]
	for _, rec := range records {
		if len(trimTrailingEmpty(rec)) > 0 {
			out = append(out, rec)
		}
	}
	return out
}

func trimTrailingEmpty(rec []any) []any {
	end := len(rec)
	for end > 0 && models.CellText(rec[end-1]) == "" {
		end--
	}
	return rec[:end]
}

// normalizeHeader names blank headers "Unnamed: i" and suffixes repeats with
// ".1", ".2", ... so every column is addressable.
func normalizeHeader(header []any) []string {
	columns := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		name := models.CellText(h)
		if name == "" {
			name = fmt.Sprintf(unnamedLabel, i)
		}
		if n, ok := seen[name]; ok {
			seen[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n+1)
		} else {
			seen[name] = 0
		}
		columns[i] = name
	}
	return columns
}
