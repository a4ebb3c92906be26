// Package exporter writes processed chunks back to disk in the format of the
// uploaded file.
package exporter

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"

	"contact-splitter/internal/config"
	"contact-splitter/internal/models"
)

type Exporter struct {
	engine string
}

func NewExporter(cfg config.SpreadsheetConfig) *Exporter {
	engine := cfg.Engine
	if engine == "" {
		engine = config.EngineExcelize
	}
	return &Exporter{engine: engine}
}

// OutputExtension maps an input extension to the one chunks are written in.
// Legacy .xls input is written as .xlsx.
func OutputExtension(inputExt string) string {
	switch ext := strings.ToLower(inputExt); ext {
	case models.CSVExtension, models.XLSMExtension:
		return ext
	default:
		return models.XLSXExtension
	}
}

// FileName is the output name of the chunk with the given index.
func FileName(index int, ext string) string {
	return fmt.Sprintf("%s%d%s", models.OutputBaseName, index, ext)
}

// WriteChunks writes every chunk into dir and returns the file names in
// chunk order.
func (e *Exporter) WriteChunks(dir, inputExt string, chunks []models.Chunk) ([]string, error) {
	ext := OutputExtension(inputExt)
	names := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		name := FileName(chunk.Index, ext)
		if err := e.WriteTable(filepath.Join(dir, name), chunk.Table); err != nil {
			return names, fmt.Errorf("failed to write %s: %w", name, err)
		}
		names = append(names, name)
	}
	return names, nil
}

// WriteTable writes table to path, choosing the format from the extension.
func (e *Exporter) WriteTable(path string, table *models.Table) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case models.CSVExtension:
		return writeCSV(path, table)
	default:
		if e.engine == config.EngineTealeg {
			return writeXLSXTealeg(path, table)
		}
		return writeXLSX(path, table)
	}
}

func writeCSV(path string, table *models.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(table.Columns); err != nil {
		return err
	}
	record := make([]string, len(table.Columns))
	for _, row := range table.Rows {
		for i := range record {
			record[i] = models.CellText(row.Cell(i))
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

func writeXLSX(path string, table *models.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	header := make([]any, len(table.Columns))
	for i, c := range table.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(models.DefaultSheet, "A1", &header); err != nil {
		return err
	}
	for r, row := range table.Rows {
		axis, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		values := []any(row)
		if err := f.SetSheetRow(models.DefaultSheet, axis, &values); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}

func writeXLSXTealeg(path string, table *models.Table) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(models.DefaultSheet)
	if err != nil {
		return err
	}

	header := sheet.AddRow()
	for _, c := range table.Columns {
		header.AddCell().SetString(c)
	}
	for _, row := range table.Rows {
		xrow := sheet.AddRow()
		for i := range table.Columns {
			cell := xrow.AddCell()
			switch v := row.Cell(i).(type) {
			case float64:
				cell.SetFloat(v)
			case int:
				cell.SetInt(v)
			case bool:
				cell.SetBool(v)
			default:
				cell.SetString(models.CellText(v))
			}
		}
	}
	return f.Save(path)
}
