package catalog

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/phrazzld/verbdrill/internal/domain"
)

// ExcelOptions controls how a workbook maps onto catalog items.
type ExcelOptions struct {
	// IDColumn is the header naming the item ID column. Defaults to "id".
	IDColumn string
	// CategoryColumn is the header naming a per-row category. When a sheet
	// has no such column the sheet name is used as the category.
	CategoryColumn string
	Logger         *slog.Logger
}

// LoadExcel reads a workbook where the first row of each sheet is a header.
// Every non-empty column other than the ID and category columns becomes an
// item field keyed by its header. Sheets that name no category and carry no
// category column are skipped.
func LoadExcel(path string, opts ExcelOptions) (*Static, error) {
	if opts.IDColumn == "" {
		opts.IDColumn = "id"
	}
	if opts.CategoryColumn == "" {
		opts.CategoryColumn = "category"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	var items []domain.Item
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
		}
		sheetItems, err := itemsFromRows(sheet, rows, opts)
		if err != nil {
			return nil, err
		}
		items = append(items, sheetItems...)
	}

	return NewStatic(items)
}

func itemsFromRows(sheet string, rows [][]string, opts ExcelOptions) ([]domain.Item, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	header := make([]string, len(rows[0]))
	idCol, catCol := -1, -1
	for i, h := range rows[0] {
		header[i] = strings.ToLower(strings.TrimSpace(h))
		switch header[i] {
		case opts.IDColumn:
			idCol = i
		case opts.CategoryColumn:
			catCol = i
		}
	}

	sheetCategory, sheetCatErr := domain.ParseCategory(sheet)
	if catCol < 0 && sheetCatErr != nil {
		opts.Logger.Debug("skipping sheet without category",
			slog.String("sheet", sheet))
		return nil, nil
	}
	if idCol < 0 {
		return nil, fmt.Errorf("%w: sheet %q has no %q column", domain.ErrInvalidFormat, sheet, opts.IDColumn)
	}

	var items []domain.Item
	for r, row := range rows[1:] {
		id := cell(row, idCol)
		if id == "" {
			continue
		}

		category := sheetCategory
		if catCol >= 0 {
			parsed, err := domain.ParseCategory(cell(row, catCol))
			if err != nil {
				return nil, fmt.Errorf("sheet %q row %d: %w", sheet, r+2, err)
			}
			category = parsed
		}

		fields := make(map[string]string)
		for c, name := range header {
			if c == idCol || c == catCol || name == "" {
				continue
			}
			if v := cell(row, c); v != "" {
				fields[name] = v
			}
		}
		if len(fields) == 0 {
			fields = nil
		}

		items = append(items, domain.Item{ID: id, Category: category, Fields: fields})
	}
	return items, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
