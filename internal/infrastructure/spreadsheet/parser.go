package spreadsheet

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	domain "github.com/mohammadpnp/user-directory/internal/domain/user"
)

// Parser reads the first worksheet of an OOXML workbook. Row 1 is the
// header; every later row up to the last non-empty one becomes a RawRow.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(ctx context.Context, r io.Reader) ([]domain.RawRow, error) {
	workbook, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrUnreadableFile, err)
	}
	defer workbook.Close()

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", domain.ErrEmptyDataset)
	}

	// Raw values keep long numeric cells (IDs, numeric passwords) exact
	// instead of the 15-digit display form. Trailing empty rows are dropped.
	grid, err := workbook.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %q: %w", domain.ErrUnreadableFile, sheets[0], err)
	}
	if len(grid) == 0 {
		return nil, fmt.Errorf("%w: sheet %q has no header row", domain.ErrEmptyDataset, sheets[0])
	}

	header := normalizeHeader(grid[0])
	if len(grid) == 1 {
		return nil, fmt.Errorf("%w: sheet %q has no data rows", domain.ErrEmptyDataset, sheets[0])
	}

	rows := make([]domain.RawRow, 0, len(grid)-1)
	for i, cells := range grid[1:] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows = append(rows, toRawRow(i+1, header, cells))
	}
	return rows, nil
}

func normalizeHeader(cells []string) []string {
	header := make([]string, len(cells))
	for i, cell := range cells {
		header[i] = strings.ToLower(strings.TrimSpace(cell))
	}
	return header
}

func toRawRow(index int, header, cells []string) domain.RawRow {
	row := domain.RawRow{Index: index, Cells: make(map[string]string, len(header))}
	for col, name := range header {
		if name == "" {
			continue
		}
		value := ""
		if col < len(cells) {
			value = strings.TrimSpace(cells[col])
		}
		// First column wins when a header name repeats.
		if _, seen := row.Cells[name]; !seen {
			row.Cells[name] = value
		}
	}
	return row
}
