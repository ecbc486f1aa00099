package services

import (
	"fmt"
	"strings"

	"report-tables/models"
	"report-tables/utils"
)

// headerFillRatio is the share of non-empty cells the first row needs before
// it is promoted to column names.
const headerFillRatio = 0.5

// Cleaner turns RawTables into CleanTables.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// Clean trims every cell, promotes a mostly filled first row to the header,
// names blank columns positionally and drops rows that are entirely empty.
// It never fails; the result may have no rows. The input is not modified.
func (c *Cleaner) Clean(raw models.RawTable) *models.CleanTable {
	_, width := raw.Shape()
	grid := make([][]string, len(raw.Rows))
	for i, r := range raw.Rows {
		row := make([]string, width)
		for j := 0; j < width && j < len(r); j++ {
			row[j] = strings.TrimSpace(r[j])
		}
		grid[i] = row
	}

	out := &models.CleanTable{Page: raw.Page}

	names := make([]string, width)
	if len(grid) > 0 && width > 0 && fillRatio(grid[0]) >= headerFillRatio {
		copy(names, grid[0])
		grid = grid[1:]
		out.HeaderPromoted = true
	}
	out.Columns = uniqueColumnNames(names)

	out.Rows = make([][]string, 0, len(grid))
	for _, row := range grid {
		if isBlankRow(row) {
			continue
		}
		out.Rows = append(out.Rows, row)
	}

	c.logger.Debug("[cleaner] page %d: %d raw rows → %d columns x %d rows (header promoted: %v)",
		raw.Page, len(raw.Rows), len(out.Columns), len(out.Rows), out.HeaderPromoted)
	return out
}

func fillRatio(row []string) float64 {
	if len(row) == 0 {
		return 0
	}
	filled := 0
	for _, v := range row {
		if v != "" {
			filled++
		}
	}
	return float64(filled) / float64(len(row))
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}

// uniqueColumnNames replaces blank names with col_<i> and suffixes repeated
// names with their index so every name is distinct.
func uniqueColumnNames(names []string) []string {
	return uniqueNames(names, "col_%d")
}

// uniqueNames fills blanks with blankFormat and the position, then suffixes
// repeats until every name is distinct.
func uniqueNames(names []string, blankFormat string) []string {
	out := make([]string, len(names))
	seen := make(map[string]struct{}, len(names))
	for i, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			n = fmt.Sprintf(blankFormat, i)
		}
		if _, dup := seen[n]; dup {
			base := n
			for k := i; ; k++ {
				n = fmt.Sprintf("%s_%d", base, k)
				if _, taken := seen[n]; !taken {
					break
				}
			}
		}
		seen[n] = struct{}{}
		out[i] = n
	}
	return out
}
