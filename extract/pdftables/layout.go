package pdftables

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"
)

// The row reader reports neither font size nor advance width, so runs
// without them are measured with these.
const (
	fallbackFontSize = 10.0
	avgGlyphWidth    = 0.5 // in font sizes
)

// Glyph is a positioned run of text as reported by the PDF reader.
type Glyph struct {
	X, Y     float64
	W        float64
	FontSize float64
	S        string
}

// Line is a set of glyphs sharing a baseline, top of page first.
type Line struct {
	Y      float64
	Glyphs []Glyph
}

// Cell is a horizontally contiguous piece of text within a line.
type Cell struct {
	X0, X1   float64
	FontSize float64
	Text     string
}

func (c Cell) center() float64 { return (c.X0 + c.X1) / 2 }

// LayoutOptions tunes how glyphs become table cells.
type LayoutOptions struct {
	// CellGapRatio: a horizontal gap wider than this many font sizes starts
	// a new cell.
	CellGapRatio float64
	// SpaceRatio: a gap wider than this many font sizes inserts a space.
	SpaceRatio float64
	// LineGapRatio: a vertical gap wider than this many font sizes ends a
	// table block.
	LineGapRatio float64
	// ColumnTolerance is the slack, in points, when merging column spans.
	ColumnTolerance float64
}

// DefaultLayoutOptions suit typical statistical report PDFs.
func DefaultLayoutOptions() LayoutOptions {
	return LayoutOptions{
		CellGapRatio:    1.0,
		SpaceRatio:      0.2,
		LineGapRatio:    3.0,
		ColumnTolerance: 2.0,
	}
}

// SplitCells merges the glyphs of a line into cells.
func SplitCells(line Line, opts LayoutOptions) []Cell {
	glyphs := append([]Glyph(nil), line.Glyphs...)
	sort.SliceStable(glyphs, func(i, j int) bool { return glyphs[i].X < glyphs[j].X })

	var cells []Cell
	var cur *Cell
	var sb strings.Builder
	flush := func() {
		if cur == nil {
			return
		}
		cur.Text = strings.TrimSpace(sb.String())
		if cur.Text != "" {
			cells = append(cells, *cur)
		}
		cur = nil
		sb.Reset()
	}

	for _, g := range glyphs {
		fs := g.FontSize
		if fs <= 0 {
			fs = fallbackFontSize
		}
		w := g.W
		if w <= 0 {
			w = float64(utf8.RuneCountInString(g.S)) * fs * avgGlyphWidth
		}
		if cur != nil {
			gap := g.X - cur.X1
			if gap > opts.CellGapRatio*fs {
				flush()
			} else if gap > opts.SpaceRatio*fs && !strings.HasSuffix(sb.String(), " ") {
				sb.WriteByte(' ')
			}
		}
		if cur == nil {
			if strings.TrimSpace(g.S) == "" {
				continue
			}
			cur = &Cell{X0: g.X, X1: g.X + w, FontSize: fs}
		}
		sb.WriteString(g.S)
		cur.X1 = math.Max(cur.X1, g.X+w)
	}
	flush()
	return cells
}

type span struct{ x0, x1 float64 }

// DetectTables groups consecutive multi-cell lines into blocks and aligns
// each block onto shared column spans. Blocks with fewer than two rows are
// dropped.
func DetectTables(lines []Line, opts LayoutOptions) [][][]string {
	var tables [][][]string
	var block [][]Cell
	prevY, prevFont := math.NaN(), 0.0

	emit := func() {
		if len(block) >= 2 {
			if grid := alignBlock(block, opts); grid != nil {
				tables = append(tables, grid)
			}
		}
		block = nil
	}

	for _, ln := range lines {
		cells := SplitCells(ln, opts)
		if len(cells) < 2 {
			emit()
			prevY = math.NaN()
			continue
		}
		font := cells[0].FontSize
		if !math.IsNaN(prevY) && math.Abs(prevY-ln.Y) > opts.LineGapRatio*math.Max(font, prevFont) {
			emit()
		}
		block = append(block, cells)
		prevY, prevFont = ln.Y, font
	}
	emit()
	return tables
}

func alignBlock(block [][]Cell, opts LayoutOptions) [][]string {
	var spans []span
	for _, row := range block {
		for _, c := range row {
			spans = append(spans, span{c.X0, c.X1})
		}
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].x0 < spans[j].x0 })

	merged := []span{spans[0]}
	for _, s := range spans[1:] {
		last := &merged[len(merged)-1]
		if s.x0 <= last.x1+opts.ColumnTolerance {
			last.x1 = math.Max(last.x1, s.x1)
			continue
		}
		merged = append(merged, s)
	}
	if len(merged) < 2 {
		return nil
	}

	grid := make([][]string, len(block))
	blank := true
	for i, row := range block {
		out := make([]string, len(merged))
		for _, c := range row {
			col := columnFor(merged, c.center())
			if out[col] != "" {
				out[col] += " "
			}
			out[col] += c.Text
			blank = false
		}
		grid[i] = out
	}
	if blank {
		return nil
	}
	return grid
}

func columnFor(spans []span, x float64) int {
	best, bestDist := 0, math.Inf(1)
	for i, s := range spans {
		if x >= s.x0 && x <= s.x1 {
			return i
		}
		d := math.Min(math.Abs(x-s.x0), math.Abs(x-s.x1))
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}
