package services

import (
	"report-tables/models"
	"report-tables/utils"
)

const (
	// minTimeValues is the floor on parsed values a column needs before its
	// contents are considered a time axis.
	minTimeValues = 3
	// yearShareThreshold is the share of parsed values that must be years.
	yearShareThreshold = 0.6
	// SyntheticLabelColumn names the label column made up for horizontal
	// tables whose every header is a year.
	SyntheticLabelColumn = "row"
)

// Detector classifies a CleanTable as vertical, horizontal or neither.
type Detector struct {
	vocab  models.Vocabulary
	logger *utils.Logger
}

// NewDetector creates a Detector using the given vocabulary.
func NewDetector(vocab models.Vocabulary, logger *utils.Logger) *Detector {
	return &Detector{vocab: vocab, logger: logger}
}

// Detect tries the vertical layout first and falls back to horizontal.
func (d *Detector) Detect(t *models.CleanTable) models.Layout {
	if l, ok := d.DetectVertical(t); ok {
		return l
	}
	if l, ok := d.DetectHorizontal(t); ok {
		return l
	}
	return models.Layout{Orientation: models.OrientationNone}
}

// DetectVertical looks for a single time axis column, first by name and then
// by the share of year-like values it holds.
func (d *Detector) DetectVertical(t *models.CleanTable) (models.Layout, bool) {
	if col, ok := d.timeColumnByName(t.Columns); ok {
		d.logger.Debug("[detector] time column %q matched by name", col)
		return models.Layout{Orientation: models.OrientationVertical, TimeColumn: col}, true
	}
	if col, ok := d.timeColumnByValues(t); ok {
		d.logger.Debug("[detector] time column %q matched by values", col)
		return models.Layout{Orientation: models.OrientationVertical, TimeColumn: col}, true
	}
	return models.Layout{Orientation: models.OrientationNone}, false
}

func (d *Detector) timeColumnByName(cols []string) (string, bool) {
	for _, c := range cols {
		for _, re := range d.vocab.TimeAxisPatterns {
			if re.MatchString(c) {
				return c, true
			}
		}
	}
	return "", false
}

func (d *Detector) timeColumnByValues(t *models.CleanTable) (string, bool) {
	need := len(t.Rows) / 3
	if need < minTimeValues {
		need = minTimeValues
	}

	for idx, c := range t.Columns {
		parsed, years := 0, 0
		for _, row := range t.Rows {
			v, ok := ParseTimeValue(row[idx])
			if !ok {
				continue
			}
			parsed++
			if v >= float64(d.vocab.YearMin) && v <= float64(d.vocab.YearMax) {
				years++
			}
		}
		if parsed >= need && float64(years)/float64(parsed) > yearShareThreshold {
			return c, true
		}
	}
	return "", false
}

// DetectHorizontal accepts tables with at least two year-valued headers. The
// first other column labels the series.
func (d *Detector) DetectHorizontal(t *models.CleanTable) (models.Layout, bool) {
	var timeCols []string
	label := ""
	for _, c := range t.Columns {
		if _, ok := parseYearHeader(c, d.vocab.YearMin, d.vocab.YearMax); ok {
			timeCols = append(timeCols, c)
			continue
		}
		if label == "" {
			label = c
		}
	}

	if len(timeCols) < 2 {
		return models.Layout{Orientation: models.OrientationNone}, false
	}

	l := models.Layout{
		Orientation: models.OrientationHorizontal,
		TimeColumns: timeCols,
		LabelColumn: label,
	}
	if label == "" {
		l.LabelColumn = SyntheticLabelColumn
		l.SyntheticLabels = true
	}
	d.logger.Debug("[detector] horizontal layout: %d year headers, label %q", len(timeCols), l.LabelColumn)
	return l, true
}
