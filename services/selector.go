package services

import (
	"errors"
	"fmt"

	"report-tables/models"
	"report-tables/utils"
)

// Selector runs the clean → detect → transform pipeline over candidate
// tables and picks the first one that yields a chartable long table.
type Selector struct {
	cleaner     *Cleaner
	detector    *Detector
	transformer *Transformer
	logger      *utils.Logger
}

// NewSelector wires the pipeline components together.
func NewSelector(vocab models.Vocabulary, logger *utils.Logger) *Selector {
	return &Selector{
		cleaner:     NewCleaner(logger),
		detector:    NewDetector(vocab, logger),
		transformer: NewTransformer(logger),
		logger:      logger,
	}
}

// Select returns the first candidate, in input order, that produces a
// non-empty long table. If none does, the first candidate's clean table is
// returned with an empty long table and Found=false. Only an empty input is
// an error.
func (s *Selector) Select(tables []models.RawTable) (*models.Selection, error) {
	if len(tables) == 0 {
		return nil, ErrNoTables
	}

	var first *models.Selection
	for i, raw := range tables {
		sel := s.Evaluate(i, raw)
		if sel.Found {
			s.logger.Info("[selector] picked table #%d (page %d, %s, %d series, %d records)",
				i+1, raw.Page, sel.Long.Orientation, len(sel.Long.Metrics), len(sel.Long.Records))
			return sel, nil
		}
		if first == nil {
			first = sel
		}
	}

	s.logger.Warn("[selector] none of %d tables has a visualizable series", len(tables))
	return first, nil
}

// Pick evaluates the candidate at forced when forced >= 0, and falls back to
// Select otherwise.
func (s *Selector) Pick(tables []models.RawTable, forced int) (*models.Selection, error) {
	if len(tables) == 0 {
		return nil, ErrNoTables
	}
	if forced < 0 {
		return s.Select(tables)
	}
	if forced >= len(tables) {
		return nil, fmt.Errorf("%w: %d of %d", ErrTableIndex, forced+1, len(tables))
	}
	sel := s.Evaluate(forced, tables[forced])
	s.logger.Info("[selector] using table #%d as requested (found=%t)", forced+1, sel.Found)
	return sel, nil
}

// Evaluate runs the pipeline on a single candidate. Vertical transformation
// is attempted first; horizontal only when the vertical path yields nothing.
func (s *Selector) Evaluate(index int, raw models.RawTable) *models.Selection {
	clean := s.cleaner.Clean(raw)
	sel := &models.Selection{
		Index: index,
		Page:  raw.Page,
		Clean: clean,
		Long:  &models.LongTableResult{Orientation: models.OrientationNone, PercentMetrics: map[string]bool{}},
	}

	if layout, ok := s.detector.DetectVertical(clean); ok {
		res, err := s.transformer.ToLong(clean, layout)
		if err == nil {
			sel.Long, sel.Found = res, true
			return sel
		}
		s.logReject(index, raw.Page, models.OrientationVertical, err)
	}

	if layout, ok := s.detector.DetectHorizontal(clean); ok {
		res, err := s.transformer.ToLong(clean, layout)
		if err == nil {
			sel.Long, sel.Found = res, true
			return sel
		}
		s.logReject(index, raw.Page, models.OrientationHorizontal, err)
	}

	s.logger.Debug("[selector] table #%d (page %d) rejected", index+1, raw.Page)
	return sel
}

func (s *Selector) logReject(index, page int, o models.Orientation, err error) {
	reason := "unexpected"
	switch {
	case errors.Is(err, ErrNoSeries):
		reason = "no series"
	case errors.Is(err, ErrNoOrientation):
		reason = "no time axis"
	}
	s.logger.Debug("[selector] table #%d (page %d) %s path: %s (%v)", index+1, page, o, reason, err)
}
