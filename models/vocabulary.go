package models

import "regexp"

// Vocabulary holds the locale-specific knobs of orientation detection.
type Vocabulary struct {
	// TimeAxisPatterns are matched against column names; the first column
	// matching any pattern becomes the vertical time axis.
	TimeAxisPatterns []*regexp.Regexp
	YearMin          int
	YearMax          int
}

// DefaultTimeAxisPattern covers Korean and English year/period headers.
const DefaultTimeAxisPattern = `(연도|년도|year|Year|기간|시점)`

// DefaultVocabulary returns the built-in vocabulary.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		TimeAxisPatterns: []*regexp.Regexp{regexp.MustCompile(DefaultTimeAxisPattern)},
		YearMin:          1900,
		YearMax:          2100,
	}
}
