// Package extract holds the collaborators that turn source bytes into
// RawTables, plus a content-addressed cache in front of them.
package extract

import (
	"context"

	"report-tables/models"
)

// Extractor turns the bytes of one source document into candidate tables.
// Implementations must be deterministic: the same bytes yield the same
// tables, so results can be cached by content.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, data []byte) ([]models.RawTable, error)
}
