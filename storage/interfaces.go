package storage

import (
	"context"

	"github.com/google/uuid"

	"report-tables/models"
)

// Export is one selected table, ready to be written out.
type Export struct {
	RunID          uuid.UUID
	Source         string
	Stem           string // file-name stem; empty derives it from Source
	Selection      *models.Selection
	DisplayPercent bool
}

// ExportWriter is the interface any export backend must satisfy.
type ExportWriter interface {
	Write(ctx context.Context, e Export) error
	Close() error
}
