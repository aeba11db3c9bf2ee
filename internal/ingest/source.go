// internal/ingest/source.go
package ingest

import (
    "context"
    "fmt"
    "io"

    "mms/internal/models"
)

// Source defines the interface for different batch-file readers
type Source interface {
    // Method returns the source type (e.g., "csv", "zip")
    Method() string

    // Read parses an uploaded batch into records, preserving row order
    Read(ctx context.Context, r io.Reader) ([]*models.Record, error)
}

// ParseError represents a parsing error with a specific stage
type ParseError struct {
    Stage string
    Err   error
}

func (e *ParseError) Error() string {
    return fmt.Sprintf("parse error at %s stage: %v", e.Stage, e.Err)
}

func (e *ParseError) Unwrap() error {
    return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(stage string, err error) *ParseError {
    return &ParseError{
        Stage: stage,
        Err:   err,
    }
}
