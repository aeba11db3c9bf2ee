package ingest

import (
    "context"
    "fmt"
    "io"

    "mms/internal/models"
)

// SourceManager manages the registered batch-file readers
type SourceManager struct {
    sources map[string]Source
}

// NewSourceManager creates a manager with the CSV and ZIP readers registered
func NewSourceManager() *SourceManager {
    m := &SourceManager{
        sources: make(map[string]Source),
    }
    m.RegisterSource(NewCSVSource())
    m.RegisterSource(NewZIPSource())
    return m
}

// RegisterSource adds a new source to the manager
func (m *SourceManager) RegisterSource(source Source) {
    m.sources[source.Method()] = source
}

// GetSource retrieves a source by method
func (m *SourceManager) GetSource(method string) (Source, error) {
    source, ok := m.sources[method]
    if !ok {
        return nil, fmt.Errorf("no source found for method: %s", method)
    }
    return source, nil
}

// ReadBatch parses an uploaded batch using the appropriate source
func (m *SourceManager) ReadBatch(ctx context.Context, method string, r io.Reader) ([]*models.Record, error) {
    source, err := m.GetSource(method)
    if err != nil {
        return nil, err
    }
    return source.Read(ctx, r)
}
