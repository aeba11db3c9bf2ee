package ingest

import (
    "archive/zip"
    "bytes"
    "context"
    "fmt"
    "io"
    "strings"

    "mms/internal/models"
)

// ZIPSource reads a ZIP archive of CSV spreadsheets, concatenating the rows
// of every CSV member in archive order. Non-CSV members are skipped.
type ZIPSource struct {
    csv *CSVSource
}

// NewZIPSource creates a new ZIP source instance
func NewZIPSource() *ZIPSource {
    return &ZIPSource{csv: NewCSVSource()}
}

// Method returns the source type
func (s *ZIPSource) Method() string {
    return "zip"
}

// Read implements the Source interface
func (s *ZIPSource) Read(ctx context.Context, r io.Reader) ([]*models.Record, error) {
    data, err := io.ReadAll(r)
    if err != nil {
        return nil, NewParseError("download", err)
    }

    archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
    if err != nil {
        return nil, NewParseError("open", err)
    }

    var records []*models.Record
    for _, f := range archive.File {
        select {
        case <-ctx.Done():
            return nil, ctx.Err()
        default:
        }

        if !strings.HasSuffix(strings.ToLower(f.Name), ".csv") {
            continue
        }

        rc, err := f.Open()
        if err != nil {
            return nil, NewParseError("open", fmt.Errorf("failed to open %s: %w", f.Name, err))
        }
        fileRecords, err := s.csv.Read(ctx, rc)
        rc.Close()
        if err != nil {
            return nil, fmt.Errorf("failed to process %s: %w", f.Name, err)
        }

        // Row numbers continue across archive members.
        for _, rec := range fileRecords {
            rec.Row = len(records)
            records = append(records, rec)
        }
    }
    return records, nil
}
