package ingest

import (
    "context"
    "encoding/csv"
    "errors"
    "io"
    "strings"

    "mms/internal/idnum"
    "mms/internal/models"
)

var errNoIDColumn = errors.New("no identifier column found")

// idColumns and wardColumns are the header spellings seen across uploaded
// membership spreadsheets, lowercased.
var idColumns = []string{"id number", "id_number", "idnumber", "id"}
var wardColumns = []string{"ward", "ward id", "ward_id", "expected ward", "expected_ward"}

// CSVSource reads one CSV spreadsheet into records. Identifier and ward
// values are normalized at this boundary; everything else passes through
// untouched in Attributes.
type CSVSource struct{}

// NewCSVSource creates a new CSV source instance
func NewCSVSource() *CSVSource {
    return &CSVSource{}
}

// Method returns the source type
func (s *CSVSource) Method() string {
    return "csv"
}

// Read implements the Source interface
func (s *CSVSource) Read(ctx context.Context, r io.Reader) ([]*models.Record, error) {
    reader := csv.NewReader(r)
    reader.FieldsPerRecord = -1

    headers, err := reader.Read()
    if err != nil {
        return nil, NewParseError("headers", err)
    }

    headerMap := make(map[string]int)
    for i, header := range headers {
        headerMap[strings.ToLower(strings.TrimSpace(header))] = i
    }
    idIdx := findColumn(headerMap, idColumns)
    wardIdx := findColumn(headerMap, wardColumns)
    if idIdx < 0 {
        return nil, NewParseError("headers", errNoIDColumn)
    }

    var records []*models.Record
    for {
        select {
        case <-ctx.Done():
            return nil, ctx.Err()
        default:
        }

        row, err := reader.Read()
        if err == io.EOF {
            return records, nil
        }
        if err != nil {
            return nil, NewParseError("rows", err)
        }

        rec := &models.Record{
            Row:        len(records),
            Attributes: make(map[string]interface{}),
        }
        if idIdx < len(row) {
            rec.RawID = strings.TrimSpace(row[idIdx])
        }
        if norm, err := idnum.NormalizeID(rec.RawID); err == nil {
            rec.IDNumber = norm
        }
        if wardIdx >= 0 && wardIdx < len(row) {
            if ward, err := idnum.CollapseCode(row[wardIdx]); err == nil {
                rec.ExpectedWard = ward
            }
        }
        for i, header := range headers {
            if i == idIdx || i == wardIdx || i >= len(row) {
                continue
            }
            rec.Attributes[strings.ToLower(strings.TrimSpace(header))] = row[i]
        }
        records = append(records, rec)
    }
}

func findColumn(headerMap map[string]int, candidates []string) int {
    for _, name := range candidates {
        if idx, ok := headerMap[name]; ok {
            return idx
        }
    }
    return -1
}
