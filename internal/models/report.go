package models

import "time"

// BatchStatus tracks an uploaded batch through the pipeline
type BatchStatus string

const (
    BatchStatusUploaded  BatchStatus = "uploaded"
    BatchStatusVerifying BatchStatus = "verifying"
    BatchStatusComplete  BatchStatus = "complete"
    BatchStatusFailed    BatchStatus = "failed"
)

// BatchReport aggregates the outcomes of one batch run. It is computed once
// after all rows complete and is immutable afterwards.
type BatchReport struct {
    BatchID   string           `json:"batch_id"`
    Total     int              `json:"total"`
    Skipped   int              `json:"skipped"`
    Verified  int              `json:"verified"`
    Counts    map[Category]int `json:"counts"`
    Errors    int              `json:"errors"`
    CreatedAt time.Time        `json:"created_at"`
}

// NewBatchReport folds over the annotated records and counts each category.
func NewBatchReport(batchID string, records []*Record) *BatchReport {
    report := &BatchReport{
        BatchID:   batchID,
        Total:     len(records),
        Counts:    make(map[Category]int, len(Categories)),
        CreatedAt: time.Now(),
    }
    for _, c := range Categories {
        report.Counts[c] = 0
    }
    for _, rec := range records {
        out := rec.Outcome
        if out == nil {
            continue
        }
        if out.Skipped {
            report.Skipped++
            continue
        }
        report.Counts[out.Category]++
        if out.Verified {
            report.Verified++
        }
        if out.Category == CategoryAPIError {
            report.Errors++
        }
    }
    return report
}
