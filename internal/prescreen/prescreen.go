// Package prescreen filters an uploaded batch before verification: rows with
// invalid identifiers are excluded with a reason, and rows sharing a
// normalized identifier are grouped as duplicates. It only groups and
// reports; resolving which duplicate wins is left to the caller.
package prescreen

import (
    "mms/internal/idnum"
    "mms/internal/models"
)

// InvalidRow pairs an excluded record with the reason it was excluded.
type InvalidRow struct {
    Record *models.Record `json:"record"`
    Reason string         `json:"reason"`
}

// Result is the output of one pre-screen pass.
type Result struct {
    // Valid holds every row with a valid identifier, in original order.
    // Duplicate rows are included; the caller decides which one wins.
    Valid []*models.Record `json:"valid"`

    // Duplicates groups rows by normalized identifier; only identifiers
    // shared by more than one row appear here.
    Duplicates map[string][]*models.Record `json:"duplicates,omitempty"`

    // Invalid holds the excluded rows with reasons.
    Invalid []InvalidRow `json:"invalid,omitempty"`
}

// Screen runs both filters over the batch. The two filters are independent:
// validity is decided per row, duplicate grouping is decided over the whole
// batch by normalized identifier.
func Screen(records []*models.Record) *Result {
    result := &Result{
        Duplicates: make(map[string][]*models.Record),
    }
    byID := make(map[string][]*models.Record)

    for _, rec := range records {
        ok, reason := idnum.ValidateID(rec.RawID)
        if !ok {
            result.Invalid = append(result.Invalid, InvalidRow{Record: rec, Reason: reason})
            continue
        }
        if rec.IDNumber == "" {
            norm, err := idnum.NormalizeID(rec.RawID)
            if err != nil {
                result.Invalid = append(result.Invalid, InvalidRow{Record: rec, Reason: err.Error()})
                continue
            }
            rec.IDNumber = norm
        }
        result.Valid = append(result.Valid, rec)
        byID[rec.IDNumber] = append(byID[rec.IDNumber], rec)
    }

    for id, group := range byID {
        if len(group) > 1 {
            result.Duplicates[id] = group
        }
    }
    return result
}
