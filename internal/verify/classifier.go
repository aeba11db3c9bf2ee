// internal/verify/classifier.go
package verify

import (
    "mms/internal/idnum"
    "mms/internal/iec"
    "mms/internal/models"
)

// Classify assigns exactly one category to a record's API result. It is a
// flat priority table: the first matching condition wins, and no state is
// retained across records.
//
// Ward comparison happens on collapsed strings only. Comparing the raw
// values would make "41804011.0" and "41804011" unequal, which is the
// defining bug class of this pipeline.
func Classify(expectedWard string, res *iec.Response, callErr error) models.Outcome {
    if callErr != nil {
        return models.Outcome{
            Category: models.CategoryAPIError,
            Detail:   callErr.Error(),
        }
    }
    if res == nil {
        return models.Outcome{
            Category: models.CategoryAPIError,
            Detail:   "empty response from verification API",
        }
    }
    if res.Deceased {
        return models.Outcome{Category: models.CategoryDeceased}
    }
    if !res.Registered {
        return models.Outcome{Category: models.CategoryNotRegistered}
    }

    out := models.Outcome{Verified: true}

    if expectedWard == "" {
        // No declared ward means no mismatch is possible.
        out.Category = models.CategoryRegisteredInWard
        return out
    }

    apiWard, apiErr := idnum.CollapseCode(res.Ward)
    expected, expErr := idnum.CollapseCode(expectedWard)
    if apiErr != nil || expErr != nil {
        // One side is not a usable code; the comparison is unknowable and
        // MatchedWard stays nil.
        out.Category = models.CategoryRegisteredInWard
        return out
    }

    matched := apiWard == expected
    out.MatchedWard = &matched
    if matched {
        out.Category = models.CategoryRegisteredInWard
    } else {
        out.Category = models.CategoryDifferentWard
    }
    return out
}
