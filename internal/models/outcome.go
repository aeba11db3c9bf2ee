package models

import (
    "encoding/json"
    "fmt"
)

// Category classifies the verification result of a single record
type Category string

const (
    CategoryRegisteredInWard Category = "REGISTERED_IN_WARD"
    CategoryDifferentWard    Category = "DIFFERENT_WARD"
    CategoryNotRegistered    Category = "NOT_REGISTERED"
    CategoryDeceased         Category = "DECEASED"
    CategoryAPIError         Category = "API_ERROR"
)

// Categories lists every verification category in report order.
var Categories = []Category{
    CategoryRegisteredInWard,
    CategoryDifferentWard,
    CategoryNotRegistered,
    CategoryDeceased,
    CategoryAPIError,
}

// ValidateCategory checks if the category is valid
func ValidateCategory(c Category) error {
    switch c {
    case CategoryRegisteredInWard, CategoryDifferentWard, CategoryNotRegistered,
        CategoryDeceased, CategoryAPIError:
        return nil
    default:
        return fmt.Errorf("invalid category: %s", c)
    }
}

// Outcome is the verification result attached to a record. Canonical codes
// are populated only for REGISTERED_IN_WARD and DIFFERENT_WARD.
type Outcome struct {
    // Skipped is true when the row's identifier failed normalization and
    // the row never reached the verification API.
    Skipped    bool   `json:"skipped,omitempty"`
    SkipReason string `json:"skip_reason,omitempty"`

    Category Category `json:"category,omitempty"`
    Verified bool     `json:"verified"`

    // MatchedWard is nil when a ward comparison was never performed.
    MatchedWard *bool `json:"matched_ward,omitempty"`

    // Canonical geographic codes resolved through the mapping tables.
    // Empty string means the mapping was absent.
    ProvinceCode     string `json:"province_code,omitempty"`
    MunicipalityCode string `json:"municipality_code,omitempty"`
    WardCode         string `json:"ward_code,omitempty"`
    WardName         string `json:"ward_name,omitempty"`
    VotingDistrict   string `json:"voting_district,omitempty"`
    VotingStation    string `json:"voting_station,omitempty"`

    // Detail carries a human-readable note for API_ERROR outcomes.
    Detail string `json:"detail,omitempty"`

    // RawPayload is the verbatim API response body, kept for audit.
    RawPayload json.RawMessage `json:"raw_payload,omitempty"`
}
