package models

// Record represents one row of an uploaded membership batch.
type Record struct {
    // Row is the zero-based position of the row in the source file.
    Row int `json:"row"`

    // RawID is the identifier exactly as it appeared in the source,
    // before any normalization.
    RawID string `json:"raw_id"`

    // IDNumber is the canonical 13-digit identifier. Empty when the raw
    // value failed normalization.
    IDNumber string `json:"id_number,omitempty"`

    // ExpectedWard is the collapsed ward code declared in the source.
    // Empty when the source carried no ward for this row.
    ExpectedWard string `json:"expected_ward,omitempty"`

    // Attributes carries all other source columns unmodified.
    Attributes map[string]interface{} `json:"attributes,omitempty"`

    // Outcome is attached by the batch verifier; nil until then.
    Outcome *Outcome `json:"outcome,omitempty"`
}

// HasExpectedWard reports whether the source declared a ward for this row.
func (r *Record) HasExpectedWard() bool {
    return r.ExpectedWard != ""
}
