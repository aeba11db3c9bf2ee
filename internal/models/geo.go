package models

// Province maps an electoral-commission province id to the internal code.
type Province struct {
    ID         string `json:"id,omitempty"`
    ExternalID int64  `json:"external_id"`
    Code       string `json:"code"`
    Name       string `json:"name"`
}

// Municipality maps an electoral-commission municipality id to the internal code.
type Municipality struct {
    ID         string `json:"id,omitempty"`
    ExternalID int64  `json:"external_id"`
    Code       string `json:"code"`
    Name       string `json:"name"`
}

// Ward maps an electoral-commission ward id to the internal code. The
// municipality id and ward number are kept so a missing ward id can be
// recovered from the numeric structure of the external id.
type Ward struct {
    ID             string `json:"id,omitempty"`
    ExternalID     int64  `json:"external_id"`
    Code           string `json:"code"`
    Name           string `json:"name"`
    MunicipalityID int64  `json:"municipality_id"`
    WardNumber     int    `json:"ward_number"`
}

// VotingDistrict maps an electoral-commission voting-district number to the
// internal code, nested under a ward.
type VotingDistrict struct {
    ID         string `json:"id,omitempty"`
    ExternalID int64  `json:"external_id"`
    Code       string `json:"code"`
    Name       string `json:"name"`
    WardID     int64  `json:"ward_id"`
}
