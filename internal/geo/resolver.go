// Package geo resolves externally-verified electoral-commission ids against
// the internal geographic mapping tables. The four tables are flat key→value
// associations; the province → municipality → ward → voting-district
// hierarchy is reconstructed by joining them, never stored. A mapping miss is
// an Absent value, not an error.
package geo

import (
    "sort"
    "strings"

    "go.uber.org/zap"

    "mms/internal/models"
)

// DefaultMatchWindow is how many characters of a reported voting-station
// name the fuzzy voting-district fallback compares.
const DefaultMatchWindow = 15

// Tables is the read-only in-memory snapshot of the four mapping tables,
// loaded once per batch run.
type Tables struct {
    Provinces       map[int64]models.Province
    Municipalities  map[int64]models.Municipality
    Wards           map[int64]models.Ward
    VotingDistricts map[int64]models.VotingDistrict
}

// NewTables returns an empty snapshot.
func NewTables() *Tables {
    return &Tables{
        Provinces:       make(map[int64]models.Province),
        Municipalities:  make(map[int64]models.Municipality),
        Wards:           make(map[int64]models.Ward),
        VotingDistricts: make(map[int64]models.VotingDistrict),
    }
}

// Resolution carries whatever levels could be resolved. Nil means the
// mapping was absent at that level.
type Resolution struct {
    Province       *models.Province
    Municipality   *models.Municipality
    Ward           *models.Ward
    VotingDistrict *models.VotingDistrict
}

// Resolver answers mapping lookups against a Tables snapshot.
type Resolver struct {
    tables *Tables
    window int
    logger *zap.Logger
}

// NewResolver wraps a snapshot. window <= 0 falls back to DefaultMatchWindow.
func NewResolver(tables *Tables, window int, logger *zap.Logger) *Resolver {
    if window <= 0 {
        window = DefaultMatchWindow
    }
    if logger == nil {
        logger = zap.NewNop()
    }
    return &Resolver{tables: tables, window: window, logger: logger}
}

// Province looks up a province by its external id.
func (r *Resolver) Province(externalID int64) (models.Province, bool) {
    p, ok := r.tables.Provinces[externalID]
    return p, ok
}

// Municipality looks up a municipality by its external id.
func (r *Resolver) Municipality(externalID int64) (models.Municipality, bool) {
    m, ok := r.tables.Municipalities[externalID]
    return m, ok
}

// Ward looks up a ward by its external id. On a miss it falls back to the
// numeric structure of the id: the trailing three digits are the ward number
// and the leading digits are the municipality id, so a ward row carrying that
// municipality/ward-number pair can stand in for the missing mapping. The
// fallback is best-effort and may itself miss.
func (r *Resolver) Ward(externalID int64) (models.Ward, bool) {
    if w, ok := r.tables.Wards[externalID]; ok {
        return w, true
    }
    if externalID < 1000 {
        return models.Ward{}, false
    }
    muniID := externalID / 1000
    wardNumber := int(externalID % 1000)

    var candidates []models.Ward
    for _, w := range r.tables.Wards {
        if w.MunicipalityID == muniID && w.WardNumber == wardNumber {
            candidates = append(candidates, w)
        }
    }
    if len(candidates) == 0 {
        return models.Ward{}, false
    }
    sort.Slice(candidates, func(i, j int) bool {
        return candidates[i].ExternalID < candidates[j].ExternalID
    })
    if len(candidates) > 1 {
        r.logger.Warn("ambiguous ward fallback",
            zap.Int64("external_id", externalID),
            zap.Int("candidates", len(candidates)))
    }
    return candidates[0], true
}

// VotingDistrict looks up a voting district by its external number. On a
// miss it falls back to matching the reported station name against district
// names scoped to the already-resolved ward: the comparison is a
// case-insensitive substring check on the first matchWindow characters of
// the station name. Zero matches means Absent; multiple matches are flagged
// and the first in external-id order is accepted.
func (r *Resolver) VotingDistrict(externalID int64, stationName string, ward *models.Ward) (models.VotingDistrict, bool) {
    if vd, ok := r.tables.VotingDistricts[externalID]; ok {
        return vd, true
    }
    if ward == nil {
        return models.VotingDistrict{}, false
    }
    needle := strings.ToLower(strings.TrimSpace(stationName))
    if needle == "" {
        return models.VotingDistrict{}, false
    }
    if len(needle) > r.window {
        needle = needle[:r.window]
    }

    var candidates []models.VotingDistrict
    for _, vd := range r.tables.VotingDistricts {
        if vd.WardID != ward.ExternalID {
            continue
        }
        if strings.Contains(strings.ToLower(vd.Name), needle) {
            candidates = append(candidates, vd)
        }
    }
    if len(candidates) == 0 {
        return models.VotingDistrict{}, false
    }
    sort.Slice(candidates, func(i, j int) bool {
        return candidates[i].ExternalID < candidates[j].ExternalID
    })
    if len(candidates) > 1 {
        r.logger.Warn("ambiguous voting-district name match",
            zap.String("station", stationName),
            zap.Int64("ward", ward.ExternalID),
            zap.Int("candidates", len(candidates)))
    }
    return candidates[0], true
}

// Resolve attempts all four levels independently: a miss at one level never
// short-circuits the others. Only the voting-district fallback depends on
// the ward resolution, because its name matching is scoped to the ward.
func (r *Resolver) Resolve(provinceID, municipalityID, wardID, vdNumber int64, stationName string) Resolution {
    var res Resolution
    if p, ok := r.Province(provinceID); ok {
        res.Province = &p
    }
    if m, ok := r.Municipality(municipalityID); ok {
        res.Municipality = &m
    }
    if w, ok := r.Ward(wardID); ok {
        res.Ward = &w
    }
    if vd, ok := r.VotingDistrict(vdNumber, stationName, res.Ward); ok {
        res.VotingDistrict = &vd
    }
    return res
}
