package handlers

import (
    "encoding/json"
    "fmt"
    "net/http"
    "strconv"

    "go.uber.org/zap"

    "mms/internal/geo"
    "mms/internal/models"
    "mms/internal/storage"
)

// MappingHandler seeds and inspects the geographic mapping tables.
type MappingHandler struct {
    store  *storage.PocketBaseStore
    window int
    logger *zap.Logger
}

func NewMappingHandler(store *storage.PocketBaseStore, window int, logger *zap.Logger) *MappingHandler {
    if logger == nil {
        logger = zap.NewNop()
    }
    return &MappingHandler{store: store, window: window, logger: logger}
}

// HandleBulkSaveMappings loads mapping rows for one level. The body is a
// JSON array of entries for that level.
func (h *MappingHandler) HandleBulkSaveMappings(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost {
        http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
        return
    }

    level := r.PathValue("level")
    var savedCount int
    var errors []string

    save := func(i int, externalID int64, code string, persist func() error) {
        if externalID <= 0 || code == "" {
            errors = append(errors, fmt.Sprintf("invalid entry at index %d: external_id and code are required", i))
            return
        }
        if err := persist(); err != nil {
            errors = append(errors, fmt.Sprintf("failed to save entry at index %d: %s", i, err.Error()))
            return
        }
        savedCount++
    }

    var total int
    switch level {
    case "provinces":
        var entries []models.Province
        if err := json.NewDecoder(r.Body).Decode(&entries); err != nil {
            http.Error(w, "Invalid JSON", http.StatusBadRequest)
            return
        }
        total = len(entries)
        for i := range entries {
            e := entries[i]
            save(i, e.ExternalID, e.Code, func() error { return h.store.SaveProvince(&e) })
        }
    case "municipalities":
        var entries []models.Municipality
        if err := json.NewDecoder(r.Body).Decode(&entries); err != nil {
            http.Error(w, "Invalid JSON", http.StatusBadRequest)
            return
        }
        total = len(entries)
        for i := range entries {
            e := entries[i]
            save(i, e.ExternalID, e.Code, func() error { return h.store.SaveMunicipality(&e) })
        }
    case "wards":
        var entries []models.Ward
        if err := json.NewDecoder(r.Body).Decode(&entries); err != nil {
            http.Error(w, "Invalid JSON", http.StatusBadRequest)
            return
        }
        total = len(entries)
        for i := range entries {
            e := entries[i]
            save(i, e.ExternalID, e.Code, func() error { return h.store.SaveWard(&e) })
        }
    case "voting-districts":
        var entries []models.VotingDistrict
        if err := json.NewDecoder(r.Body).Decode(&entries); err != nil {
            http.Error(w, "Invalid JSON", http.StatusBadRequest)
            return
        }
        total = len(entries)
        for i := range entries {
            e := entries[i]
            save(i, e.ExternalID, e.Code, func() error { return h.store.SaveVotingDistrict(&e) })
        }
    default:
        http.Error(w, "Unknown mapping level", http.StatusNotFound)
        return
    }

    response := map[string]interface{}{
        "total_submitted": total,
        "saved_count":     savedCount,
    }
    if len(errors) > 0 {
        response["errors"] = errors
    }

    w.WriteHeader(http.StatusCreated)
    json.NewEncoder(w).Encode(response)
}

// HandleLookupMapping resolves one external id the same way the batch
// verifier does, fallbacks included, so operators can debug mapping gaps.
// Voting-district lookups accept optional station and ward query parameters
// to exercise the name fallback.
func (h *MappingHandler) HandleLookupMapping(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet {
        http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
        return
    }

    level := r.PathValue("level")
    externalID, err := strconv.ParseInt(r.PathValue("external_id"), 10, 64)
    if err != nil {
        http.Error(w, "Invalid external id", http.StatusBadRequest)
        return
    }

    tables, err := h.store.LoadTables()
    if err != nil {
        h.logger.Error("mapping tables unavailable", zap.Error(err))
        http.Error(w, "Mapping tables unavailable", http.StatusServiceUnavailable)
        return
    }
    resolver := geo.NewResolver(tables, h.window, h.logger)

    var entry interface{}
    var found bool
    switch level {
    case "provinces":
        entry, found = resolver.Province(externalID)
    case "municipalities":
        entry, found = resolver.Municipality(externalID)
    case "wards":
        entry, found = resolver.Ward(externalID)
    case "voting-districts":
        var ward *models.Ward
        if wardID, err := strconv.ParseInt(r.URL.Query().Get("ward"), 10, 64); err == nil {
            if wd, ok := resolver.Ward(wardID); ok {
                ward = &wd
            }
        }
        entry, found = resolver.VotingDistrict(externalID, r.URL.Query().Get("station"), ward)
    default:
        http.Error(w, "Unknown mapping level", http.StatusNotFound)
        return
    }

    if !found {
        http.Error(w, "Mapping not found", http.StatusNotFound)
        return
    }
    json.NewEncoder(w).Encode(entry)
}
