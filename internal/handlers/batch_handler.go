package handlers

import (
    "encoding/json"
    "io"
    "net/http"
    "strings"

    "github.com/google/uuid"
    "go.uber.org/zap"

    "mms/internal/config"
    "mms/internal/geo"
    "mms/internal/iec"
    "mms/internal/ingest"
    "mms/internal/models"
    "mms/internal/prescreen"
    "mms/internal/storage"
    "mms/internal/verify"
)

type BatchHandler struct {
    store   *storage.PocketBaseStore
    manager *ingest.SourceManager
    client  iec.Verifier
    cfg     *config.Config
    logger  *zap.Logger
}

func NewBatchHandler(store *storage.PocketBaseStore, manager *ingest.SourceManager, client iec.Verifier, cfg *config.Config, logger *zap.Logger) *BatchHandler {
    if logger == nil {
        logger = zap.NewNop()
    }
    return &BatchHandler{
        store:   store,
        manager: manager,
        client:  client,
        cfg:     cfg,
        logger:  logger,
    }
}

type verifyResponse struct {
    BatchID    string                      `json:"batch_id"`
    Report     *models.BatchReport         `json:"report"`
    Records    []*models.Record            `json:"records"`
    Duplicates map[string][]*models.Record `json:"duplicates,omitempty"`
    Invalid    []prescreen.InvalidRow      `json:"invalid,omitempty"`
}

type prescreenResponse struct {
    Total      int                         `json:"total"`
    Valid      int                         `json:"valid"`
    Duplicates map[string][]*models.Record `json:"duplicates,omitempty"`
    Invalid    []prescreen.InvalidRow      `json:"invalid,omitempty"`
}

// batchBody extracts the uploaded spreadsheet from either a multipart form
// ("file" field) or the raw request body.
func batchBody(r *http.Request) (io.ReadCloser, error) {
    if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
        file, _, err := r.FormFile("file")
        if err != nil {
            return nil, err
        }
        return file, nil
    }
    return r.Body, nil
}

func sourceMethod(r *http.Request) string {
    method := r.URL.Query().Get("source")
    if method == "" {
        method = "csv"
    }
    return method
}

// HandleVerifyBatch runs the whole pipeline for one uploaded batch:
// parse, pre-screen, verify against the commission API, resolve canonical
// codes, persist, report.
func (h *BatchHandler) HandleVerifyBatch(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost {
        http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
        return
    }

    body, err := batchBody(r)
    if err != nil {
        http.Error(w, "Invalid upload", http.StatusBadRequest)
        return
    }
    defer body.Close()

    records, err := h.manager.ReadBatch(r.Context(), sourceMethod(r), body)
    if err != nil {
        http.Error(w, err.Error(), http.StatusBadRequest)
        return
    }

    screen := prescreen.Screen(records)

    // Mapping tables are loaded once per batch and cached for its lifetime.
    // A load failure is systemic: no report is produced.
    tables, err := h.store.LoadTables()
    if err != nil {
        h.logger.Error("mapping tables unavailable", zap.Error(err))
        http.Error(w, "Mapping tables unavailable", http.StatusServiceUnavailable)
        return
    }

    batchID := uuid.New().String()
    resolver := geo.NewResolver(tables, h.cfg.VDMatchWindow, h.logger)
    verifier := verify.NewBatchVerifier(h.client, resolver, h.cfg.IECWorkers, h.cfg.IECTimeout, h.logger)

    report, err := verifier.VerifyBatch(r.Context(), batchID, screen.Valid)
    if err != nil {
        h.logger.Error("batch verification failed", zap.String("batch_id", batchID), zap.Error(err))
        http.Error(w, "Batch verification failed", http.StatusInternalServerError)
        return
    }

    if err := h.store.SaveBatch(report, models.BatchStatusComplete, r.URL.Query().Get("name")); err != nil {
        h.logger.Error("failed to persist batch", zap.String("batch_id", batchID), zap.Error(err))
    }
    if err := h.store.SaveOutcomes(batchID, screen.Valid); err != nil {
        h.logger.Error("failed to persist outcomes", zap.String("batch_id", batchID), zap.Error(err))
    }

    w.WriteHeader(http.StatusOK)
    json.NewEncoder(w).Encode(verifyResponse{
        BatchID:    batchID,
        Report:     report,
        Records:    screen.Valid,
        Duplicates: screen.Duplicates,
        Invalid:    screen.Invalid,
    })
}

// HandlePrescreenBatch parses and pre-screens an upload without calling the
// verification API, so operators can fix duplicates and invalid identifiers
// before spending a batch run.
func (h *BatchHandler) HandlePrescreenBatch(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost {
        http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
        return
    }

    body, err := batchBody(r)
    if err != nil {
        http.Error(w, "Invalid upload", http.StatusBadRequest)
        return
    }
    defer body.Close()

    records, err := h.manager.ReadBatch(r.Context(), sourceMethod(r), body)
    if err != nil {
        http.Error(w, err.Error(), http.StatusBadRequest)
        return
    }

    screen := prescreen.Screen(records)
    json.NewEncoder(w).Encode(prescreenResponse{
        Total:      len(records),
        Valid:      len(screen.Valid),
        Duplicates: screen.Duplicates,
        Invalid:    screen.Invalid,
    })
}

// HandleGetBatch returns one stored batch report, or all of them when no id
// is present in the path.
func (h *BatchHandler) HandleGetBatch(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet {
        http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
        return
    }

    id := r.PathValue("id")
    if id == "" {
        batches, err := h.store.GetAllBatches()
        if err != nil {
            http.Error(w, "Error fetching batches", http.StatusInternalServerError)
            return
        }
        json.NewEncoder(w).Encode(batches)
        return
    }

    batch, err := h.store.GetBatch(id)
    if err != nil {
        http.Error(w, "Batch not found", http.StatusNotFound)
        return
    }
    json.NewEncoder(w).Encode(batch)
}

// HandleGetBatchOutcomes returns the persisted per-row audit records of one
// batch.
func (h *BatchHandler) HandleGetBatchOutcomes(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet {
        http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
        return
    }

    id := r.PathValue("id")
    if id == "" {
        http.Error(w, "ID is required", http.StatusBadRequest)
        return
    }

    outcomes, err := h.store.GetOutcomes(id)
    if err != nil {
        http.Error(w, "Error fetching outcomes", http.StatusInternalServerError)
        return
    }
    json.NewEncoder(w).Encode(outcomes)
}
